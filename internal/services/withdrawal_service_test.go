package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-service/internal/models"
)

func newWithdrawalService() *WithdrawalService {
	return NewWithdrawalService(testDB, NewHelperService(testDB), NewNotificationService(testDB, nil), dec("0.03"))
}

func TestWithdrawalApprove(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	u := newUser(t, "200")
	svc := newWithdrawalService()

	w, err := svc.Request(ctx, u.ID, WithdrawRequestDTO{Amount: dec("100"), Address: "TX9abc"})
	require.NoError(t, err)
	assertMoney(t, "3", w.Fee)
	assertMoney(t, "103", w.Total)

	wallet := loadWallet(t, u.ID)
	assertMoney(t, "97", wallet.Balance)
	assertMoney(t, "103", wallet.Reserved)

	approved, err := svc.Approve(ctx, w.ID, "payout-77")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusApproved, approved.Status)
	assert.Equal(t, "payout-77", approved.ExternalId)

	wallet = loadWallet(t, u.ID)
	assertMoney(t, "97", wallet.Balance)
	assertMoney(t, "0", wallet.Reserved)

	_, err = svc.Reject(ctx, w.ID, "too late")
	assert.ErrorIs(t, err, ErrWithdrawalNotPending)
}

func TestWithdrawalReject(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	u := newUser(t, "200")
	svc := newWithdrawalService()

	w, err := svc.Request(ctx, u.ID, WithdrawRequestDTO{Amount: dec("50"), Address: "TX9abc"})
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, w.ID, "address blocked")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusRejected, rejected.Status)

	wallet := loadWallet(t, u.ID)
	assertMoney(t, "200", wallet.Balance)
	assertMoney(t, "0", wallet.Reserved)

	var refunds int64
	testDB.Model(&models.Transaction{}).Where("user_id = ? AND subject = ?", u.ID, models.SubjectRefund).Count(&refunds)
	assert.Equal(t, int64(1), refunds)

	_, err = svc.Approve(ctx, w.ID+1000, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithdrawalInsufficientFunds(t *testing.T) {
	requireDB(t)
	u := newUser(t, "100")
	svc := newWithdrawalService()

	_, err := svc.Request(context.Background(), u.ID, WithdrawRequestDTO{Amount: dec("100")})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = svc.Request(context.Background(), u.ID, WithdrawRequestDTO{Amount: dec("-1")})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	wallet := loadWallet(t, u.ID)
	assertMoney(t, "100", wallet.Balance)
	assertMoney(t, "0", wallet.Reserved)
}
