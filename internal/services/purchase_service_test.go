package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-service/internal/models"
)

func newTrial(t *testing.T, userId uint, amount, used string, expiresAt time.Time) models.TrialFund {
	t.Helper()
	tf := models.TrialFund{
		UserId:     userId,
		Amount:     dec(amount),
		UsedAmount: dec(used),
		GrantedAt:  time.Now().UTC(),
		ExpiresAt:  expiresAt,
		Status:     models.TrialStatusActive,
	}
	require.NoError(t, testDB.Create(&tf).Error)
	return tf
}

func TestBuyFromWallet(t *testing.T) {
	requireDB(t)
	u := newUser(t, "100")
	p := newProduct(t, "60", "2", 1, 30)

	holding, err := NewPurchaseService(testDB, NewHelperService(testDB)).Buy(context.Background(), u.ID, p.ID)
	require.NoError(t, err)

	w := loadWallet(t, u.ID)
	assertMoney(t, "40", w.Balance)
	assertMoney(t, "60", w.Reserved)
	assertMoney(t, "60", holding.WalletSpend)
	assertMoney(t, "0", holding.TrialSpend)
	assert.Nil(t, holding.TrialFundId)
	assert.Equal(t, models.HoldingStatusActive, holding.Status)
	assert.WithinDuration(t, holding.AcquiredAt.AddDate(0, 0, 30), holding.ExpiresAt, time.Second)

	var trx models.Transaction
	require.NoError(t, testDB.Where("user_id = ? AND subject = ?", u.ID, models.SubjectPurchased).First(&trx).Error)
	assert.Equal(t, models.TrxDebit, trx.TrxType)
	assertMoney(t, "60", trx.Amount)

	var user models.User
	require.NoError(t, testDB.First(&user, u.ID).Error)
	assert.Equal(t, int64(60), user.Points)
}

func TestBuyFromTrialFund(t *testing.T) {
	requireDB(t)
	u := newUser(t, "100")
	trial := newTrial(t, u.ID, "200", "0", time.Now().UTC().Add(96*time.Hour))
	p := newProduct(t, "60", "2", 1, 30)

	holding, err := NewPurchaseService(testDB, NewHelperService(testDB)).Buy(context.Background(), u.ID, p.ID)
	require.NoError(t, err)

	w := loadWallet(t, u.ID)
	assertMoney(t, "100", w.Balance)
	assertMoney(t, "60", w.Reserved)
	assertMoney(t, "0", holding.WalletSpend)
	assertMoney(t, "60", holding.TrialSpend)
	require.NotNil(t, holding.TrialFundId)
	assert.Equal(t, trial.ID, *holding.TrialFundId)
	assertMoney(t, "60", loadTrial(t, trial.ID).UsedAmount)

	// fully trial-funded capital cannot outlive the trial
	assert.WithinDuration(t, trial.ExpiresAt, holding.ExpiresAt, time.Second)

	// trial credit earns no loyalty points
	var user models.User
	require.NoError(t, testDB.First(&user, u.ID).Error)
	assert.Zero(t, user.Points)
	assert.Equal(t, 1, user.Level)
}

func TestBuySplitsTrialAndWallet(t *testing.T) {
	requireDB(t)
	u := newUser(t, "100")
	trial := newTrial(t, u.ID, "200", "180", time.Now().UTC().Add(96*time.Hour))
	p := newProduct(t, "60", "2", 1, 30)

	holding, err := NewPurchaseService(testDB, NewHelperService(testDB)).Buy(context.Background(), u.ID, p.ID)
	require.NoError(t, err)

	assertMoney(t, "40", holding.WalletSpend)
	assertMoney(t, "20", holding.TrialSpend)
	assert.WithinDuration(t, holding.AcquiredAt.AddDate(0, 0, 30), holding.ExpiresAt, time.Second)

	w := loadWallet(t, u.ID)
	assertMoney(t, "60", w.Balance)
	assertMoney(t, "60", w.Reserved)
	assertMoney(t, "200", loadTrial(t, trial.ID).UsedAmount)

	var user models.User
	require.NoError(t, testDB.First(&user, u.ID).Error)
	assert.Equal(t, int64(40), user.Points)
}

func TestBuyIgnoresExpiredTrial(t *testing.T) {
	requireDB(t)
	u := newUser(t, "100")
	trial := newTrial(t, u.ID, "200", "0", time.Now().UTC().Add(-time.Minute))
	p := newProduct(t, "60", "2", 1, 30)

	holding, err := NewPurchaseService(testDB, NewHelperService(testDB)).Buy(context.Background(), u.ID, p.ID)
	require.NoError(t, err)
	assertMoney(t, "60", holding.WalletSpend)
	assertMoney(t, "0", loadTrial(t, trial.ID).UsedAmount)
}

func TestBuyRejectsLowRank(t *testing.T) {
	requireDB(t)
	u := newUser(t, "10000")
	p := newProduct(t, "60", "2", 3, 30)

	_, err := NewPurchaseService(testDB, NewHelperService(testDB)).Buy(context.Background(), u.ID, p.ID)
	assert.ErrorIs(t, err, ErrInsufficientRank)

	w := loadWallet(t, u.ID)
	assertMoney(t, "10000", w.Balance)
	assertMoney(t, "0", w.Reserved)

	var holdings, trxs int64
	testDB.Model(&models.UserProduct{}).Where("user_id = ?", u.ID).Count(&holdings)
	testDB.Model(&models.Transaction{}).Where("user_id = ?", u.ID).Count(&trxs)
	assert.Zero(t, holdings)
	assert.Zero(t, trxs)
}

func TestBuyInsufficientFunds(t *testing.T) {
	requireDB(t)
	u := newUser(t, "30")
	trial := newTrial(t, u.ID, "20", "0", time.Now().UTC().Add(time.Hour))
	p := newProduct(t, "60", "2", 1, 30)

	_, err := NewPurchaseService(testDB, NewHelperService(testDB)).Buy(context.Background(), u.ID, p.ID)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	w := loadWallet(t, u.ID)
	assertMoney(t, "30", w.Balance)
	assertMoney(t, "0", w.Reserved)
	assertMoney(t, "0", loadTrial(t, trial.ID).UsedAmount)
}

func TestBuyCreditsSeller(t *testing.T) {
	requireDB(t)
	seller := newUser(t, "0")
	buyer := newUser(t, "100")
	p := newProduct(t, "60", "2", 1, 30)
	require.NoError(t, testDB.Model(&p).Update("seller_id", seller.ID).Error)

	_, err := NewPurchaseService(testDB, NewHelperService(testDB)).Buy(context.Background(), buyer.ID, p.ID)
	require.NoError(t, err)
	assertMoney(t, "60", loadWallet(t, seller.ID).Balance)

	var sale models.Transaction
	require.NoError(t, testDB.Where("user_id = ?", seller.ID).First(&sale).Error)
	assert.Equal(t, models.TrxCredit, sale.TrxType)
}

func TestBuyMissingProduct(t *testing.T) {
	requireDB(t)
	u := newUser(t, "100")
	p := newProduct(t, "60", "2", 1, 30)
	now := time.Now().UTC()
	require.NoError(t, testDB.Model(&p).Update("deleted_at", now).Error)

	svc := NewPurchaseService(testDB, NewHelperService(testDB))
	_, err := svc.Buy(context.Background(), u.ID, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, err = svc.Buy(context.Background(), u.ID+1000, p.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assertMoney(t, "100", loadWallet(t, u.ID).Balance)
	assert.True(t, decimal.Zero.Equal(loadWallet(t, u.ID).Reserved))
}
