package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledger-service/internal/models"
	"ledger-service/pkg/common"
)

type WithdrawalService struct {
	DB       *gorm.DB
	Helper   *HelperService
	Notifier *NotificationService
	FeeRate  decimal.Decimal
}

func NewWithdrawalService(db *gorm.DB, helper *HelperService, notifier *NotificationService, feeRate decimal.Decimal) *WithdrawalService {
	return &WithdrawalService{DB: db, Helper: helper, Notifier: notifier, FeeRate: feeRate}
}

type WithdrawRequestDTO struct {
	Amount  decimal.Decimal `json:"amount"`
	Address string          `json:"address"`
}

// WithdrawalFee returns the fee and the total debited for amount.
func WithdrawalFee(amount, rate decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	fee := RoundMoney(amount.Mul(rate))
	return fee, amount.Add(fee)
}

// Request debits amount plus fee from balance and holds it in reserved until
// an operator approves or rejects the withdrawal.
func (s *WithdrawalService) Request(ctx context.Context, userId uint, data WithdrawRequestDTO) (*models.Withdrawal, error) {
	amount := RoundMoney(data.Amount)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	fee, total := WithdrawalFee(amount, s.FeeRate)

	w := models.Withdrawal{
		UserId:  userId,
		Amount:  amount,
		Fee:     fee,
		Total:   total,
		Address: data.Address,
		Status:  models.WithdrawalStatusPending,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallet, err := LockWallet(tx, userId)
		if err != nil {
			return err
		}
		if wallet.Balance.LessThan(total) {
			return fmt.Errorf("%w: balance %s, needs %s", ErrInsufficientFunds, wallet.Balance.StringFixed(2), total.StringFixed(2))
		}
		if err := Debit(tx, userId, total); err != nil {
			return err
		}
		if err := Reserve(tx, userId, total); err != nil {
			return err
		}
		if err := tx.Create(&w).Error; err != nil {
			return err
		}
		return s.Helper.SaveTransaction(tx, TransactionData{
			Amount:      total,
			Subject:     models.SubjectWithdraw,
			Description: fmt.Sprintf("Withdrawal request #%d (fee %s)", w.ID, fee.StringFixed(2)),
			FromUserId:  userId,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Helper.InvalidateWallets(ctx, userId)
	logrus.WithFields(logrus.Fields{"user_id": userId, "withdrawal_id": w.ID, "total": total.StringFixed(2)}).Info("withdrawal requested")
	return &w, nil
}

// Approve finalizes a PENDING withdrawal; the reserved total leaves the wallet.
func (s *WithdrawalService) Approve(ctx context.Context, id uint, externalId string) (*models.Withdrawal, error) {
	return s.settle(ctx, id, models.WithdrawalStatusApproved, externalId)
}

// Reject cancels a PENDING withdrawal and returns the reserved total to balance.
func (s *WithdrawalService) Reject(ctx context.Context, id uint, comment string) (*models.Withdrawal, error) {
	return s.settle(ctx, id, models.WithdrawalStatusRejected, comment)
}

func (s *WithdrawalService) settle(ctx context.Context, id uint, status, note string) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := s.DB.WithContext(ctx).First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := LockWallet(tx, w.UserId); err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, id).Error; err != nil {
			return err
		}
		if w.Status != models.WithdrawalStatusPending {
			return ErrWithdrawalNotPending
		}

		columns := map[string]interface{}{"status": status}
		if status == models.WithdrawalStatusApproved {
			if err := Settle(tx, w.UserId, w.Total); err != nil {
				return err
			}
			columns["external_id"] = note
			w.ExternalId = note
		} else {
			if err := Release(tx, w.UserId, w.Total); err != nil {
				return err
			}
			if err := s.Helper.SaveTransaction(tx, TransactionData{
				Amount:      w.Total,
				Subject:     models.SubjectRefund,
				Description: fmt.Sprintf("Withdrawal #%d rejected", w.ID),
				ToUserId:    w.UserId,
			}); err != nil {
				return err
			}
			columns["comment"] = note
			w.Comment = note
		}
		w.Status = status
		return tx.Model(&w).UpdateColumns(columns).Error
	})
	if err != nil {
		return nil, err
	}

	s.Helper.InvalidateWallets(ctx, w.UserId)
	s.Notifier.Notify(ctx, Notice{
		UserId:  w.UserId,
		Type:    models.NotificationWithdrawal,
		Title:   "Withdrawal " + status,
		Message: fmt.Sprintf("Your withdrawal of %s is %s.", w.Amount.StringFixed(2), status),
	})
	return &w, nil
}

func (s *WithdrawalService) List(ctx context.Context, userId uint, page, limit int) (common.PaginationResult, error) {
	page, limit, offset := common.Offset(page, limit)

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Withdrawal{}).Where("user_id = ?", userId).Count(&total).Error; err != nil {
		return common.PaginationResult{}, err
	}
	var rows []models.Withdrawal
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userId).Order("id desc").
		Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return common.PaginationResult{}, err
	}
	return common.PaginateResponse(rows, total, page, limit, "Withdrawals fetched"), nil
}
