package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledger-service/internal/models"
)

// Wallet mutations. Each is a single guarded UPDATE run on the caller's
// transaction; the guard keeps balance and reserved from going negative.

// Credit adds amount to balance.
func Credit(tx *gorm.DB, userId uint, amount decimal.Decimal) error {
	return mutateWallet(tx, userId, amount, map[string]interface{}{
		"balance": gorm.Expr("balance + ?", amount),
	}, "")
}

// Debit removes amount from balance.
func Debit(tx *gorm.DB, userId uint, amount decimal.Decimal) error {
	return mutateWallet(tx, userId, amount, map[string]interface{}{
		"balance": gorm.Expr("balance - ?", amount),
	}, "balance")
}

// Reserve locks amount against an open holding or withdrawal.
func Reserve(tx *gorm.DB, userId uint, amount decimal.Decimal) error {
	return mutateWallet(tx, userId, amount, map[string]interface{}{
		"reserved": gorm.Expr("reserved + ?", amount),
	}, "")
}

// Release moves amount from reserved back to balance.
func Release(tx *gorm.DB, userId uint, amount decimal.Decimal) error {
	return mutateWallet(tx, userId, amount, map[string]interface{}{
		"balance":  gorm.Expr("balance + ?", amount),
		"reserved": gorm.Expr("reserved - ?", amount),
	}, "reserved")
}

// Settle drops amount from reserved once it has left the platform.
func Settle(tx *gorm.DB, userId uint, amount decimal.Decimal) error {
	return mutateWallet(tx, userId, amount, map[string]interface{}{
		"reserved": gorm.Expr("reserved - ?", amount),
	}, "reserved")
}

func mutateWallet(tx *gorm.DB, userId uint, amount decimal.Decimal, columns map[string]interface{}, guard string) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if amount.IsZero() {
		return nil
	}

	q := tx.Model(&models.Wallet{}).Where("user_id = ?", userId)
	if guard != "" {
		q = q.Where(guard+" >= ?", amount)
	}
	res := q.UpdateColumns(columns)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&models.Wallet{}).Where("user_id = ?", userId).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: user %d", ErrWalletMissing, userId)
	}
	return fmt.Errorf("%w: user %d needs %s", ErrInsufficientFunds, userId, amount)
}

// LockWallet loads the wallet row FOR UPDATE. Money-moving transactions take
// it before touching the user's trial fund or holdings, so work on one user
// serializes here.
func LockWallet(tx *gorm.DB, userId uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userId).
		First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %d", ErrWalletMissing, userId)
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func walletBalance(tx *gorm.DB, userId uint) (decimal.Decimal, error) {
	var wallet models.Wallet
	if err := tx.Select("balance").Where("user_id = ?", userId).First(&wallet).Error; err != nil {
		return decimal.Zero, err
	}
	return wallet.Balance, nil
}
