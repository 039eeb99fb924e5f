package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ledger-service/internal/models"
	"ledger-service/pkg/common"
)

// SystemUser stands for the platform side of a ledger movement.
const SystemUser uint = 0

// WalletCache drops cached wallet views.
type WalletCache interface {
	Invalidate(ctx context.Context, userIds ...uint)
}

type HelperService struct {
	DB      *gorm.DB
	Wallets WalletCache
}

func NewHelperService(db *gorm.DB) *HelperService {
	return &HelperService{DB: db}
}

type TransactionData struct {
	TransactionNo string
	Amount        decimal.Decimal
	Subject       string
	Description   string
	FromUserId    uint
	ToUserId      uint
	Status        int
}

// SaveTransaction writes the audit lines for one movement: a debit leg for
// FromUserId and a credit leg for ToUserId. Legs on SystemUser are omitted.
// Each leg records the wallet balance after the movement, so it must run
// after the matching ledger mutation on the same tx.
func (s *HelperService) SaveTransaction(tx *gorm.DB, data TransactionData) error {
	if tx == nil {
		tx = s.DB
	}
	if data.TransactionNo == "" {
		data.TransactionNo = common.GenerateTrxNo()
	}
	if data.Status == 0 {
		data.Status = 1
	}

	legs := []struct {
		userId  uint
		trxType string
	}{
		{data.FromUserId, models.TrxDebit},
		{data.ToUserId, models.TrxCredit},
	}

	for _, leg := range legs {
		if leg.userId == SystemUser {
			continue
		}
		balance, err := walletBalance(tx, leg.userId)
		if err != nil {
			return fmt.Errorf("balance snapshot for user %d: %w", leg.userId, err)
		}
		t := models.Transaction{
			UserId:        leg.userId,
			TransactionNo: data.TransactionNo,
			Amount:        data.Amount,
			TrxType:       leg.trxType,
			Subject:       data.Subject,
			Description:   data.Description,
			Balance:       balance,
			Status:        data.Status,
		}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
	}
	return nil
}

// AwardPoints adds loyalty points and raises the cached level when the new
// total reaches a higher level's points threshold. Points never lower a level.
func (s *HelperService) AwardPoints(tx *gorm.DB, userId uint, points int64) error {
	if points <= 0 {
		return nil
	}
	if tx == nil {
		tx = s.DB
	}

	if err := tx.Model(&models.User{}).Where("id = ?", userId).
		UpdateColumn("points", gorm.Expr("points + ?", points)).Error; err != nil {
		return err
	}

	var user models.User
	if err := tx.Select("id", "points", "level").First(&user, userId).Error; err != nil {
		return err
	}

	var next models.Level
	err := tx.Where("points <= ?", user.Points).Order("level desc").Limit(1).Find(&next).Error
	if err != nil {
		return err
	}
	if next.ID == 0 || next.Level <= user.Level {
		return nil
	}

	return tx.Model(&models.User{}).Where("id = ?", userId).UpdateColumn("level", next.Level).Error
}

// InvalidateWallets runs after commit for every user whose wallet moved.
func (s *HelperService) InvalidateWallets(ctx context.Context, userIds ...uint) {
	if s == nil || s.Wallets == nil || len(userIds) == 0 {
		return
	}
	s.Wallets.Invalidate(ctx, userIds...)
}
