package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledger-service/internal/models"
	"ledger-service/internal/monitoring"
)

type PurchaseService struct {
	DB     *gorm.DB
	Helper *HelperService
	Now    func() time.Time
}

func NewPurchaseService(db *gorm.DB, helper *HelperService) *PurchaseService {
	return &PurchaseService{
		DB:     db,
		Helper: helper,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// Buy rents one unit of productId for userId. Trial credit is spent before
// wallet balance and the full price is reserved. Either every ledger effect
// lands or none does.
func (s *PurchaseService) Buy(ctx context.Context, userId, productId uint) (*models.UserProduct, error) {
	db := s.DB.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var product models.Product
	if err := db.Where("deleted_at IS NULL").First(&product, productId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if user.Level < product.Level {
		return nil, fmt.Errorf("%w: level %d, product requires %d", ErrInsufficientRank, user.Level, product.Level)
	}

	var holding models.UserProduct
	err := db.Transaction(func(tx *gorm.DB) error {
		wallet, err := LockWallet(tx, userId)
		if err != nil {
			return err
		}

		now := s.Now()
		var trial models.TrialFund
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND status = ? AND expires_at > ?", userId, models.TrialStatusActive, now).
			Order("id desc").
			Limit(1).
			Find(&trial).Error
		if err != nil {
			return err
		}

		split, err := SplitPrice(product.Price, trial.Remaining(), wallet.Balance)
		if err != nil {
			return err
		}

		if err := Debit(tx, userId, split.WalletSpend); err != nil {
			return err
		}
		if err := Reserve(tx, userId, product.Price); err != nil {
			return err
		}

		expiresAt := now.AddDate(0, 0, product.RentalDays)
		holding = models.UserProduct{
			UserId:      userId,
			ProductId:   product.ID,
			Price:       product.Price,
			WalletSpend: split.WalletSpend,
			TrialSpend:  split.TrialSpend,
			AcquiredAt:  now,
			Status:      models.HoldingStatusActive,
		}

		if split.TrialSpend.IsPositive() {
			res := tx.Model(&models.TrialFund{}).
				Where("id = ? AND used_amount + ? <= amount", trial.ID, split.TrialSpend).
				UpdateColumn("used_amount", gorm.Expr("used_amount + ?", split.TrialSpend))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w: trial fund %d exhausted", ErrInsufficientFunds, trial.ID)
			}
			trialId := trial.ID
			holding.TrialFundId = &trialId

			if split.WalletSpend.IsZero() && trial.ExpiresAt.Before(expiresAt) {
				expiresAt = trial.ExpiresAt
			}
		}
		holding.ExpiresAt = expiresAt

		if err := tx.Create(&holding).Error; err != nil {
			return err
		}

		sellerId := SystemUser
		if product.SellerId != nil {
			sellerId = *product.SellerId
			if err := Credit(tx, sellerId, product.Price); err != nil {
				return err
			}
		}

		if err := s.Helper.SaveTransaction(tx, TransactionData{
			Amount:  product.Price,
			Subject: models.SubjectPurchased,
			Description: fmt.Sprintf("Purchased %s (wallet %s, trial %s)",
				product.Title, split.WalletSpend.StringFixed(2), split.TrialSpend.StringFixed(2)),
			FromUserId: userId,
			ToUserId:   sellerId,
		}); err != nil {
			return err
		}

		return s.Helper.AwardPoints(tx, userId, FloorPoints(split.WalletSpend))
	})
	if err != nil {
		return nil, err
	}

	holding.Product = product
	if product.SellerId != nil {
		s.Helper.InvalidateWallets(ctx, userId, *product.SellerId)
	} else {
		s.Helper.InvalidateWallets(ctx, userId)
	}
	monitoring.PurchasesTotal.WithLabelValues(fundingLabel(holding)).Inc()
	logrus.WithFields(logrus.Fields{
		"user_id":         userId,
		"user_product_id": holding.ID,
		"wallet_spend":    holding.WalletSpend.StringFixed(2),
		"trial_spend":     holding.TrialSpend.StringFixed(2),
	}).Info("product purchased")
	return &holding, nil
}

// ListHoldings returns a user's holdings, newest first. An empty status lists
// every holding.
func (s *PurchaseService) ListHoldings(ctx context.Context, userId uint, status string) ([]models.UserProduct, error) {
	q := s.DB.WithContext(ctx).Preload("Product").Where("user_id = ?", userId)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var holdings []models.UserProduct
	err := q.Order("id desc").Find(&holdings).Error
	return holdings, err
}

func fundingLabel(h models.UserProduct) string {
	switch {
	case h.TrialSpend.IsZero():
		return "wallet"
	case h.WalletSpend.IsZero():
		return "trial"
	default:
		return "mixed"
	}
}
