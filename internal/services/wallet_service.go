package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ledger-service/internal/models"
	"ledger-service/pkg/common"
)

const walletCacheTTL = 30 * time.Second

type WalletService struct {
	DB    *gorm.DB
	Cache *redis.Client
}

func NewWalletService(db *gorm.DB, cache *redis.Client) *WalletService {
	return &WalletService{DB: db, Cache: cache}
}

type WalletOverview struct {
	UserId     uint            `json:"user_id"`
	Available  decimal.Decimal `json:"available"`
	Reserved   decimal.Decimal `json:"reserved"`
	Total      decimal.Decimal `json:"total"`
	TrialLeft  decimal.Decimal `json:"trial_left"`
	TrialUntil *time.Time      `json:"trial_until,omitempty"`
}

func walletCacheKey(userId uint) string {
	return fmt.Sprintf("wallet:user:%d", userId)
}

// Overview returns the user's balances, served from Redis when fresh.
func (s *WalletService) Overview(ctx context.Context, userId uint) (WalletOverview, bool, error) {
	var overview WalletOverview
	if s.Cache != nil {
		found, err := common.GetCache(ctx, s.Cache, walletCacheKey(userId), &overview)
		if err == nil && found {
			return overview, true, nil
		}
		if err != nil {
			logrus.WithField("user_id", userId).WithError(err).Debug("wallet cache read failed")
		}
	}

	var wallet models.Wallet
	err := s.DB.WithContext(ctx).Where("user_id = ?", userId).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return WalletOverview{}, false, ErrWalletMissing
	}
	if err != nil {
		return WalletOverview{}, false, err
	}

	overview = WalletOverview{
		UserId:    userId,
		Available: wallet.Balance,
		Reserved:  wallet.Reserved,
		Total:     wallet.Balance.Add(wallet.Reserved),
		TrialLeft: decimal.Zero,
	}

	var trial models.TrialFund
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND status = ?", userId, models.TrialStatusActive).
		Order("id desc").Limit(1).Find(&trial).Error; err != nil {
		return WalletOverview{}, false, err
	}
	if trial.ID != 0 {
		overview.TrialLeft = trial.Remaining()
		until := trial.ExpiresAt
		overview.TrialUntil = &until
	}

	if s.Cache != nil {
		_ = common.SetCache(ctx, s.Cache, walletCacheKey(userId), overview, walletCacheTTL)
	}
	return overview, false, nil
}

// Invalidate drops cached overviews after a balance change.
func (s *WalletService) Invalidate(ctx context.Context, userIds ...uint) {
	if s.Cache == nil || len(userIds) == 0 {
		return
	}
	keys := make([]string, 0, len(userIds))
	for _, id := range userIds {
		keys = append(keys, walletCacheKey(id))
	}
	if err := common.DeleteCache(ctx, s.Cache, keys...); err != nil {
		logrus.WithError(err).Warn("wallet cache invalidation failed")
	}
}

// Transactions pages through the user's audit log, newest first. subject
// filters by movement kind when set.
func (s *WalletService) Transactions(ctx context.Context, userId uint, subject string, page, limit int) (common.PaginationResult, error) {
	page, limit, offset := common.Offset(page, limit)

	q := s.DB.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userId)
	if subject != "" {
		q = q.Where("subject = ?", subject)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return common.PaginationResult{}, err
	}

	var rows []models.Transaction
	if err := q.Order("id desc").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return common.PaginationResult{}, err
	}
	return common.PaginateResponse(rows, total, page, limit, "Transactions fetched"), nil
}
