package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledger-service/internal/models"
	"ledger-service/internal/monitoring"
)

// RecoveryScheduler owns the deferred timer that recovers a trial fund at
// its expiry.
type RecoveryScheduler interface {
	Schedule(ctx context.Context, trialId uint, at time.Time) error
	Cancel(ctx context.Context, trialId uint) error
}

type TrialFundService struct {
	DB        *gorm.DB
	Helper    *HelperService
	Notifier  *NotificationService
	Scheduler RecoveryScheduler
	Now       func() time.Time
}

func NewTrialFundService(db *gorm.DB, helper *HelperService, notifier *NotificationService, scheduler RecoveryScheduler) *TrialFundService {
	return &TrialFundService{
		DB:        db,
		Helper:    helper,
		Notifier:  notifier,
		Scheduler: scheduler,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Grant creates an ACTIVE trial fund on tx. A user holds at most one active
// trial at a time.
func (s *TrialFundService) Grant(tx *gorm.DB, userId uint, amount decimal.Decimal, window time.Duration) (*models.TrialFund, error) {
	if amount.IsNegative() || window <= 0 {
		return nil, ErrInvalidAmount
	}

	var active int64
	if err := tx.Model(&models.TrialFund{}).
		Where("user_id = ? AND status = ?", userId, models.TrialStatusActive).
		Count(&active).Error; err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, ErrTrialActive
	}

	now := s.Now()
	trial := models.TrialFund{
		UserId:     userId,
		Amount:     RoundMoney(amount),
		UsedAmount: decimal.Zero,
		GrantedAt:  now,
		ExpiresAt:  now.Add(window),
		Status:     models.TrialStatusActive,
	}
	if err := tx.Create(&trial).Error; err != nil {
		return nil, err
	}
	return &trial, nil
}

// ScheduleRecovery arms the recovery timer for trial. A trial already past
// its expiry is recovered immediately on the calling goroutine.
func (s *TrialFundService) ScheduleRecovery(ctx context.Context, trial *models.TrialFund) error {
	if !trial.ExpiresAt.After(s.Now()) {
		_, err := s.Recover(ctx, trial.ID)
		return err
	}
	if s.Scheduler == nil {
		return nil
	}
	if err := s.Scheduler.Schedule(ctx, trial.ID, trial.ExpiresAt); err != nil {
		// the due-trial sweep still picks it up from expires_at
		logrus.WithFields(logrus.Fields{"trial_id": trial.ID, "user_id": trial.UserId}).
			WithError(err).Warn("failed to schedule trial recovery timer")
	}
	return nil
}

// Recover revokes a trial fund and unwinds the holdings it paid for. It
// returns false without error when the trial is missing or already
// recovered.
func (s *TrialFundService) Recover(ctx context.Context, trialId uint) (bool, error) {
	var seen models.TrialFund
	err := s.DB.WithContext(ctx).First(&seen, trialId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if seen.Status == models.TrialStatusRecovered {
		return false, nil
	}

	log := logrus.WithFields(logrus.Fields{"trial_id": trialId, "user_id": seen.UserId})
	var refunded []models.UserProduct
	var clawback decimal.Decimal

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := LockWallet(tx, seen.UserId); err != nil {
			return err
		}

		var trial models.TrialFund
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trial, trialId).Error; err != nil {
			return err
		}
		if trial.Status == models.TrialStatusRecovered {
			return nil
		}

		now := s.Now()
		if err := tx.Model(&trial).UpdateColumns(map[string]interface{}{
			"status":       models.TrialStatusRecovered,
			"used_amount":  decimal.Zero,
			"recovered_at": now,
		}).Error; err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND status = ? AND acquired_at <= ?", trial.UserId, models.HoldingStatusActive, trial.ExpiresAt).
			Order("id").
			Find(&refunded).Error; err != nil {
			return err
		}

		released := decimal.Zero
		var trialFunded []uint
		for _, h := range refunded {
			released = released.Add(h.WalletSpend)
			if h.TrialSpend.IsPositive() {
				trialFunded = append(trialFunded, h.ID)
			}
		}

		if err := refundHoldings(tx, s.Helper, trial.UserId, refunded, released, now,
			fmt.Sprintf("Trial fund %d recovered", trial.ID)); err != nil {
			return err
		}

		clawback, err = reverseRewards(tx, s.Helper, trial.UserId, trialFunded, now)
		return err
	})
	if err != nil {
		log.WithError(err).Error("trial recovery failed")
		return false, err
	}

	s.Helper.InvalidateWallets(ctx, seen.UserId)
	monitoring.TrialsRecoveredTotal.Inc()
	monitoring.HoldingsRefundedTotal.WithLabelValues("trial_recovery").Add(float64(len(refunded)))
	log.WithFields(logrus.Fields{"holdings": len(refunded), "clawback": clawback.StringFixed(2)}).Info("trial fund recovered")

	s.cancelTimer(ctx, trialId)
	s.Notifier.Notify(ctx, Notice{
		UserId:  seen.UserId,
		Type:    models.NotificationTrial,
		Title:   "Trial fund expired",
		Message: fmt.Sprintf("Your trial fund has ended and %d holding(s) were closed.", len(refunded)),
	})
	return true, nil
}

// RecoverDue recovers every ACTIVE trial whose expiry has passed. It backs up
// the per-trial timers, which do not survive a broker outage.
func (s *TrialFundService) RecoverDue(ctx context.Context) (int, error) {
	var ids []uint
	if err := s.DB.WithContext(ctx).Model(&models.TrialFund{}).
		Where("status = ? AND expires_at <= ?", models.TrialStatusActive, s.Now()).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}

	recovered := 0
	for _, id := range ids {
		ok, err := s.Recover(ctx, id)
		if err != nil {
			monitoring.SweepFailuresTotal.WithLabelValues("trial_recovery").Inc()
			continue
		}
		if ok {
			recovered++
		}
	}
	return recovered, nil
}

func (s *TrialFundService) cancelTimer(ctx context.Context, trialId uint) {
	if s.Scheduler == nil {
		return
	}
	if err := s.Scheduler.Cancel(ctx, trialId); err != nil {
		logrus.WithField("trial_id", trialId).WithError(err).Warn("failed to cancel trial recovery timer")
	}
}

// refundHoldings releases the wallet-funded principal and closes holdings.
// The trial-funded part stays forfeited.
func refundHoldings(tx *gorm.DB, helper *HelperService, userId uint, holdings []models.UserProduct, released decimal.Decimal, at time.Time, description string) error {
	if len(holdings) == 0 {
		return nil
	}

	if err := Release(tx, userId, released); err != nil {
		return err
	}

	ids := make([]uint, 0, len(holdings))
	for _, h := range holdings {
		ids = append(ids, h.ID)
	}
	res := tx.Model(&models.UserProduct{}).
		Where("id IN ? AND status = ?", ids, models.HoldingStatusActive).
		UpdateColumns(map[string]interface{}{
			"status":      models.HoldingStatusRefunded,
			"refunded_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(ids)) {
		return fmt.Errorf("refund of user %d holdings raced: %d of %d updated", userId, res.RowsAffected, len(ids))
	}

	if released.IsPositive() {
		return helper.SaveTransaction(tx, TransactionData{
			Amount:      released,
			Subject:     models.SubjectRefund,
			Description: description,
			ToUserId:    userId,
		})
	}
	return nil
}
