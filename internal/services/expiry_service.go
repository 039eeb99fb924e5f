package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledger-service/internal/models"
	"ledger-service/internal/monitoring"
)

type ExpiryService struct {
	DB       *gorm.DB
	Helper   *HelperService
	Notifier *NotificationService
	Trials   *TrialFundService
	Now      func() time.Time
}

func NewExpiryService(db *gorm.DB, helper *HelperService, notifier *NotificationService, trials *TrialFundService) *ExpiryService {
	return &ExpiryService{
		DB:       db,
		Helper:   helper,
		Notifier: notifier,
		Trials:   trials,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

type ExpirySummary struct {
	Users    int `json:"users"`
	Holdings int `json:"holdings"`
	Failed   int `json:"failed"`
}

// UserRefund describes what one user's sweep returned.
type UserRefund struct {
	Holdings        int
	Released        decimal.Decimal
	TrialReturned   decimal.Decimal
	RecoveredTrials []uint
}

// RunExpirySweep refunds every ACTIVE holding past its expiry, one
// transaction per user. A failing user is logged and skipped.
func (s *ExpiryService) RunExpirySweep(ctx context.Context) (ExpirySummary, error) {
	now := s.Now()
	log := logrus.WithField("job", "expiry")
	defer monitoring.ObserveSweep("expiry", time.Now())

	var userIds []uint
	if err := s.DB.WithContext(ctx).Model(&models.UserProduct{}).
		Where("status = ? AND expires_at <= ?", models.HoldingStatusActive, now).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &userIds).Error; err != nil {
		return ExpirySummary{}, err
	}
	log.WithField("users", len(userIds)).Info("expiry sweep started")

	var summary ExpirySummary
	for _, userId := range userIds {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		refund, err := s.RefundExpired(ctx, userId, now)
		if err != nil {
			summary.Failed++
			monitoring.SweepFailuresTotal.WithLabelValues("expiry").Inc()
			log.WithField("user_id", userId).WithError(err).Error("expiry refund failed")
			continue
		}
		if refund.Holdings > 0 {
			summary.Users++
			summary.Holdings += refund.Holdings
		}
	}

	log.WithFields(logrus.Fields{
		"users":    summary.Users,
		"holdings": summary.Holdings,
		"failed":   summary.Failed,
	}).Info("expiry sweep finished")
	return summary, nil
}

// RefundExpired closes a user's holdings that expired at or before now.
func (s *ExpiryService) RefundExpired(ctx context.Context, userId uint, now time.Time) (UserRefund, error) {
	refund := UserRefund{Released: decimal.Zero, TrialReturned: decimal.Zero}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := LockWallet(tx, userId); err != nil {
			return err
		}

		var holdings []models.UserProduct
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND status = ? AND expires_at <= ?", userId, models.HoldingStatusActive, now).
			Order("id").
			Find(&holdings).Error; err != nil {
			return err
		}
		if len(holdings) == 0 {
			return nil
		}

		released := decimal.Zero
		trialSpend := map[uint]decimal.Decimal{}
		var trialFunded []uint
		for _, h := range holdings {
			released = released.Add(h.WalletSpend)
			if h.TrialSpend.IsPositive() {
				trialFunded = append(trialFunded, h.ID)
				if h.TrialFundId != nil {
					trialSpend[*h.TrialFundId] = trialSpend[*h.TrialFundId].Add(h.TrialSpend)
				}
			}
		}

		for trialId, spent := range trialSpend {
			returned, recovered, err := returnTrialUsage(tx, trialId, spent, now)
			if err != nil {
				return err
			}
			refund.TrialReturned = refund.TrialReturned.Add(returned)
			if recovered {
				refund.RecoveredTrials = append(refund.RecoveredTrials, trialId)
			}
		}

		if err := refundHoldings(tx, s.Helper, userId, holdings, released, now,
			fmt.Sprintf("Principal returned for %d expired holding(s)", len(holdings))); err != nil {
			return err
		}
		if _, err := reverseRewards(tx, s.Helper, userId, trialFunded, now); err != nil {
			return err
		}

		refund.Holdings = len(holdings)
		refund.Released = released
		return nil
	})
	if err != nil {
		return UserRefund{}, err
	}
	if refund.Holdings == 0 {
		return refund, nil
	}

	s.Helper.InvalidateWallets(ctx, userId)
	monitoring.HoldingsRefundedTotal.WithLabelValues("expiry").Add(float64(refund.Holdings))
	for _, trialId := range refund.RecoveredTrials {
		monitoring.TrialsRecoveredTotal.Inc()
		if s.Trials != nil {
			s.Trials.cancelTimer(ctx, trialId)
		}
	}

	s.Notifier.Notify(ctx, Notice{
		UserId: userId,
		Type:   models.NotificationRefund,
		Title:  "Wallet updated",
		Message: fmt.Sprintf("%d holding(s) expired and %s was returned to your balance.",
			refund.Holdings, refund.Released.StringFixed(2)),
	})
	return refund, nil
}

// returnTrialUsage gives spent back to a trial's capacity, never below zero
// usage, and marks the trial RECOVERED once nothing is used.
func returnTrialUsage(tx *gorm.DB, trialId uint, spent decimal.Decimal, now time.Time) (decimal.Decimal, bool, error) {
	var trial models.TrialFund
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&trial, trialId).Error
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("trial fund %d: %w", trialId, err)
	}
	if trial.Status == models.TrialStatusRecovered {
		return decimal.Zero, false, nil
	}

	returned := decimal.Min(spent, trial.UsedAmount)
	used := trial.UsedAmount.Sub(returned)
	columns := map[string]interface{}{"used_amount": used}
	recovered := used.IsZero()
	if recovered {
		columns["status"] = models.TrialStatusRecovered
		columns["recovered_at"] = now
	}
	if err := tx.Model(&trial).UpdateColumns(columns).Error; err != nil {
		return decimal.Zero, false, err
	}
	return returned, recovered, nil
}
