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

const rewardBatchSize = 200

type RewardService struct {
	DB          *gorm.DB
	Helper      *HelperService
	Commissions *CommissionService
	Notifier    *NotificationService
}

func NewRewardService(db *gorm.DB, helper *HelperService, commissions *CommissionService, notifier *NotificationService) *RewardService {
	return &RewardService{DB: db, Helper: helper, Commissions: commissions, Notifier: notifier}
}

type RewardSummary struct {
	Day     string `json:"day"`
	Paid    int    `json:"paid"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// RewardDay truncates t to its UTC calendar day.
func RewardDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RunDailyRewards pays one day of yield for every ACTIVE holding of a live
// product. Running it again for the same day pays nothing twice.
func (s *RewardService) RunDailyRewards(ctx context.Context, day time.Time) (RewardSummary, error) {
	day = RewardDay(day)
	summary := RewardSummary{Day: day.Format("2006-01-02")}
	log := logrus.WithFields(logrus.Fields{"job": "daily_rewards", "day": summary.Day})
	defer monitoring.ObserveSweep("daily_rewards", time.Now())

	log.Info("daily reward distribution started")

	var lastId uint
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		var batch []models.UserProduct
		err := s.DB.WithContext(ctx).
			Preload("Product").
			Joins("JOIN products ON products.id = user_products.product_id AND products.deleted_at IS NULL").
			Where("user_products.id > ? AND user_products.status = ?", lastId, models.HoldingStatusActive).
			Where("user_products.acquired_at < ? AND user_products.expires_at > ?", day.AddDate(0, 0, 1), day).
			Order("user_products.id").
			Limit(rewardBatchSize).
			Find(&batch).Error
		if err != nil {
			return summary, fmt.Errorf("load holdings after %d: %w", lastId, err)
		}
		if len(batch) == 0 {
			break
		}

		for _, holding := range batch {
			lastId = holding.ID
			paid, err := s.DistributeHolding(ctx, holding, day)
			switch {
			case err != nil:
				summary.Failed++
				monitoring.RewardsTotal.WithLabelValues("failed").Inc()
				monitoring.SweepFailuresTotal.WithLabelValues("daily_rewards").Inc()
				log.WithFields(logrus.Fields{"user_product_id": holding.ID, "user_id": holding.UserId}).
					WithError(err).Error("reward distribution failed")
			case paid:
				summary.Paid++
				monitoring.RewardsTotal.WithLabelValues("paid").Inc()
			default:
				summary.Skipped++
				monitoring.RewardsTotal.WithLabelValues("skipped").Inc()
			}
		}
	}

	log.WithFields(logrus.Fields{
		"paid":    summary.Paid,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	}).Info("daily reward distribution finished")
	return summary, nil
}

// DistributeHolding pays one holding's yield for day together with its
// upline commissions, in a single transaction. Only holdings still ACTIVE
// and live on that day are paid. The reward goes to the user's live holding
// of the product with the least trial spend. It reports false when nothing
// was paid: the reward for that day exists, no holding qualifies or the
// yield rounds to zero.
func (s *RewardService) DistributeHolding(ctx context.Context, holding models.UserProduct, day time.Time) (bool, error) {
	day = RewardDay(day)

	product := holding.Product
	if product.ID == 0 {
		if err := s.DB.WithContext(ctx).First(&product, holding.ProductId).Error; err != nil {
			return false, err
		}
	}

	var notices []Notice
	paid := false

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := LockWallet(tx, holding.UserId); err != nil {
			return err
		}

		var owner models.UserProduct
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND product_id = ? AND status = ?", holding.UserId, holding.ProductId, models.HoldingStatusActive).
			Where("acquired_at < ? AND expires_at > ?", day.AddDate(0, 0, 1), day).
			Order("trial_spend, id").
			Limit(1).
			Find(&owner).Error; err != nil {
			return err
		}
		if owner.ID == 0 {
			return nil
		}

		amount := DailyYield(owner.Price, product.DailyIncome)
		if !amount.IsPositive() {
			return nil
		}

		reward := models.Reward{
			UserId:        owner.UserId,
			ProductId:     owner.ProductId,
			Date:          day,
			UserProductId: owner.ID,
			Amount:        amount,
			Status:        models.RewardStatusSuccess,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reward)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := Credit(tx, owner.UserId, amount); err != nil {
			return err
		}
		if err := s.Helper.SaveTransaction(tx, TransactionData{
			Amount:      amount,
			Subject:     models.SubjectReward,
			Description: fmt.Sprintf("Daily yield for %s", product.Title),
			ToUserId:    owner.UserId,
		}); err != nil {
			return err
		}
		if err := s.Helper.AwardPoints(tx, owner.UserId, FloorPoints(amount)); err != nil {
			return err
		}

		teamNotices, err := s.Commissions.PayYieldCommissions(ctx, tx, owner.UserId, reward)
		if err != nil {
			return err
		}

		notices = append(teamNotices, Notice{
			UserId:  owner.UserId,
			Type:    models.NotificationReward,
			Title:   "Daily reward earned",
			Message: fmt.Sprintf("You earned %s from %s.", amount.StringFixed(2), product.Title),
		})
		paid = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if !paid {
		return false, nil
	}

	credited := make([]uint, 0, len(notices))
	for _, n := range notices {
		credited = append(credited, n.UserId)
	}
	s.Helper.InvalidateWallets(ctx, credited...)
	s.Notifier.NotifyAll(ctx, notices)
	return true, nil
}

// reverseRewards marks the SUCCESS rewards of the given holdings REVERSED and
// claws their total back from the holder, never below a zero balance. It
// returns the amount actually clawed back.
func reverseRewards(tx *gorm.DB, helper *HelperService, userId uint, holdingIds []uint, at time.Time) (decimal.Decimal, error) {
	if len(holdingIds) == 0 {
		return decimal.Zero, nil
	}

	var rewards []models.Reward
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_product_id IN ? AND status = ?", holdingIds, models.RewardStatusSuccess).
		Find(&rewards).Error; err != nil {
		return decimal.Zero, err
	}
	if len(rewards) == 0 {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	ids := make([]uint, 0, len(rewards))
	for _, r := range rewards {
		total = total.Add(r.Amount)
		ids = append(ids, r.ID)
	}

	if err := tx.Model(&models.Reward{}).Where("id IN ?", ids).
		UpdateColumns(map[string]interface{}{
			"status":      models.RewardStatusReversed,
			"reversed_at": at,
		}).Error; err != nil {
		return decimal.Zero, err
	}

	balance, err := walletBalance(tx, userId)
	if err != nil {
		return decimal.Zero, err
	}
	clawback := decimal.Min(total, balance)
	if !clawback.IsPositive() {
		return decimal.Zero, nil
	}
	if err := Debit(tx, userId, clawback); err != nil {
		return decimal.Zero, err
	}
	err = helper.SaveTransaction(tx, TransactionData{
		Amount:      clawback,
		Subject:     models.SubjectRewardReversal,
		Description: fmt.Sprintf("Reversal of %d trial-funded reward(s)", len(rewards)),
		FromUserId:  userId,
	})
	return clawback, err
}
