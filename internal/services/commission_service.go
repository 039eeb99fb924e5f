package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ledger-service/internal/models"
	"ledger-service/internal/monitoring"
)

// UplineLookup returns the referral edge whose ReferredId is userId, or nil
// when the user has no sponsor.
type UplineLookup func(ctx context.Context, userId uint) (*models.Referral, error)

// CommissionShare is one upline payout produced by WalkUpline.
type CommissionShare struct {
	Referral models.Referral
	Depth    int
	Rate     decimal.Decimal
	Amount   decimal.Decimal
}

// WalkUpline follows referral edges from earner, one rate per level. The walk
// stops at the first missing sponsor or at a user already visited; levels
// that are not reached pay nothing.
func WalkUpline(ctx context.Context, earner uint, base decimal.Decimal, rates []decimal.Decimal, lookup UplineLookup) ([]CommissionShare, error) {
	visited := map[uint]bool{earner: true}
	current := earner
	var shares []CommissionShare

	for i, rate := range rates {
		ref, err := lookup(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("upline of user %d: %w", current, err)
		}
		if ref == nil || visited[ref.ReferrerId] {
			break
		}
		visited[ref.ReferrerId] = true

		shares = append(shares, CommissionShare{
			Referral: *ref,
			Depth:    i + 1,
			Rate:     rate,
			Amount:   RoundMoney(base.Mul(rate)),
		})
		current = ref.ReferrerId
	}
	return shares, nil
}

// ReferralLookup reads sponsor edges through tx.
func ReferralLookup(tx *gorm.DB) UplineLookup {
	return func(ctx context.Context, userId uint) (*models.Referral, error) {
		var ref models.Referral
		err := tx.WithContext(ctx).Where("referred_id = ?", userId).First(&ref).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &ref, nil
	}
}

type CommissionService struct {
	DB     *gorm.DB
	Helper *HelperService
	Rates  []decimal.Decimal
}

func NewCommissionService(db *gorm.DB, helper *HelperService, rates []decimal.Decimal) *CommissionService {
	return &CommissionService{DB: db, Helper: helper, Rates: rates}
}

// PayYieldCommissions distributes a share of a daily reward up the earner's
// sponsor chain inside tx and returns the team bonus notices to send after
// commit.
func (s *CommissionService) PayYieldCommissions(ctx context.Context, tx *gorm.DB, earner uint, reward models.Reward) ([]Notice, error) {
	shares, err := WalkUpline(ctx, earner, reward.Amount, s.Rates, ReferralLookup(tx))
	if err != nil {
		return nil, err
	}

	var notices []Notice
	for _, share := range shares {
		if !share.Amount.IsPositive() {
			continue
		}
		rewardId := reward.ID
		commission := models.Commission{
			ReferralId:   share.Referral.ID,
			UserId:       share.Referral.ReferrerId,
			SourceUserId: earner,
			Amount:       share.Amount,
			Percentage:   share.Rate.Mul(hundred),
			LevelDepth:   share.Depth,
			Source:       models.CommissionSourceYield,
			RewardId:     &rewardId,
			Status:       models.CommissionStatusPaid,
		}
		if err := s.pay(tx, commission, fmt.Sprintf("Level %d team bonus from user %d", share.Depth, earner)); err != nil {
			return nil, err
		}

		notices = append(notices, Notice{
			UserId:  share.Referral.ReferrerId,
			Type:    models.NotificationTeamBonus,
			Title:   "Team bonus received",
			Message: fmt.Sprintf("You earned %s from your level %d team.", share.Amount.StringFixed(2), share.Depth),
		})
	}
	return notices, nil
}

// PaySignupBonus rewards the direct sponsor of a newly registered user.
func (s *CommissionService) PaySignupBonus(tx *gorm.DB, ref models.Referral, bonus decimal.Decimal, points int64) error {
	if bonus.IsPositive() {
		commission := models.Commission{
			ReferralId:   ref.ID,
			UserId:       ref.ReferrerId,
			SourceUserId: ref.ReferredId,
			Amount:       RoundMoney(bonus),
			Percentage:   hundred,
			LevelDepth:   1,
			Source:       models.CommissionSourceSignup,
			Status:       models.CommissionStatusPaid,
		}
		if err := s.pay(tx, commission, fmt.Sprintf("Referral bonus for user %d", ref.ReferredId)); err != nil {
			return err
		}
	}
	return s.Helper.AwardPoints(tx, ref.ReferrerId, points)
}

func (s *CommissionService) pay(tx *gorm.DB, commission models.Commission, description string) error {
	if err := tx.Create(&commission).Error; err != nil {
		return err
	}
	if err := Credit(tx, commission.UserId, commission.Amount); err != nil {
		return err
	}
	if err := s.Helper.SaveTransaction(tx, TransactionData{
		Amount:      commission.Amount,
		Subject:     models.SubjectCommission,
		Description: description,
		ToUserId:    commission.UserId,
	}); err != nil {
		return err
	}

	monitoring.CommissionsTotal.WithLabelValues(monitoring.Depth(commission.LevelDepth), commission.Source).Inc()
	logrus.WithFields(logrus.Fields{
		"user_id":     commission.UserId,
		"source_user": commission.SourceUserId,
		"depth":       commission.LevelDepth,
		"amount":      commission.Amount.StringFixed(2),
	}).Debug("commission paid")
	return nil
}
