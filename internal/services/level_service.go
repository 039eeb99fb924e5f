package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ledger-service/internal/models"
)

const uplineDepth = 3

// TeamSize counts referrals at depths 1, 2 and 3 below a user.
type TeamSize struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
}

// SelectLevel returns the highest level reached either by deposits or by
// team size. ok is false when no level qualifies.
func SelectLevel(levels []models.Level, deposits decimal.Decimal, team TeamSize) (int, bool) {
	sorted := make([]models.Level, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level > sorted[j].Level })

	for _, lvl := range sorted {
		byDeposit := deposits.GreaterThanOrEqual(lvl.MinDeposit)
		byTeam := team.A >= lvl.TeamA && team.B >= lvl.TeamB && team.C >= lvl.TeamC
		if byDeposit || byTeam {
			return lvl.Level, true
		}
	}
	return 0, false
}

type LevelService struct {
	DB       *gorm.DB
	Notifier *NotificationService
}

func NewLevelService(db *gorm.DB, notifier *NotificationService) *LevelService {
	return &LevelService{DB: db, Notifier: notifier}
}

// EvaluateUserLevel recomputes and stores the user's level. When nothing
// qualifies the cached level is kept.
func (s *LevelService) EvaluateUserLevel(ctx context.Context, userId uint) (int, error) {
	db := s.DB.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}

	deposits, err := s.PersonalDeposits(ctx, userId)
	if err != nil {
		return 0, err
	}
	team, err := s.TeamSize(ctx, userId)
	if err != nil {
		return 0, err
	}

	var levels []models.Level
	if err := db.Find(&levels).Error; err != nil {
		return 0, err
	}

	level, ok := SelectLevel(levels, deposits, team)
	if !ok || level == user.Level {
		return user.Level, nil
	}

	if err := db.Model(&models.User{}).Where("id = ?", userId).UpdateColumn("level", level).Error; err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{"user_id": userId, "from": user.Level, "to": level}).Info("user level changed")
	s.Notifier.Notify(ctx, Notice{
		UserId:  userId,
		Type:    models.NotificationLevel,
		Title:   "Level updated",
		Message: fmt.Sprintf("Your level is now %d.", level),
	})
	return level, nil
}

// EvaluateUpline re-evaluates up to three sponsors above userId. Failures
// are logged per ancestor.
func (s *LevelService) EvaluateUpline(ctx context.Context, userId uint) {
	lookup := ReferralLookup(s.DB)
	visited := map[uint]bool{userId: true}
	current := userId

	for i := 0; i < uplineDepth; i++ {
		ref, err := lookup(ctx, current)
		if err != nil {
			logrus.WithField("user_id", current).WithError(err).Error("upline lookup failed")
			return
		}
		if ref == nil || visited[ref.ReferrerId] {
			return
		}
		visited[ref.ReferrerId] = true

		if _, err := s.EvaluateUserLevel(ctx, ref.ReferrerId); err != nil {
			logrus.WithField("user_id", ref.ReferrerId).WithError(err).Error("level evaluation failed")
		}
		current = ref.ReferrerId
	}
}

// PersonalDeposits sums successful non-bonus deposits.
func (s *LevelService) PersonalDeposits(ctx context.Context, userId uint) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := s.DB.WithContext(ctx).Model(&models.Deposit{}).
		Where("user_id = ? AND status = ? AND provider <> ?", userId, models.DepositStatusSuccess, models.ProviderBonus).
		Select("SUM(amount)").
		Row().Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (s *LevelService) TeamSize(ctx context.Context, userId uint) (TeamSize, error) {
	db := s.DB.WithContext(ctx)
	var team TeamSize
	tier := []uint{userId}

	for depth := 1; depth <= uplineDepth; depth++ {
		var next []uint
		if len(tier) > 0 {
			if err := db.Model(&models.Referral{}).Where("referrer_id IN ?", tier).Pluck("referred_id", &next).Error; err != nil {
				return TeamSize{}, err
			}
		}
		switch depth {
		case 1:
			team.A = len(next)
		case 2:
			team.B = len(next)
		case 3:
			team.C = len(next)
		}
		tier = next
	}
	return team, nil
}
