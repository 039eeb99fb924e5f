package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ledger-service/internal/config"
	"ledger-service/internal/models"
	"ledger-service/pkg/common"
)

type UserService struct {
	DB          *gorm.DB
	Helper      *HelperService
	Commissions *CommissionService
	Trials      *TrialFundService
	Levels      *LevelService
	Notifier    *NotificationService
	Rules       config.Rules
}

func NewUserService(db *gorm.DB, helper *HelperService, commissions *CommissionService, trials *TrialFundService,
	levels *LevelService, notifier *NotificationService, rules config.Rules) *UserService {
	return &UserService{
		DB:          db,
		Helper:      helper,
		Commissions: commissions,
		Trials:      trials,
		Levels:      levels,
		Notifier:    notifier,
		Rules:       rules,
	}
}

type RegisterDTO struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ReferralCode string `json:"referral_code"`
}

func (d *RegisterDTO) Validate() error {
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.TrimSpace(strings.ToLower(d.Email))
	d.ReferralCode = strings.TrimSpace(strings.ToUpper(d.ReferralCode))

	var v ValidationError
	if len(d.Username) < 3 || len(d.Username) > 100 {
		v.Add("username", "must be 3 to 100 characters")
	}
	if d.Email == "" {
		v.Add("email", "is required")
	} else if _, err := mail.ParseAddress(d.Email); err != nil {
		v.Add("email", "is not a valid address")
	}
	return v.Err()
}

type Registration struct {
	User      models.User      `json:"user"`
	Wallet    models.Wallet    `json:"wallet"`
	TrialFund models.TrialFund `json:"trial_fund"`
	SponsorId *uint            `json:"sponsor_id,omitempty"`
}

// Register creates the user with an empty wallet and a trial grant, links
// the sponsor and pays the signup bonus, all in one transaction.
func (s *UserService) Register(ctx context.Context, data RegisterDTO) (*Registration, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}

	var reg Registration
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkUnique(tx, data); err != nil {
			return err
		}

		var sponsor *models.User
		if data.ReferralCode != "" {
			var u models.User
			err := tx.Where("referral_code = ?", data.ReferralCode).First(&u).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				v := &ValidationError{}
				v.Add("referral_code", "unknown referral code")
				return v
			}
			if err != nil {
				return err
			}
			sponsor = &u
		}

		reg.User = models.User{
			Username:     data.Username,
			Email:        data.Email,
			Phone:        data.Phone,
			ReferralCode: common.GenerateReferralCode(),
			Level:        1,
			Status:       models.UserStatusActive,
		}
		if err := tx.Create(&reg.User).Error; err != nil {
			return err
		}

		reg.Wallet = models.Wallet{UserId: reg.User.ID}
		if err := tx.Create(&reg.Wallet).Error; err != nil {
			return err
		}

		if sponsor != nil {
			ref := models.Referral{
				ReferrerId: sponsor.ID,
				ReferredId: reg.User.ID,
				Code:       data.ReferralCode,
			}
			if err := tx.Create(&ref).Error; err != nil {
				return err
			}
			if err := s.Commissions.PaySignupBonus(tx, ref, s.Rules.ReferralBonus, s.Rules.ReferralBonusPoints); err != nil {
				return err
			}
			reg.SponsorId = &sponsor.ID
		}

		window := time.Duration(s.Rules.TrialFundDays) * 24 * time.Hour
		trial, err := s.Trials.Grant(tx, reg.User.ID, s.Rules.TrialFundAmount, window)
		if err != nil {
			return err
		}
		reg.TrialFund = *trial
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logrus.WithField("user_id", reg.User.ID)
	if err := s.Trials.ScheduleRecovery(ctx, &reg.TrialFund); err != nil {
		log.WithError(err).Error("trial recovery scheduling failed")
	}

	if reg.SponsorId != nil {
		s.Helper.InvalidateWallets(ctx, *reg.SponsorId)
		s.Notifier.Notify(ctx, Notice{
			UserId:  *reg.SponsorId,
			Type:    models.NotificationTeamBonus,
			Title:   "New team member",
			Message: fmt.Sprintf("%s joined with your referral code.", reg.User.Username),
		})
		s.Levels.EvaluateUpline(ctx, reg.User.ID)
	}

	log.Info("user registered")
	return &reg, nil
}

func (s *UserService) checkUnique(tx *gorm.DB, data RegisterDTO) error {
	var v ValidationError
	var count int64
	if err := tx.Model(&models.User{}).Where("username = ?", data.Username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		v.Add("username", "already taken")
	}
	if err := tx.Model(&models.User{}).Where("email = ?", data.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		v.Add("email", "already registered")
	}
	return v.Err()
}
