package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ledger-service/internal/models"
)

// Task type shared with the worker; kept here so the worker can import
// services without a cycle.
const TypeDepositConfirmed = "deposit:confirmed"

// GatewayCallback is the payment gateway's signed notification body.
type GatewayCallback struct {
	Reference     string `json:"order_ref"`
	TransactionId string `json:"tx_id"`
	Status        string `json:"status"`
}

type DepositService struct {
	DB       *gorm.DB
	Helper   *HelperService
	Levels   *LevelService
	Notifier *NotificationService
	Client   *asynq.Client
	Secret   string
}

func NewDepositService(db *gorm.DB, helper *HelperService, levels *LevelService, notifier *NotificationService, client *asynq.Client, secret string) *DepositService {
	return &DepositService{
		DB:       db,
		Helper:   helper,
		Levels:   levels,
		Notifier: notifier,
		Client:   client,
		Secret:   secret,
	}
}

// InitDeposit opens a PENDING deposit the gateway will later confirm.
func (s *DepositService) InitDeposit(ctx context.Context, userId uint, amount decimal.Decimal) (*models.Deposit, error) {
	amount = RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var wallets int64
	if err := s.DB.WithContext(ctx).Model(&models.Wallet{}).Where("user_id = ?", userId).Count(&wallets).Error; err != nil {
		return nil, err
	}
	if wallets == 0 {
		return nil, ErrWalletMissing
	}

	deposit := models.Deposit{
		UserId:    userId,
		Amount:    amount,
		Reference: strings.ReplaceAll(uuid.NewString(), "-", ""),
		Provider:  models.ProviderGateway,
		Status:    models.DepositStatusPending,
	}
	if err := s.DB.WithContext(ctx).Create(&deposit).Error; err != nil {
		return nil, err
	}
	return &deposit, nil
}

// VerifySignature checks a hex HMAC-SHA256 of raw under secret.
func VerifySignature(secret string, raw []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// HandleWebhook authenticates a gateway callback and applies it, either
// through the worker queue or inline when no queue is configured.
func (s *DepositService) HandleWebhook(ctx context.Context, raw []byte, signature string) error {
	if !VerifySignature(s.Secret, raw, signature) {
		return ErrInvalidSignature
	}

	var cb GatewayCallback
	if err := json.Unmarshal(raw, &cb); err != nil {
		v := &ValidationError{}
		v.Add("body", "malformed JSON")
		return v
	}
	if cb.Reference == "" {
		v := &ValidationError{}
		v.Add("order_ref", "is required")
		return v
	}

	if s.Client != nil {
		payload, err := json.Marshal(cb)
		if err != nil {
			return err
		}
		task := asynq.NewTask(TypeDepositConfirmed, payload)
		_, err = s.Client.EnqueueContext(ctx, task, asynq.Queue("critical"), asynq.TaskID("deposit:"+cb.Reference))
		if err == nil || errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		logrus.WithField("reference", cb.Reference).WithError(err).Warn("enqueue failed, confirming inline")
	}

	_, err := s.Confirm(ctx, cb)
	return err
}

// Confirm settles a PENDING deposit. A reference that is already settled is
// left untouched and reported as not applied.
func (s *DepositService) Confirm(ctx context.Context, cb GatewayCallback) (bool, error) {
	var deposit models.Deposit
	applied := false

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reference = ?", cb.Reference).
			First(&deposit).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: deposit %s", ErrNotFound, cb.Reference)
		}
		if err != nil {
			return err
		}
		if deposit.Status != models.DepositStatusPending {
			return nil
		}

		if !strings.EqualFold(cb.Status, models.DepositStatusSuccess) {
			deposit.Status = models.DepositStatusFailed
			deposit.ExternalId = cb.TransactionId
			return tx.Model(&deposit).UpdateColumns(map[string]interface{}{
				"status":      deposit.Status,
				"external_id": deposit.ExternalId,
			}).Error
		}

		if _, err := LockWallet(tx, deposit.UserId); err != nil {
			return err
		}
		if err := Credit(tx, deposit.UserId, deposit.Amount); err != nil {
			return err
		}

		now := time.Now().UTC()
		deposit.Status = models.DepositStatusSuccess
		deposit.ExternalId = cb.TransactionId
		deposit.VerifiedAt = &now
		if err := tx.Model(&deposit).UpdateColumns(map[string]interface{}{
			"status":      deposit.Status,
			"external_id": deposit.ExternalId,
			"verified_at": now,
		}).Error; err != nil {
			return err
		}

		if err := s.Helper.SaveTransaction(tx, TransactionData{
			Amount:      deposit.Amount,
			Subject:     models.SubjectDeposit,
			Description: fmt.Sprintf("Deposit %s", deposit.Reference),
			ToUserId:    deposit.UserId,
		}); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	log := logrus.WithFields(logrus.Fields{"user_id": deposit.UserId, "reference": deposit.Reference, "status": deposit.Status})
	if !applied {
		log.Info("deposit callback processed without credit")
		return false, nil
	}
	log.Info("deposit credited")
	s.Helper.InvalidateWallets(ctx, deposit.UserId)

	s.Notifier.Notify(ctx, Notice{
		UserId:  deposit.UserId,
		Type:    models.NotificationDeposit,
		Title:   "Deposit received",
		Message: fmt.Sprintf("%s was added to your wallet.", deposit.Amount.StringFixed(2)),
	})
	if s.Levels != nil {
		if _, err := s.Levels.EvaluateUserLevel(ctx, deposit.UserId); err != nil {
			log.WithError(err).Error("level evaluation after deposit failed")
		}
		s.Levels.EvaluateUpline(ctx, deposit.UserId)
	}
	return true, nil
}

// History lists a user's deposits, newest first.
func (s *DepositService) History(ctx context.Context, userId uint) ([]models.Deposit, error) {
	var deposits []models.Deposit
	err := s.DB.WithContext(ctx).Where("user_id = ?", userId).Order("id desc").Find(&deposits).Error
	return deposits, err
}
