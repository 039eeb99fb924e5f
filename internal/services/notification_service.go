package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ledger-service/internal/models"
	"ledger-service/pkg/common"
)

// Publisher pushes a notification event to the delivery transport.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Notice is a notification waiting to be dispatched once its transaction has
// committed.
type Notice struct {
	UserId  uint
	Type    string
	Title   string
	Message string
}

type NotificationEvent struct {
	ID        uint      `json:"id"`
	UserId    uint      `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationService struct {
	DB        *gorm.DB
	Publisher Publisher
}

func NewNotificationService(db *gorm.DB, publisher Publisher) *NotificationService {
	return &NotificationService{DB: db, Publisher: publisher}
}

// Notify stores the notification and publishes it. Failures are logged and
// never reach the caller.
func (s *NotificationService) Notify(ctx context.Context, n Notice) {
	if s == nil {
		return
	}
	log := logrus.WithFields(logrus.Fields{"user_id": n.UserId, "type": n.Type})

	row := models.Notification{
		UserId:  n.UserId,
		Type:    n.Type,
		Title:   n.Title,
		Message: n.Message,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		log.WithError(err).Error("failed to store notification")
		return
	}

	if s.Publisher == nil {
		return
	}
	payload, err := json.Marshal(NotificationEvent{
		ID:        row.ID,
		UserId:    row.UserId,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		CreatedAt: row.CreatedAt,
	})
	if err != nil {
		log.WithError(err).Error("failed to encode notification")
		return
	}
	if err := s.Publisher.Publish(ctx, strconv.FormatUint(uint64(n.UserId), 10), payload); err != nil {
		log.WithError(err).Warn("failed to publish notification")
	}
}

func (s *NotificationService) NotifyAll(ctx context.Context, notices []Notice) {
	for _, n := range notices {
		s.Notify(ctx, n)
	}
}

func (s *NotificationService) List(ctx context.Context, userId uint, page, limit int) (common.PaginationResult, error) {
	page, limit, offset := common.Offset(page, limit)

	var total int64
	q := s.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userId)
	if err := q.Count(&total).Error; err != nil {
		return common.PaginationResult{}, err
	}

	var rows []models.Notification
	err := s.DB.WithContext(ctx).Where("user_id = ?", userId).
		Order("id desc").Offset(offset).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return common.PaginationResult{}, err
	}
	return common.PaginateResponse(rows, total, page, limit, "Notifications fetched"), nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userId, id uint) error {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userId).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n models.Notification
		err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userId).First(&n).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
