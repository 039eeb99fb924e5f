package models

import (
	"time"
)

const (
	NotificationReward     = "REWARD"
	NotificationTeamBonus  = "TEAM_BONUS"
	NotificationRefund     = "REFUND"
	NotificationTrial      = "TRIAL"
	NotificationLevel      = "LEVEL"
	NotificationDeposit    = "DEPOSIT"
	NotificationWithdrawal = "WITHDRAWAL"
)

type Notification struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId    uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	Type      string    `gorm:"column:type;size:30;not null" json:"type"`
	Title     string    `gorm:"column:title;size:255;not null" json:"title"`
	Message   string    `gorm:"column:message;type:text" json:"message"`
	IsRead    bool      `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
