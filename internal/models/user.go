package models

import (
	"time"
)

const (
	UserStatusActive   = "ACTIVE"
	UserStatusDisabled = "DISABLED"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"column:username;size:100;not null;uniqueIndex" json:"username"`
	Email        string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	Phone        string    `gorm:"column:phone;size:50" json:"phone"`
	ReferralCode string    `gorm:"column:referral_code;size:20;not null;uniqueIndex" json:"referral_code"`
	Level        int       `gorm:"column:level;not null;default:1" json:"level"`
	Points       int64     `gorm:"column:points;not null;default:0" json:"points"`
	Status       string    `gorm:"column:status;size:20;not null;default:ACTIVE" json:"status"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
