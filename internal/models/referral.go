package models

import (
	"time"
)

// Referral links a referred user to the user whose code they signed up with.
// A user has at most one referrer.
type Referral struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferrerId uint      `gorm:"column:referrer_id;not null;index" json:"referrer_id"`
	ReferredId uint      `gorm:"column:referred_id;not null;uniqueIndex" json:"referred_id"`
	Code       string    `gorm:"column:code;size:20;not null" json:"code"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Referral) TableName() string {
	return "referrals"
}
