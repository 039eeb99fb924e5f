package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CommissionSourceSignup = "SIGNUP_BONUS"
	CommissionSourceYield  = "DAILY_YIELD"

	CommissionStatusPaid = "PAID"
)

type Commission struct {
	ID           uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferralId   uint            `gorm:"column:referral_id;not null;index" json:"referral_id"`
	UserId       uint            `gorm:"column:user_id;not null;index" json:"user_id"` // beneficiary
	SourceUserId uint            `gorm:"column:source_user_id;not null;index" json:"source_user_id"`
	Amount       decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Percentage   decimal.Decimal `gorm:"column:percentage;type:decimal(7,4);not null;default:0" json:"percentage"`
	LevelDepth   int             `gorm:"column:level_depth;not null" json:"level_depth"`
	Source       string          `gorm:"column:source;size:30;not null" json:"source"`
	RewardId     *uint           `gorm:"column:reward_id;index" json:"reward_id"`
	Status       string          `gorm:"column:status;size:20;not null;default:PAID" json:"status"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Commission) TableName() string {
	return "commissions"
}
