package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TrialStatusActive    = "ACTIVE"
	TrialStatusRecovered = "RECOVERED"
)

type TrialFund struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId      uint            `gorm:"column:user_id;not null;index" json:"user_id"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	UsedAmount  decimal.Decimal `gorm:"column:used_amount;type:decimal(20,2);not null;default:0.00" json:"used_amount"`
	GrantedAt   time.Time       `gorm:"column:granted_at;not null" json:"granted_at"`
	ExpiresAt   time.Time       `gorm:"column:expires_at;not null;index:idx_trial_status_expires" json:"expires_at"`
	Status      string          `gorm:"column:status;size:20;not null;default:ACTIVE;index:idx_trial_status_expires" json:"status"`
	RecoveredAt *time.Time      `gorm:"column:recovered_at" json:"recovered_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (TrialFund) TableName() string {
	return "trial_funds"
}

// Remaining is the unspent part of the grant.
func (t TrialFund) Remaining() decimal.Decimal {
	r := t.Amount.Sub(t.UsedAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}
