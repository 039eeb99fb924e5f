package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DepositStatusPending = "PENDING"
	DepositStatusSuccess = "SUCCESS"
	DepositStatusFailed  = "FAILED"

	// ProviderBonus marks internal credits that do not count toward rank.
	ProviderBonus   = "BONUS"
	ProviderGateway = "GATEWAY"
)

type Deposit struct {
	ID         uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId     uint            `gorm:"column:user_id;not null;index:idx_deposit_user_status" json:"user_id"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Reference  string          `gorm:"column:reference;size:64;not null;uniqueIndex" json:"reference"`
	ExternalId string          `gorm:"column:external_id;size:255" json:"external_id"`
	Provider   string          `gorm:"column:provider;size:30;not null" json:"provider"`
	Status     string          `gorm:"column:status;size:20;not null;default:PENDING;index:idx_deposit_user_status" json:"status"`
	VerifiedAt *time.Time      `gorm:"column:verified_at" json:"verified_at"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Deposit) TableName() string {
	return "deposits"
}
