package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WithdrawalStatusPending  = "PENDING"
	WithdrawalStatusApproved = "APPROVED"
	WithdrawalStatusRejected = "REJECTED"
)

type Withdrawal struct {
	ID         uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId     uint            `gorm:"column:user_id;not null;index:idx_withdrawal_user" json:"user_id"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Fee        decimal.Decimal `gorm:"column:fee;type:decimal(20,2);not null;default:0.00" json:"fee"`
	Total      decimal.Decimal `gorm:"column:total;type:decimal(20,2);not null" json:"total"`
	Address    string          `gorm:"column:address;size:255" json:"address"`
	Comment    string          `gorm:"column:comment;type:text" json:"comment"`
	ExternalId string          `gorm:"column:external_id;size:255" json:"external_id"`
	Status     string          `gorm:"column:status;size:20;not null;default:PENDING" json:"status"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}
