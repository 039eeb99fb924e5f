package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	HoldingStatusActive   = "ACTIVE"
	HoldingStatusRefunded = "REFUNDED"
)

// UserProduct is one rental holding. WalletSpend and TrialSpend record how
// the purchase price was funded.
type UserProduct struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId      uint            `gorm:"column:user_id;not null;index:idx_holding_user_status" json:"user_id"`
	ProductId   uint            `gorm:"column:product_id;not null;index" json:"product_id"`
	Product     Product         `gorm:"foreignKey:ProductId" json:"product,omitempty"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(20,2);not null" json:"price"`
	WalletSpend decimal.Decimal `gorm:"column:wallet_spend;type:decimal(20,2);not null;default:0.00" json:"wallet_spend"`
	TrialSpend  decimal.Decimal `gorm:"column:trial_spend;type:decimal(20,2);not null;default:0.00" json:"trial_spend"`
	TrialFundId *uint           `gorm:"column:trial_fund_id;index" json:"trial_fund_id"`
	AcquiredAt  time.Time       `gorm:"column:acquired_at;not null" json:"acquired_at"`
	ExpiresAt   time.Time       `gorm:"column:expires_at;not null;index:idx_holding_status_expires" json:"expires_at"`
	Status      string          `gorm:"column:status;size:20;not null;default:ACTIVE;index:idx_holding_user_status;index:idx_holding_status_expires" json:"status"`
	RefundedAt  *time.Time      `gorm:"column:refunded_at" json:"refunded_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (UserProduct) TableName() string {
	return "user_products"
}
