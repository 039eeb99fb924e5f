package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RewardStatusSuccess  = "SUCCESS"
	RewardStatusReversed = "REVERSED"
)

// Reward is a daily yield payment. At most one exists per user, product and
// UTC calendar day.
type Reward struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId        uint            `gorm:"column:user_id;not null;uniqueIndex:uq_reward_user_product_date" json:"user_id"`
	ProductId     uint            `gorm:"column:product_id;not null;uniqueIndex:uq_reward_user_product_date" json:"product_id"`
	Date          time.Time       `gorm:"column:date;type:date;not null;uniqueIndex:uq_reward_user_product_date" json:"date"`
	UserProductId uint            `gorm:"column:user_product_id;not null;index" json:"user_product_id"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	Status        string          `gorm:"column:status;size:20;not null;default:SUCCESS" json:"status"`
	ReversedAt    *time.Time      `gorm:"column:reversed_at" json:"reversed_at"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Reward) TableName() string {
	return "rewards"
}
