package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string          `gorm:"column:title;size:255;not null" json:"title"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(20,2);not null" json:"price"`
	DailyIncome decimal.Decimal `gorm:"column:daily_income;type:decimal(10,4);not null" json:"daily_income"` // percent of price per day
	Level       int             `gorm:"column:level;not null;default:1" json:"level"`
	RentalDays  int             `gorm:"column:rental_days;not null" json:"rental_days"`
	SellerId    *uint           `gorm:"column:seller_id;index" json:"seller_id"`
	DeletedAt   *time.Time      `gorm:"column:deleted_at;index" json:"deleted_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
