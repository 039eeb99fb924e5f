package models

import (
	"github.com/shopspring/decimal"
)

// Level is one rank threshold. A user qualifies either through personal
// deposits or through team sizes at referral depths 1..3. Points is the
// loyalty threshold that upgrades a user without either path.
type Level struct {
	ID         uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Level      int             `gorm:"column:level;not null;uniqueIndex" json:"level"`
	Points     int64           `gorm:"column:points;not null;default:0" json:"points"`
	MinDeposit decimal.Decimal `gorm:"column:min_deposit;type:decimal(20,2);not null" json:"min_deposit"`
	TeamA      int             `gorm:"column:team_a;not null" json:"team_a"`
	TeamB      int             `gorm:"column:team_b;not null" json:"team_b"`
	TeamC      int             `gorm:"column:team_c;not null" json:"team_c"`
}

func (Level) TableName() string {
	return "levels"
}
