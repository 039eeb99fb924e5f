package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TrxCredit = "credit"
	TrxDebit  = "debit"

	SubjectDeposit        = "DEPOSIT"
	SubjectPurchased      = "PURCHASED"
	SubjectWithdraw       = "WITHDRAW"
	SubjectReward         = "REWARD"
	SubjectCommission     = "COMMISSION"
	SubjectRefund         = "REFUND"
	SubjectRewardReversal = "REWARD_REVERSAL"
	SubjectSale           = "SALE"
)

// Transaction is an append-only ledger line describing one balance movement.
type Transaction struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId        uint            `gorm:"column:user_id;not null;index" json:"user_id"`
	TransactionNo string          `gorm:"column:transaction_no;size:64;not null;index" json:"transaction_no"`
	Amount        decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	TrxType       string          `gorm:"column:transaction_type;size:10;not null" json:"transaction_type"`
	Subject       string          `gorm:"column:subject;size:30;not null;index" json:"subject"`
	Description   string          `gorm:"column:description;type:text" json:"description"`
	Balance       decimal.Decimal `gorm:"column:balance;type:decimal(20,2);default:0.00" json:"balance"`
	Status        int             `gorm:"column:status;default:1" json:"status"` // 0: pending, 1: success, 2: failed
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
