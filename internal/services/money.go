package services

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds to cents, half away from zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DailyYield is the reward a holding earns per day; dailyIncome is a percent
// of the price.
func DailyYield(price, dailyIncome decimal.Decimal) decimal.Decimal {
	return RoundMoney(price.Mul(dailyIncome).Div(hundred))
}

// FloorPoints converts a money amount into whole loyalty points.
func FloorPoints(amount decimal.Decimal) int64 {
	if amount.IsNegative() {
		return 0
	}
	return amount.Floor().IntPart()
}

// Split is how a purchase price is funded.
type Split struct {
	TrialSpend  decimal.Decimal
	WalletSpend decimal.Decimal
}

// SplitPrice consumes trial capacity first and takes the rest from the
// wallet balance.
func SplitPrice(price, trialRemaining, balance decimal.Decimal) (Split, error) {
	if !price.IsPositive() {
		return Split{}, ErrInvalidAmount
	}

	trialSpend := decimal.Zero
	if trialRemaining.IsPositive() {
		trialSpend = decimal.Min(price, trialRemaining)
	}
	walletSpend := price.Sub(trialSpend)

	if walletSpend.GreaterThan(balance) {
		return Split{}, ErrInsufficientFunds
	}
	return Split{TrialSpend: trialSpend, WalletSpend: walletSpend}, nil
}
