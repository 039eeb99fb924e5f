package common

import (
	"github.com/jaevor/go-nanoid"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	trxNoGenerator    = mustGenerator(12)
	referralGenerator = mustGenerator(8)
)

func mustGenerator(length int) func() string {
	gen, err := nanoid.CustomASCII(codeAlphabet, length)
	if err != nil {
		panic(err)
	}
	return gen
}

// GenerateTrxNo returns a ledger transaction number.
func GenerateTrxNo() string {
	return trxNoGenerator()
}

// GenerateReferralCode returns a short code users hand out to invitees.
func GenerateReferralCode() string {
	return referralGenerator()
}

// Offset converts a 1-based page into a row offset, clamping page and limit
// to sane values.
func Offset(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit, (page - 1) * limit
}
