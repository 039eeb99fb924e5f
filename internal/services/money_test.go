package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyYieldRounding(t *testing.T) {
	cases := []struct {
		price, income, want string
	}{
		{"100", "10", "10"},
		{"60", "2.5", "1.5"},
		{"33.33", "1.5", "0.5"},   // 0.49995
		{"10.10", "0.05", "0.01"}, // 0.00505
		{"0.99", "0.5", "0"},      // 0.00495
		{"1250", "3.3", "41.25"},
	}
	for _, tc := range cases {
		got := DailyYield(dec(tc.price), dec(tc.income))
		assert.True(t, dec(tc.want).Equal(got), "price %s income %s: want %s got %s", tc.price, tc.income, tc.want, got)
	}
}

func TestFloorPoints(t *testing.T) {
	assert.Equal(t, int64(60), FloorPoints(dec("60.99")))
	assert.Equal(t, int64(0), FloorPoints(dec("0.5")))
	assert.Equal(t, int64(0), FloorPoints(dec("-3")))
}

func TestSplitPrice(t *testing.T) {
	t.Run("wallet only", func(t *testing.T) {
		split, err := SplitPrice(dec("60"), dec("0"), dec("100"))
		require.NoError(t, err)
		assertMoney(t, "0", split.TrialSpend)
		assertMoney(t, "60", split.WalletSpend)
	})

	t.Run("trial covers all", func(t *testing.T) {
		split, err := SplitPrice(dec("60"), dec("200"), dec("100"))
		require.NoError(t, err)
		assertMoney(t, "60", split.TrialSpend)
		assertMoney(t, "0", split.WalletSpend)
	})

	t.Run("trial then wallet", func(t *testing.T) {
		split, err := SplitPrice(dec("60"), dec("20"), dec("40"))
		require.NoError(t, err)
		assertMoney(t, "20", split.TrialSpend)
		assertMoney(t, "40", split.WalletSpend)
		assert.True(t, split.TrialSpend.Add(split.WalletSpend).Equal(dec("60")))
	})

	t.Run("wallet short", func(t *testing.T) {
		_, err := SplitPrice(dec("60"), dec("20"), dec("39.99"))
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	})

	t.Run("non positive price", func(t *testing.T) {
		_, err := SplitPrice(dec("0"), dec("20"), dec("100"))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})
}

func TestWithdrawalFee(t *testing.T) {
	fee, total := WithdrawalFee(dec("100"), dec("0.03"))
	assertMoney(t, "3", fee)
	assertMoney(t, "103", total)

	fee, total = WithdrawalFee(dec("10.50"), dec("0.03"))
	assertMoney(t, "0.32", fee) // 0.315
	assertMoney(t, "10.82", total)
}

func TestValidationError(t *testing.T) {
	var v ValidationError
	assert.NoError(t, v.Err())

	v.Add("username", "too short")
	v.Add("email", "is required")
	err := v.Err()
	require.Error(t, err)
	assert.Equal(t, "validation failed: email: is required; username: too short", err.Error())

	dto := RegisterDTO{Username: "ab", Email: "not-an-email"}
	err = dto.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")
	assert.Contains(t, verr.Fields, "email")

	dto = RegisterDTO{Username: " alice ", Email: "Alice@Example.com ", ReferralCode: " abc "}
	require.NoError(t, dto.Validate())
	assert.Equal(t, "alice", dto.Username)
	assert.Equal(t, "alice@example.com", dto.Email)
	assert.Equal(t, "ABC", dto.ReferralCode)
}
