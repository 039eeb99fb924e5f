package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ledger-service/internal/database"
	"ledger-service/internal/models"
)

// NOTE: These tests require a running MySQL or PostgreSQL instance reachable
// through DATABASE_URL. Without it they are skipped.

var testDB *gorm.DB

func setup() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Println("Skipping DB tests: DATABASE_URL not set")
		return
	}

	driver := "mysql"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		driver = "postgres"
	}

	db, err := database.Open(driver, dsn)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		return
	}
	db.Logger = logger.Default.LogMode(logger.Silent)

	if err := database.Migrate(db); err != nil {
		log.Printf("Failed to migrate: %v", err)
		return
	}
	if err := database.SeedLevels(db); err != nil {
		log.Printf("Failed to seed levels: %v", err)
		return
	}
	testDB = db
}

func cleanup() {
	if testDB == nil {
		return
	}
	for _, table := range []string{
		"notifications", "transactions", "commissions", "rewards", "user_products",
		"trial_funds", "deposits", "withdrawals", "referrals", "products", "wallets", "users",
	} {
		testDB.Exec("DELETE FROM " + table)
	}
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("Database not configured")
	}
	cleanup()
	t.Cleanup(cleanup)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, expected string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(expected).Equal(got), append([]interface{}{"expected %s, got %s", expected, got.String()}, msgAndArgs...)...)
}

var userSeq int

func newUser(t *testing.T, balance string) models.User {
	t.Helper()
	userSeq++
	u := models.User{
		Username:     fmt.Sprintf("user%d", userSeq),
		Email:        fmt.Sprintf("user%d@example.com", userSeq),
		ReferralCode: fmt.Sprintf("REF%05d", userSeq),
		Level:        1,
		Status:       models.UserStatusActive,
	}
	require.NoError(t, testDB.Create(&u).Error)
	require.NoError(t, testDB.Create(&models.Wallet{UserId: u.ID, Balance: dec(balance), Reserved: decimal.Zero}).Error)
	return u
}

func newProduct(t *testing.T, price, dailyIncome string, level, days int) models.Product {
	t.Helper()
	p := models.Product{
		Title:       "Unit " + price,
		Price:       dec(price),
		DailyIncome: dec(dailyIncome),
		Level:       level,
		RentalDays:  days,
	}
	require.NoError(t, testDB.Create(&p).Error)
	return p
}

func refer(t *testing.T, referrer, referred models.User) models.Referral {
	t.Helper()
	r := models.Referral{ReferrerId: referrer.ID, ReferredId: referred.ID, Code: referrer.ReferralCode}
	require.NoError(t, testDB.Create(&r).Error)
	return r
}

func loadWallet(t *testing.T, userId uint) models.Wallet {
	t.Helper()
	var w models.Wallet
	require.NoError(t, testDB.Where("user_id = ?", userId).First(&w).Error)
	return w
}

func loadTrial(t *testing.T, id uint) models.TrialFund {
	t.Helper()
	var tf models.TrialFund
	require.NoError(t, testDB.First(&tf, id).Error)
	return tf
}

func TestWalletOverview(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	u := newUser(t, "75.50")
	require.NoError(t, testDB.Model(&models.Wallet{}).Where("user_id = ?", u.ID).Update("reserved", dec("24.50")).Error)

	svc := NewWalletService(testDB, nil)
	overview, cached, err := svc.Overview(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, cached)
	assertMoney(t, "75.50", overview.Available)
	assertMoney(t, "24.50", overview.Reserved)
	assertMoney(t, "100", overview.Total)
	assertMoney(t, "0", overview.TrialLeft)

	_, _, err = svc.Overview(ctx, u.ID+1000)
	assert.ErrorIs(t, err, ErrWalletMissing)
}

func TestLedgerPrimitives(t *testing.T) {
	requireDB(t)
	u := newUser(t, "50")

	require.NoError(t, Credit(testDB, u.ID, dec("10")))
	require.NoError(t, Reserve(testDB, u.ID, dec("20")))
	require.NoError(t, Debit(testDB, u.ID, dec("60")))
	w := loadWallet(t, u.ID)
	assertMoney(t, "0", w.Balance)
	assertMoney(t, "20", w.Reserved)

	err := Debit(testDB, u.ID, dec("0.01"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	err = Release(testDB, u.ID, dec("20.01"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	require.NoError(t, Release(testDB, u.ID, dec("20")))
	w = loadWallet(t, u.ID)
	assertMoney(t, "20", w.Balance)
	assertMoney(t, "0", w.Reserved)

	assert.ErrorIs(t, Credit(testDB, u.ID+1000, dec("1")), ErrWalletMissing)
	assert.ErrorIs(t, Credit(testDB, u.ID, dec("-1")), ErrInvalidAmount)
	assert.NoError(t, Debit(testDB, u.ID, decimal.Zero))
}

func TestTransactionsPagination(t *testing.T) {
	requireDB(t)
	ctx := context.Background()
	u := newUser(t, "0")
	helper := NewHelperService(testDB)

	for i := 0; i < 3; i++ {
		require.NoError(t, Credit(testDB, u.ID, dec("5")))
		require.NoError(t, helper.SaveTransaction(nil, TransactionData{
			Amount:   dec("5"),
			Subject:  models.SubjectDeposit,
			ToUserId: u.ID,
		}))
	}

	svc := NewWalletService(testDB, nil)
	res, err := svc.Transactions(ctx, u.ID, "", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Count)
	assert.Equal(t, 2, res.LastPage)

	rows := res.Data.([]models.Transaction)
	require.Len(t, rows, 2)
	assert.Equal(t, models.TrxCredit, rows[0].TrxType)
	assertMoney(t, "15", rows[0].Balance)

	res, err = svc.Transactions(ctx, u.ID, models.SubjectReward, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Count)
}

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	os.Exit(code)
}

func TestInvalidateWalletsWithoutCache(t *testing.T) {
	ctx := context.Background()

	var nilHelper *HelperService
	assert.NotPanics(t, func() { nilHelper.InvalidateWallets(ctx, 1) })
	assert.NotPanics(t, func() { NewHelperService(nil).InvalidateWallets(ctx, 1) })

	cache := &recordingCache{}
	helper := &HelperService{Wallets: cache}
	helper.InvalidateWallets(ctx)
	assert.Empty(t, cache.ids)

	helper.InvalidateWallets(ctx, 4, 7)
	assert.Equal(t, []uint{4, 7}, cache.ids)
}
