package database

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"ledger-service/internal/config"
	"ledger-service/internal/models"
)

// Connect opens a gorm handle for the configured driver.
func Connect(cfg config.Database) (*gorm.DB, error) {
	return Open(cfg.Driver, cfg.DSN())
}

func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql", "":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logrus.WithField("driver", driver).Info("Database connection established")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.TrialFund{},
		&models.Product{},
		&models.UserProduct{},
		&models.Referral{},
		&models.Commission{},
		&models.Reward{},
		&models.Level{},
		&models.Deposit{},
		&models.Transaction{},
		&models.Withdrawal{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logrus.Info("Database migration completed")
	return nil
}

// DefaultLevels is the rank table used when the levels table is empty.
func DefaultLevels() []models.Level {
	row := func(level int, minDeposit int64, a, b, c int) models.Level {
		return models.Level{Level: level, Points: minDeposit, MinDeposit: decimal.NewFromInt(minDeposit), TeamA: a, TeamB: b, TeamC: c}
	}
	return []models.Level{
		row(1, 100, 4, 2, 2),
		row(2, 500, 10, 4, 4),
		row(3, 1500, 20, 10, 6),
		row(4, 3000, 30, 15, 7),
		row(5, 4500, 50, 20, 15),
		row(6, 6000, 70, 35, 20),
	}
}

// SeedLevels inserts the default rank table, leaving existing rows alone.
func SeedLevels(db *gorm.DB) error {
	levels := DefaultLevels()
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&levels)
	if res.Error != nil {
		return fmt.Errorf("seed levels: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		logrus.WithField("rows", res.RowsAffected).Info("Seeded level table")
	}
	return nil
}
