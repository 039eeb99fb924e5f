package main

import (
	"github.com/sirupsen/logrus"

	"ledger-service/internal/config"
	"ledger-service/internal/database"
	"ledger-service/internal/logging"
)

func main() {
	cfg := config.MustLoad()
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logrus.Fatal(err)
	}

	logrus.Info("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		logrus.Fatal(err)
	}
	if err := database.SeedLevels(db); err != nil {
		logrus.Fatal(err)
	}

	logrus.Info("Migrations completed successfully!")
}
