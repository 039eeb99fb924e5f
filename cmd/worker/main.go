package main

import (
	"github.com/sirupsen/logrus"

	"ledger-service/internal/app"
	"ledger-service/internal/config"
	"ledger-service/internal/consumers"
	"ledger-service/internal/logging"
	"ledger-service/internal/worker"
)

func main() {
	cfg := config.MustLoad()
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	deps, err := app.InitializeDependencies(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer deps.Close()

	// Processor
	processor := consumers.NewLedgerProcessor(deps.Services.Trials, deps.Services.Deposits)

	logrus.Info("Starting Asynq Worker...")
	if err := worker.StartWorker(deps.RedisOpt, processor); err != nil {
		logrus.Fatal(err)
	}
}
