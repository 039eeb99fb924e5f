package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"ledger-service/internal/app"
	"ledger-service/internal/config"
	"ledger-service/internal/database"
	"ledger-service/internal/handlers"
	"ledger-service/internal/logging"
	"ledger-service/internal/monitoring"
)

func main() {
	cfg := config.MustLoad()
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	deps, err := app.InitializeDependencies(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logrus.WithError(err).Warn("shutdown")
		}
	}()

	if err := database.Migrate(deps.DB); err != nil {
		logrus.Fatal(err)
	}
	if err := database.SeedLevels(deps.DB); err != nil {
		logrus.Fatal(err)
	}

	svc := deps.Services
	h := &handlers.Handler{
		Users:         svc.Users,
		Wallets:       svc.Wallets,
		Purchases:     svc.Purchases,
		Deposits:      svc.Deposits,
		Withdrawals:   svc.Withdrawals,
		Notifications: svc.Notifications,
		Levels:        svc.Levels,
		Scheduler:     svc.Scheduler,
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), monitoring.Middleware())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome To Ledger service",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.RegisterRoutes(r)

	// Start Cron Schedulers
	cronScheduler, err := svc.Scheduler.StartScheduler()
	if err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		logrus.Infof("HTTP Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down")

	<-cronScheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown")
	}
}
