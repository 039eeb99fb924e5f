package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ledger-service/internal/config"
	"ledger-service/internal/database"
	"ledger-service/internal/publisher"
	"ledger-service/internal/services"
	"ledger-service/internal/worker"
)

const jobLockTTL = 2 * time.Hour

// Dependencies is everything the API and worker processes share.
type Dependencies struct {
	Config    *config.Config
	Rules     config.Rules
	DB        *gorm.DB
	Redis     *redis.Client
	RedisOpt  asynq.RedisClientOpt
	Asynq     *asynq.Client
	Timers    *worker.TaskScheduler
	Publisher *publisher.KafkaPublisher
	Services  *Services
}

type Services struct {
	Helper        *services.HelperService
	Notifications *services.NotificationService
	Commissions   *services.CommissionService
	Trials        *services.TrialFundService
	Levels        *services.LevelService
	Users         *services.UserService
	Wallets       *services.WalletService
	Purchases     *services.PurchaseService
	Expiry        *services.ExpiryService
	Rewards       *services.RewardService
	Deposits      *services.DepositService
	Withdrawals   *services.WithdrawalService
	Scheduler     *services.Scheduler
}

func InitializeDependencies(cfg *config.Config) (*Dependencies, error) {
	rules, err := cfg.Business.Rules()
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Config:   cfg,
		Rules:    rules,
		DB:       db,
		Redis:    redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr}),
		RedisOpt: asynq.RedisClientOpt{Addr: cfg.Redis.Addr},
	}
	deps.Asynq = asynq.NewClient(deps.RedisOpt)
	deps.Timers = worker.NewTaskScheduler(deps.RedisOpt)

	var pub services.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		deps.Publisher = publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
		pub = deps.Publisher
	} else {
		logrus.Info("KAFKA_BROKERS not set, notifications are stored but not published")
	}

	deps.Services = buildServices(deps, pub)
	return deps, nil
}

func buildServices(deps *Dependencies, pub services.Publisher) *Services {
	db := deps.DB
	rules := deps.Rules

	s := &Services{}
	s.Helper = services.NewHelperService(db)
	s.Notifications = services.NewNotificationService(db, pub)
	s.Commissions = services.NewCommissionService(db, s.Helper, rules.CommissionRates)
	s.Trials = services.NewTrialFundService(db, s.Helper, s.Notifications, deps.Timers)
	s.Levels = services.NewLevelService(db, s.Notifications)
	s.Users = services.NewUserService(db, s.Helper, s.Commissions, s.Trials, s.Levels, s.Notifications, rules)
	s.Wallets = services.NewWalletService(db, deps.Redis)
	s.Helper.Wallets = s.Wallets
	s.Purchases = services.NewPurchaseService(db, s.Helper)
	s.Expiry = services.NewExpiryService(db, s.Helper, s.Notifications, s.Trials)
	s.Rewards = services.NewRewardService(db, s.Helper, s.Commissions, s.Notifications)
	s.Deposits = services.NewDepositService(db, s.Helper, s.Levels, s.Notifications, deps.Asynq, rules.GatewaySecret)
	s.Withdrawals = services.NewWithdrawalService(db, s.Helper, s.Notifications, rules.WithdrawFeeRate)
	s.Scheduler = services.NewScheduler(s.Expiry, s.Rewards, s.Trials, services.NewJobLock(deps.Redis, jobLockTTL))
	return s
}

func (d *Dependencies) Close() error {
	var errs []error
	if d.Publisher != nil {
		errs = append(errs, d.Publisher.Close())
	}
	if d.Timers != nil {
		errs = append(errs, d.Timers.Close())
	}
	if d.Asynq != nil {
		errs = append(errs, d.Asynq.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close dependencies: %w", err)
	}
	return nil
}
