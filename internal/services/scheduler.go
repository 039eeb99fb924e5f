package services

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	ExpirySchedule        = "0 * * * *"
	DailyRewardSchedule   = "5 0 * * *"
	TrialRecoverySchedule = "*/5 * * * *"
)

// Scheduler drives the periodic sweeps.
type Scheduler struct {
	Expiry  *ExpiryService
	Rewards *RewardService
	Trials  *TrialFundService
	Lock    *JobLock
}

func NewScheduler(expiry *ExpiryService, rewards *RewardService, trials *TrialFundService, lock *JobLock) *Scheduler {
	return &Scheduler{Expiry: expiry, Rewards: rewards, Trials: trials, Lock: lock}
}

// StartScheduler registers the sweeps on a UTC cron and starts it.
func (s *Scheduler) StartScheduler() (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	jobs := []struct {
		spec string
		name string
		run  func()
	}{
		{ExpirySchedule, "expiry", func() { _, _ = s.RunExpiry(context.Background()) }},
		{DailyRewardSchedule, "daily_rewards", func() { _, _ = s.RunDailyRewards(context.Background(), time.Now().UTC()) }},
		{TrialRecoverySchedule, "trial_recovery", func() { _, _ = s.RunTrialRecovery(context.Background()) }},
	}
	for _, job := range jobs {
		if _, err := c.AddFunc(job.spec, func() {
			logrus.WithField("job", job.name).Info("Running scheduled job")
			job.run()
		}); err != nil {
			return nil, err
		}
	}

	c.Start()
	logrus.Info("Scheduler started")
	return c, nil
}

func (s *Scheduler) RunExpiry(ctx context.Context) (ExpirySummary, error) {
	var summary ExpirySummary
	err := s.locked(ctx, "expiry", func() error {
		var err error
		summary, err = s.Expiry.RunExpirySweep(ctx)
		return err
	})
	return summary, err
}

func (s *Scheduler) RunDailyRewards(ctx context.Context, day time.Time) (RewardSummary, error) {
	var summary RewardSummary
	err := s.locked(ctx, "daily_rewards", func() error {
		var err error
		summary, err = s.Rewards.RunDailyRewards(ctx, day)
		return err
	})
	return summary, err
}

func (s *Scheduler) RunTrialRecovery(ctx context.Context) (int, error) {
	var recovered int
	err := s.locked(ctx, "trial_recovery", func() error {
		var err error
		recovered, err = s.Trials.RecoverDue(ctx)
		if err == nil && recovered > 0 {
			logrus.WithFields(logrus.Fields{"job": "trial_recovery", "recovered": recovered}).Info("due trial funds recovered")
		}
		return err
	})
	return recovered, err
}

func (s *Scheduler) locked(ctx context.Context, job string, run func() error) error {
	log := logrus.WithField("job", job)

	release, err := s.Lock.Acquire(ctx, job)
	if errors.Is(err, ErrJobRunning) {
		log.Info("job skipped, another runner holds the lock")
		return err
	}
	if err != nil {
		log.WithError(err).Error("job lock unavailable")
		return err
	}
	defer release()

	if err := run(); err != nil {
		log.WithError(err).Error("job failed")
		return err
	}
	return nil
}
