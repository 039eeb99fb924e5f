package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"ledger-service/internal/consumers"
)

const recoveryQueue = "critical"

// TaskScheduler arms trial recovery as an asynq task due at the trial's
// expiry. The task id is derived from the trial so it can be found again to
// cancel it.
type TaskScheduler struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

func NewTaskScheduler(redisOpt asynq.RedisClientOpt) *TaskScheduler {
	return &TaskScheduler{
		Client:    asynq.NewClient(redisOpt),
		Inspector: asynq.NewInspector(redisOpt),
	}
}

func RecoveryTaskID(trialId uint) string {
	return fmt.Sprintf("trial-recover:%d", trialId)
}

func (s *TaskScheduler) Schedule(ctx context.Context, trialId uint, at time.Time) error {
	task, err := NewTrialRecoverTask(consumers.TrialRecoverDTO{TrialId: trialId})
	if err != nil {
		return err
	}
	_, err = s.Client.EnqueueContext(ctx, task,
		asynq.Queue(recoveryQueue),
		asynq.TaskID(RecoveryTaskID(trialId)),
		asynq.ProcessAt(at),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Cancel removes a pending recovery task. A task that is already running is
// the one doing the recovery and is left alone.
func (s *TaskScheduler) Cancel(ctx context.Context, trialId uint) error {
	id := RecoveryTaskID(trialId)
	info, err := s.Inspector.GetTaskInfo(recoveryQueue, id)
	if isMissing(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.State == asynq.TaskStateActive {
		return nil
	}

	err = s.Inspector.DeleteTask(recoveryQueue, id)
	if isMissing(err) {
		return nil
	}
	return err
}

func isMissing(err error) bool {
	return errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound)
}

func (s *TaskScheduler) Close() error {
	return errors.Join(s.Client.Close(), s.Inspector.Close())
}
