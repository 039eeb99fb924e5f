package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"ledger-service/internal/consumers"
	"ledger-service/internal/services"
)

type Worker struct {
	Processor *consumers.LedgerProcessor
}

func NewWorker(processor *consumers.LedgerProcessor) *Worker {
	return &Worker{
		Processor: processor,
	}
}

func (w *Worker) HandleTrialRecover(ctx context.Context, t *asynq.Task) error {
	var p consumers.TrialRecoverDTO
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	return w.Processor.ProcessTrialRecovery(ctx, p)
}

func (w *Worker) HandleDepositConfirmed(ctx context.Context, t *asynq.Task) error {
	var p services.GatewayCallback
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	return w.Processor.ProcessDepositConfirmed(ctx, p)
}

// NewServeMux routes every task type to its handler.
func (w *Worker) NewServeMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeTrialRecover, w.HandleTrialRecover)
	mux.HandleFunc(TypeDepositConfirmed, w.HandleDepositConfirmed)
	return mux
}

func StartWorker(redisOpt asynq.RedisClientOpt, processor *consumers.LedgerProcessor) error {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger: logrus.StandardLogger(),
		},
	)

	worker := NewWorker(processor)
	if err := srv.Run(worker.NewServeMux()); err != nil {
		return fmt.Errorf("could not run worker: %w", err)
	}
	return nil
}
