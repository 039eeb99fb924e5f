package worker

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"ledger-service/internal/consumers"
	"ledger-service/internal/services"
)

// Task Types
const (
	TypeTrialRecover     = "trial:recover"
	TypeDepositConfirmed = services.TypeDepositConfirmed
)

// Task Creators

func NewTrialRecoverTask(payload consumers.TrialRecoverDTO) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTrialRecover, data), nil
}

func NewDepositConfirmedTask(payload services.GatewayCallback) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDepositConfirmed, data), nil
}
