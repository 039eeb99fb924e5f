package consumers

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"ledger-service/internal/services"
)

type LedgerProcessor struct {
	Trials   *services.TrialFundService
	Deposits *services.DepositService
}

func NewLedgerProcessor(trials *services.TrialFundService, deposits *services.DepositService) *LedgerProcessor {
	return &LedgerProcessor{
		Trials:   trials,
		Deposits: deposits,
	}
}

// --- DTOs ---

type TrialRecoverDTO struct {
	TrialId uint `json:"trial_id"`
}

// --- Processors ---

// ProcessTrialRecovery fires when a trial's timer expires. A trial that was
// already recovered is a no-op.
func (p *LedgerProcessor) ProcessTrialRecovery(ctx context.Context, data TrialRecoverDTO) error {
	log := logrus.WithFields(logrus.Fields{"job": "trial_recovery", "trial_id": data.TrialId})

	recovered, err := p.Trials.Recover(ctx, data.TrialId)
	if err != nil {
		return err
	}
	if !recovered {
		log.Debug("trial already recovered, nothing to do")
	}
	return nil
}

// ProcessDepositConfirmed applies a verified gateway callback. Unknown
// references are dropped rather than retried.
func (p *LedgerProcessor) ProcessDepositConfirmed(ctx context.Context, data services.GatewayCallback) error {
	log := logrus.WithFields(logrus.Fields{"job": "deposit_confirmed", "reference": data.Reference})

	applied, err := p.Deposits.Confirm(ctx, data)
	if errors.Is(err, services.ErrNotFound) {
		log.Warn("deposit reference not found")
		return nil
	}
	if err != nil {
		return err
	}
	log.WithField("applied", applied).Info("deposit callback processed")
	return nil
}
