package workers

import (
	"context"
	"log/slog"

	application "conclave/contexts/governance/council-engine/application"
	"conclave/contexts/governance/council-engine/application/commands"
)

// ExpirySweep force-closes open votes that crossed their deadline. The worker
// process drives it on an interval; the engine owns no timers of its own.
type ExpirySweep struct {
	Ledger commands.LedgerUseCase
	Logger *slog.Logger
}

func (s ExpirySweep) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)

	expired, err := s.Ledger.ExpireOverdue(ctx)
	if err != nil {
		logger.Error("vote expiry sweep failed",
			"event", "governance_expiry_sweep_failed",
			"module", "governance/council-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if expired > 0 {
		logger.Info("vote expiry sweep completed",
			"event", "governance_expiry_sweep_completed",
			"module", "governance/council-engine",
			"layer", "worker",
			"expired_count", expired,
		)
	}
	return nil
}
