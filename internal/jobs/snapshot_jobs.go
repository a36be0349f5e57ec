package jobs

import (
	"context"
	"fmt"
	"time"

	"credibridge-backend/internal/logger"
)

const snapshotTimeout = 30 * time.Second

// PersistSnapshot writes the current ledger state to the store
func (jr *JobRunner) PersistSnapshot() {
	jr.runWithRecovery("PersistSnapshot", func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()

		if err := jr.SaveSnapshot(ctx); err != nil {
			logger.Error("Failed to persist snapshot", "error", err)
		}
	})
}

// SaveSnapshot exports the ledger and saves it. It is also called on shutdown.
func (jr *JobRunner) SaveSnapshot(ctx context.Context) error {
	if jr.store == nil {
		return nil
	}
	snap := jr.ledger.Export()
	if err := jr.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	logger.Info("Snapshot persisted",
		"members", len(snap.Members),
		"transactions", len(snap.Transactions),
		"reconciliations", len(snap.Reconciliations),
	)
	return nil
}
