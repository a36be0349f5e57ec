package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"credibridge-backend/internal/logger"
)

// ReportBalanceDrift compares every cached balance with the remote one. It
// only reports; balances are never corrected automatically.
func (jr *JobRunner) ReportBalanceDrift() {
	jr.runWithRecovery("ReportBalanceDrift", func() {
		drifted, err := jr.CheckBalanceDrift(context.Background())
		if err != nil {
			logger.Error("Balance drift check failed", "error", err)
			return
		}
		logger.Info("Balance drift check finished", "driftedMembers", drifted)
	})
}

// CheckBalanceDrift returns how many members hold a cached balance different
// from the settlement service. Members whose balance could not be fetched are
// logged and skipped.
func (jr *JobRunner) CheckBalanceDrift(ctx context.Context) (int, error) {
	callTimeout := jr.config.Bank.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	limit := jr.config.Scheduler.DriftConcurrency
	if limit <= 0 {
		limit = 1
	}

	var drifted atomic.Int32
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, m := range jr.ledger.Members() {
		if !m.HasAccount() {
			continue
		}
		m := m
		g.Go(func() error {
			// a settlement holding this member may have withdrawn remotely
			// without committing locally yet
			unlock, err := jr.ledger.Locks().Lock(ctx, m.ID)
			if err != nil {
				return err
			}
			defer unlock()

			callCtx, cancel := context.WithTimeout(ctx, callTimeout)
			defer cancel()

			remote, err := jr.bank.GetBalance(callCtx, m.AccountRef)
			if err != nil {
				logger.Warn("Could not fetch remote balance", "memberID", m.ID, "accountRef", m.AccountRef, "error", err)
				return nil
			}
			local, err := jr.ledger.Snapshot(m.ID)
			if err != nil {
				return err
			}
			if local.Balance != remote {
				drifted.Add(1)
				logger.Warn("Balance drift detected",
					"memberID", m.ID,
					"accountRef", m.AccountRef,
					"local", local.Balance.String(),
					"remote", remote.String(),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n := int(drifted.Load())
	jr.metrics.SetDriftedMembers(n)
	jr.metrics.SetOpenReconciliations(len(jr.ledger.Reconciliations(true)))
	return n, nil
}
