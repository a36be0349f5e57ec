package jobs

import (
	"credibridge-backend/internal/bank"
	"credibridge-backend/internal/config"
	"credibridge-backend/internal/ledger"
	"credibridge-backend/internal/logger"
	"credibridge-backend/internal/metrics"
	"credibridge-backend/internal/repository"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	ledger  *ledger.Ledger
	store   repository.SnapshotRepository
	bank    bank.Client
	metrics *metrics.Metrics
	config  *config.Config
}

// NewJobRunner creates a new job runner with all dependencies. store may be
// nil when state is kept in memory only.
func NewJobRunner(l *ledger.Ledger, store repository.SnapshotRepository, client bank.Client, m *metrics.Metrics, cfg *config.Config) *JobRunner {
	return &JobRunner{
		ledger:  l,
		store:   store,
		bank:    client,
		metrics: m,
		config:  cfg,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// HasStore reports whether snapshots are persisted
func (jr *JobRunner) HasStore() bool {
	return jr.store != nil
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	if jr.HasStore() {
		jr.PersistSnapshot()
	}
	jr.ReportBalanceDrift()
}
