package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"credibridge-backend/internal/jobs"
	"credibridge-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	// Snapshots only make sense with a store behind them
	if s.jobs.HasStore() {
		if _, err := s.cron.AddFunc(cfg.PersistSnapshot, s.jobs.PersistSnapshot); err != nil {
			logger.Error("Failed to register PersistSnapshot job", "error", err)
		}
	}

	if _, err := s.cron.AddFunc(cfg.ReportBalanceDrift, s.jobs.ReportBalanceDrift); err != nil {
		logger.Error("Failed to register ReportBalanceDrift job", "error", err)
	}

	logger.Info("Cron jobs registered", "count", len(s.cron.Entries()))
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// JobCount returns the number of registered jobs
func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}
