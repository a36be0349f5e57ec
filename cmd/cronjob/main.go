package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"credibridge-backend/internal/bank"
	"credibridge-backend/internal/config"
	"credibridge-backend/internal/jobs"
	"credibridge-backend/internal/ledger"
	"credibridge-backend/internal/logger"
	"credibridge-backend/internal/metrics"
	"credibridge-backend/internal/repository/postgres"
	"credibridge-backend/internal/scheduler"
)

// The cronjob runner audits the persisted ledger against the settlement
// service without serving traffic. It never writes the snapshot back.
func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'balance-drift')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting CrediBridge cronjob runner...", "log_level", cfg.Log.Level)

	if err := checkAuditable(cfg); err != nil {
		log.Fatalf("Cannot audit balances: %v", err)
	}

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store := postgres.NewStore(db)
	if err := store.Ping(context.Background()); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	snap, err := store.Load(context.Background())
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}
	l, err := ledger.Restore(snap)
	if err != nil {
		log.Fatalf("Failed to restore ledger: %v", err)
	}

	bankSvc, err := bank.New(cfg.Bank.Type, bank.NessieConfig{
		BaseURL: cfg.Bank.BaseURL,
		APIKey:  cfg.Bank.APIKey,
		Timeout: cfg.Bank.CallTimeout,
		Breaker: bank.BreakerConfig{
			MaxRequests:         cfg.Breaker.MaxRequests,
			Interval:            cfg.Breaker.Interval,
			Timeout:             cfg.Breaker.Timeout,
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		},
	})
	if err != nil {
		log.Fatalf("Failed to initialize settlement service: %v", err)
	}

	// Initialize Job Runner without a store: this process only reads
	jobRunner := jobs.NewJobRunner(l, nil, bankSvc, metrics.New(), cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// checkAuditable rejects setups the drift audit cannot check. A mock bank only
// holds what was primed from the audited snapshot, so it never drifts.
func checkAuditable(cfg *config.Config) error {
	if cfg.Persistence.Type != "postgres" {
		return fmt.Errorf("the cronjob runner needs postgres persistence, got %q", cfg.Persistence.Type)
	}
	if cfg.Bank.Type != "nessie" {
		return fmt.Errorf("the cronjob runner needs the nessie settlement service, got %q", cfg.Bank.Type)
	}
	return nil
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "balance-drift":
		jobRunner.ReportBalanceDrift()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - balance-drift\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
