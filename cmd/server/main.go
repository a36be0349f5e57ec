package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	httpapi "credibridge-backend/internal/api/http"
	"credibridge-backend/internal/bank"
	"credibridge-backend/internal/config"
	"credibridge-backend/internal/jobs"
	"credibridge-backend/internal/ledger"
	"credibridge-backend/internal/logger"
	"credibridge-backend/internal/metrics"
	"credibridge-backend/internal/repository"
	"credibridge-backend/internal/repository/postgres"
	"credibridge-backend/internal/scheduler"
	"credibridge-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting CrediBridge ledger...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Settlement configuration", "bank", cfg.Bank.Type, "persistence", cfg.Persistence.Type, "call_timeout", cfg.Bank.CallTimeout)

	openingBalance, err := cfg.OpeningBalance()
	if err != nil {
		log.Fatalf("Invalid opening balance: %v", err)
	}

	// Initialize settlement service
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
		logger.Error("Failed to initialize settlement service", "error", err)
		log.Fatalf("Failed to initialize settlement service: %v", err)
	}

	// Initialize persistence
	var store repository.SnapshotRepository
	if cfg.Persistence.Type == "postgres" {
		logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		pg := postgres.NewStore(db)
		if err := pg.Ping(context.Background()); err != nil {
			logger.Error("Failed to ping database", "error", err)
			log.Fatalf("Failed to ping database: %v", err)
		}
		if err := pg.Migrate(context.Background()); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		logger.Info("Database connection established")
		store = pg
	} else {
		logger.Warn("Persistence disabled, state is lost on restart")
	}

	// Restore the ledger
	l, restored, err := restoreLedger(context.Background(), store, bankSvc)
	if err != nil {
		log.Fatalf("Failed to restore ledger: %v", err)
	}

	m := metrics.New()
	m.SetOpenReconciliations(len(l.Reconciliations(true)))

	// Initialize alerting
	var alertSvc service.AlertService
	if cfg.Alerts.SendGridAPIKey != "" {
		logger.Info("Reconciliation alerts via SendGrid", "operator", cfg.Alerts.OperatorEmail)
		alertSvc = service.NewSendGridAlertService(cfg.Alerts.SendGridAPIKey, cfg.Alerts.FromEmail, cfg.Alerts.FromName, cfg.Alerts.OperatorEmail)
	} else {
		alertSvc = service.NewLogAlertService()
	}

	// Initialize Services
	settlementSvc := service.NewSettlementService(l, bankSvc, alertSvc, m, cfg.Bank.CallTimeout)
	services := &service.Services{
		Settlement:     settlementSvc,
		MoneyRequest:   service.NewMoneyRequestService(l, settlementSvc),
		Member:         service.NewMemberService(l, bankSvc, openingBalance),
		Family:         service.NewFamilyService(l),
		Merchant:       service.NewMerchantService(l, bankSvc),
		Reconciliation: service.NewReconciliationService(l, m),
	}

	if !restored && cfg.Seed.Enabled {
		if err := service.Seed(context.Background(), services, cfg.Seed.FamilyName); err != nil {
			logger.Error("Failed to seed demo data", "error", err)
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	// Initialize Job Runner and Scheduler
	jobRunner := jobs.NewJobRunner(l, store, bankSvc, m, cfg)
	cronScheduler := scheduler.NewScheduler(jobRunner)
	cronScheduler.Start()

	// Set up HTTP server
	server := &http.Server{
		Addr:    cfg.GetServerAddress(),
		Handler: httpapi.NewRouter(services, m),
	}
	go func() {
		logger.Info("HTTP server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown: stop accepting work, let settlements finish, then persist
	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	cronScheduler.Stop()
	if err := jobRunner.SaveSnapshot(ctx); err != nil {
		logger.Error("Failed to persist final snapshot", "error", err)
	}
	logger.Info("Shutdown complete. Goodbye!")
}

// restoreLedger loads the last snapshot when a store is configured. The
// second result reports whether any state was found.
func restoreLedger(ctx context.Context, store repository.SnapshotRepository, bankSvc bank.Service) (*ledger.Ledger, bool, error) {
	if store == nil {
		return ledger.New(), false, nil
	}

	snap, err := store.Load(ctx)
	if errors.Is(err, repository.ErrNoSnapshot) {
		logger.Info("No stored snapshot, starting empty")
		return ledger.New(), false, nil
	}
	if err != nil {
		return nil, false, err
	}

	l, err := ledger.Restore(snap)
	if err != nil {
		return nil, false, err
	}
	if mock, ok := bankSvc.(*bank.MockBank); ok {
		mock.Prime(snap)
	}
	logger.Info("Ledger restored",
		"members", len(snap.Members),
		"transactions", len(snap.Transactions),
		"open_reconciliations", len(l.Reconciliations(true)),
	)
	return l, true, nil
}
