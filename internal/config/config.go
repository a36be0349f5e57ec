package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"credibridge-backend/internal/domain"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Bank        BankConfig        `yaml:"bank"`
	Breaker     BreakerConfig     `yaml:"breaker"`
	Log         LogConfig         `yaml:"log"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Alerts      AlertsConfig      `yaml:"alerts"`
	Seed        SeedConfig        `yaml:"seed"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// PersistenceConfig selects where ledger snapshots are stored
type PersistenceConfig struct {
	Type string `yaml:"type"` // "memory" or "postgres"
}

// BankConfig contains settlement service settings
type BankConfig struct {
	Type           string        `yaml:"type"` // "mock" or "nessie"
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
	OpeningBalance string        `yaml:"opening_balance"` // decimal, e.g. "500.00"
}

// BreakerConfig contains circuit breaker thresholds for the settlement service
type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "text" or "tint"
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	PersistSnapshot    string `yaml:"persist_snapshot"`
	ReportBalanceDrift string `yaml:"report_balance_drift"`
	DriftConcurrency   int    `yaml:"drift_concurrency"`
}

// AlertsConfig contains operator e-mail settings
type AlertsConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
	OperatorEmail  string `yaml:"operator_email"`
}

// SeedConfig controls loading the demo data set into an empty ledger
type SeedConfig struct {
	Enabled    bool   `yaml:"enabled"`
	FamilyName string `yaml:"family_name"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Persistence
	if val := os.Getenv("PERSISTENCE_TYPE"); val != "" {
		c.Persistence.Type = val
	}

	// Bank
	if val := os.Getenv("BANK_TYPE"); val != "" {
		c.Bank.Type = val
	}
	if val := os.Getenv("NESSIE_BASE_URL"); val != "" {
		c.Bank.BaseURL = val
	}
	if val := os.Getenv("NESSIE_API_KEY"); val != "" {
		c.Bank.APIKey = val
	}

	// Alerts
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Alerts.SendGridAPIKey = val
	}
	if val := os.Getenv("OPERATOR_EMAIL"); val != "" {
		c.Alerts.OperatorEmail = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}

	// Persistence validation
	c.Persistence.Type = strings.ToLower(c.Persistence.Type)
	switch c.Persistence.Type {
	case "":
		c.Persistence.Type = "memory"
	case "memory":
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("unknown persistence type: %s", c.Persistence.Type)
	}

	// Bank validation
	c.Bank.Type = strings.ToLower(c.Bank.Type)
	switch c.Bank.Type {
	case "":
		c.Bank.Type = "mock"
	case "mock":
	case "nessie":
		if c.Bank.BaseURL == "" {
			return fmt.Errorf("bank base url is required for nessie")
		}
		if c.Bank.APIKey == "" {
			return fmt.Errorf("bank api key is required for nessie")
		}
	default:
		return fmt.Errorf("unknown bank type: %s", c.Bank.Type)
	}
	if c.Bank.CallTimeout <= 0 {
		c.Bank.CallTimeout = 10 * time.Second
	}
	if c.Bank.OpeningBalance == "" {
		c.Bank.OpeningBalance = "500.00"
	}
	if _, err := c.OpeningBalance(); err != nil {
		return fmt.Errorf("invalid opening balance: %w", err)
	}

	// Breaker defaults
	if c.Breaker.MaxRequests == 0 {
		c.Breaker.MaxRequests = 1
	}
	if c.Breaker.Interval <= 0 {
		c.Breaker.Interval = time.Minute
	}
	if c.Breaker.Timeout <= 0 {
		c.Breaker.Timeout = 30 * time.Second
	}
	if c.Breaker.ConsecutiveFailures == 0 {
		c.Breaker.ConsecutiveFailures = 5
	}

	// Alerts validation
	if c.Alerts.SendGridAPIKey != "" && c.Alerts.OperatorEmail == "" {
		return fmt.Errorf("operator email is required when sendgrid is configured")
	}
	if c.Alerts.FromEmail == "" {
		c.Alerts.FromEmail = "noreply@credibridge.local"
	}
	if c.Alerts.FromName == "" {
		c.Alerts.FromName = "CrediBridge"
	}

	// Scheduler defaults
	if c.Scheduler.PersistSnapshot == "" {
		c.Scheduler.PersistSnapshot = "0 */5 * * * *" // every 5 minutes
	}
	if c.Scheduler.ReportBalanceDrift == "" {
		c.Scheduler.ReportBalanceDrift = "0 0 * * * *" // hourly
	}
	if c.Scheduler.DriftConcurrency <= 0 {
		c.Scheduler.DriftConcurrency = 4
	}

	// Seed defaults
	if c.Seed.FamilyName == "" {
		c.Seed.FamilyName = "Chinconyaz"
	}

	return nil
}

// OpeningBalance returns the balance given to newly registered members.
func (c *Config) OpeningBalance() (domain.Money, error) {
	return domain.ParseMoney(c.Bank.OpeningBalance)
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
