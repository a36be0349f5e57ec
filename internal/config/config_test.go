package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credibridge-backend/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Persistence.Type)
	assert.Equal(t, "mock", cfg.Bank.Type)
	assert.Equal(t, 10*time.Second, cfg.Bank.CallTimeout)
	assert.Equal(t, uint32(5), cfg.Breaker.ConsecutiveFailures)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "0 */5 * * * *", cfg.Scheduler.PersistSnapshot)
	assert.Equal(t, 4, cfg.Scheduler.DriftConcurrency)
	assert.Equal(t, "Chinconyaz", cfg.Seed.FamilyName)

	opening, err := cfg.OpeningBalance()
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(50000), opening)
	assert.Equal(t, ":8080", cfg.GetServerAddress())
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
  shutdown_timeout: 5s
database:
  host: db
  user: ledger
  password: secret
  database: credibridge
persistence:
  type: postgres
bank:
  type: nessie
  base_url: http://api.nessieisreal.com
  api_key: abc
  call_timeout: 3s
  opening_balance: "250.50"
log:
  level: debug
  format: tint
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 3*time.Second, cfg.Bank.CallTimeout)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres://ledger:secret@db:5432/credibridge?sslmode=disable", cfg.GetDatabaseConnectionString())

	opening, err := cfg.OpeningBalance()
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(25050), opening)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
`)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("BANK_TYPE", "nessie")
	t.Setenv("NESSIE_BASE_URL", "http://localhost:1")
	t.Setenv("NESSIE_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "from-env", cfg.Bank.APIKey)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "BadPort", cfg: Config{}},
		{name: "UnknownPersistence", cfg: Config{Server: ServerConfig{Port: 1}, Persistence: PersistenceConfig{Type: "redis"}}},
		{name: "PostgresWithoutHost", cfg: Config{Server: ServerConfig{Port: 1}, Persistence: PersistenceConfig{Type: "postgres"}}},
		{name: "UnknownBank", cfg: Config{Server: ServerConfig{Port: 1}, Bank: BankConfig{Type: "swift"}}},
		{name: "NessieWithoutKey", cfg: Config{Server: ServerConfig{Port: 1}, Bank: BankConfig{Type: "nessie", BaseURL: "http://x"}}},
		{name: "BadOpeningBalance", cfg: Config{Server: ServerConfig{Port: 1}, Bank: BankConfig{OpeningBalance: "1.001"}}},
		{name: "SendGridWithoutOperator", cfg: Config{Server: ServerConfig{Port: 1}, Alerts: AlertsConfig{SendGridAPIKey: "SG.x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
