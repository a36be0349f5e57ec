package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"credibridge-backend/internal/logger"
	"credibridge-backend/internal/repository"
)

// schema is applied on startup. Money columns hold cents.
const schema = `
CREATE TABLE IF NOT EXISTS families (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	member_ids  TEXT[] NOT NULL DEFAULT '{}',
	request_ids TEXT[] NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
	id                     TEXT PRIMARY KEY,
	first_name             TEXT NOT NULL,
	last_name              TEXT NOT NULL,
	balance_cents          BIGINT NOT NULL CHECK (balance_cents >= 0),
	family_id              TEXT,
	customer_ref           TEXT,
	account_ref            TEXT,
	transaction_ids        TEXT[] NOT NULL DEFAULT '{}',
	shared_transaction_ids TEXT[] NOT NULL DEFAULT '{}',
	active_request_ids     TEXT[] NOT NULL DEFAULT '{}',
	created_at             TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS member_debts (
	borrower_id  TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
	lender_id    TEXT NOT NULL,
	amount_cents BIGINT NOT NULL CHECK (amount_cents > 0),
	PRIMARY KEY (borrower_id, lender_id)
);

CREATE TABLE IF NOT EXISTS transactions (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	from_id         TEXT NOT NULL,
	to_id           TEXT NOT NULL,
	amount_cents    BIGINT NOT NULL,
	from_debt_cents BIGINT NOT NULL,
	to_debt_cents   BIGINT NOT NULL,
	description     TEXT,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS money_requests (
	id           TEXT PRIMARY KEY,
	from_id      TEXT NOT NULL,
	to_id        TEXT NOT NULL,
	amount_cents BIGINT NOT NULL,
	status       TEXT NOT NULL,
	description  TEXT,
	created_at   TIMESTAMPTZ NOT NULL,
	resolved_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS merchants (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	category     TEXT,
	location     TEXT,
	external_ref TEXT,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS reconciliations (
	id                TEXT PRIMARY KEY,
	operation         TEXT NOT NULL,
	funding_id        TEXT NOT NULL,
	receiving_id      TEXT NOT NULL,
	funding_account   TEXT,
	receiving_account TEXT,
	amount_cents      BIGINT NOT NULL,
	withdrawal_id     TEXT,
	request_id        TEXT,
	cause             TEXT,
	created_at        TIMESTAMPTZ NOT NULL,
	closed_at         TIMESTAMPTZ,
	note              TEXT
);
`

type Store struct {
	db *sql.DB
	repository.SnapshotRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                 db,
		SnapshotRepository: NewSnapshotRepository(db),
	}
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info("Database schema applied")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
