package repository

import (
	"context"
	"errors"

	"credibridge-backend/internal/domain"
)

// ErrNoSnapshot is returned by Load when nothing was saved yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotRepository persists the full ledger state. Save replaces whatever
// was stored before; Load returns the last saved state.
type SnapshotRepository interface {
	Save(ctx context.Context, s *domain.Snapshot) error
	Load(ctx context.Context) (*domain.Snapshot, error)
}
