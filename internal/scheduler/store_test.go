package scheduler_test

import (
	"context"

	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/repository"
)

type nopStore struct{}

func (nopStore) Save(ctx context.Context, s *domain.Snapshot) error { return nil }

func (nopStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	return nil, repository.ErrNoSnapshot
}
