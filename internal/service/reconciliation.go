package service

import (
	"context"

	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/ledger"
	"credibridge-backend/internal/logger"
	"credibridge-backend/internal/metrics"
)

type reconciliationService struct {
	ledger  *ledger.Ledger
	metrics *metrics.Metrics
}

func NewReconciliationService(l *ledger.Ledger, m *metrics.Metrics) ReconciliationService {
	return &reconciliationService{ledger: l, metrics: m}
}

func (s *reconciliationService) ListReconciliations(ctx context.Context, openOnly bool) ([]domain.Reconciliation, error) {
	return s.ledger.Reconciliations(openOnly), nil
}

// CloseReconciliation marks a record as handled once an operator fixed the
// accounts. It does not touch balances or debts.
func (s *reconciliationService) CloseReconciliation(ctx context.Context, id, note string) (*domain.Reconciliation, error) {
	var closed *domain.Reconciliation
	err := s.ledger.Update(func(tx *ledger.Tx) error {
		rec, err := tx.CloseReconciliation(id, note)
		closed = rec
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ReconciliationClosed()
	logger.Info("Reconciliation closed", "channel", "reconciliation", "reconciliationID", id, "note", closed.Note)
	return closed, nil
}
