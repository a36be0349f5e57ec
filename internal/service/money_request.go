package service

import (
	"context"
	"fmt"
	"strings"

	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/ledger"
	"credibridge-backend/internal/logger"
)

type moneyRequestService struct {
	ledger     *ledger.Ledger
	settlement SettlementService
}

func NewMoneyRequestService(l *ledger.Ledger, settlement SettlementService) MoneyRequestService {
	return &moneyRequestService{ledger: l, settlement: settlement}
}

// CreateRequest asks toID to fund amount for fromID. Both members must be in
// the same family. No money moves until the request is accepted.
func (s *moneyRequestService) CreateRequest(ctx context.Context, fromID, toID string, amount domain.Money, description string) (*domain.MoneyRequest, error) {
	logger.EnterMethod("moneyRequestService.CreateRequest", "fromID", fromID, "toID", toID, "amount", amount.String())

	if err := domain.ValidateAmount(amount); err != nil {
		logger.ExitMethodWithError("moneyRequestService.CreateRequest", err)
		return nil, err
	}
	if fromID == toID {
		err := fmt.Errorf("%w: %s", domain.ErrSelfTransfer, fromID)
		logger.ExitMethodWithError("moneyRequestService.CreateRequest", err)
		return nil, err
	}

	unlock, err := s.ledger.Locks().Lock(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var created *domain.MoneyRequest
	err = s.ledger.Update(func(tx *ledger.Tx) error {
		from, errFrom := tx.Member(fromID)
		to, errTo := tx.Member(toID)
		if errFrom != nil || errTo != nil {
			return fmt.Errorf("%w: %s, %s", domain.ErrMembersNotFound, fromID, toID)
		}
		if from.FamilyID == "" || from.FamilyID != to.FamilyID {
			return fmt.Errorf("%w: %s and %s", domain.ErrCrossFamily, fromID, toID)
		}

		created = &domain.MoneyRequest{
			ID:          tx.NewID(),
			FromID:      fromID,
			ToID:        toID,
			Amount:      amount,
			Status:      domain.RequestStatusPending,
			Description: strings.TrimSpace(description),
			CreatedAt:   tx.Now(),
		}
		return tx.AddRequest(created)
	})
	if err != nil {
		logger.ExitMethodWithError("moneyRequestService.CreateRequest", err, "fromID", fromID, "toID", toID)
		return nil, err
	}

	logger.ExitMethod("moneyRequestService.CreateRequest", "requestID", created.ID)
	return created, nil
}

// ResolveRequest accepts or declines a pending request exactly once. Accepting
// settles it through the settlement service; declining only closes it.
func (s *moneyRequestService) ResolveRequest(ctx context.Context, requestID string, accept bool) (*domain.MoneyRequest, *domain.Transaction, error) {
	logger.EnterMethod("moneyRequestService.ResolveRequest", "requestID", requestID, "accept", accept)

	req, err := s.ledger.Request(requestID)
	if err != nil {
		logger.ExitMethodWithError("moneyRequestService.ResolveRequest", err, "requestID", requestID)
		return nil, nil, err
	}
	if !req.IsPending() {
		err := fmt.Errorf("%w: request %s is %s", domain.ErrAlreadyResolved, requestID, req.Status)
		logger.ExitMethodWithError("moneyRequestService.ResolveRequest", err, "requestID", requestID)
		return nil, nil, err
	}

	if accept {
		resolved, t, err := s.settlement.FulfillRequest(ctx, requestID)
		if err != nil {
			logger.ExitMethodWithError("moneyRequestService.ResolveRequest", err, "requestID", requestID)
			return nil, nil, err
		}
		logger.ExitMethod("moneyRequestService.ResolveRequest", "requestID", requestID, "status", resolved.Status)
		return resolved, t, nil
	}

	unlock, err := s.ledger.Locks().Lock(ctx, req.FromID, req.ToID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	if rec, open := s.ledger.OpenReconciliationFor(requestID); open {
		err := &domain.UnreconciledError{
			ReconciliationID: rec.ID,
			Operation:        rec.Operation,
			Err:              fmt.Errorf("request %s is awaiting manual reconciliation", requestID),
		}
		logger.ExitMethodWithError("moneyRequestService.ResolveRequest", err, "requestID", requestID)
		return nil, nil, err
	}

	if err := s.ledger.Update(func(tx *ledger.Tx) error {
		return tx.FinishRequest(requestID, domain.RequestStatusDeclined)
	}); err != nil {
		logger.ExitMethodWithError("moneyRequestService.ResolveRequest", err, "requestID", requestID)
		return nil, nil, err
	}

	declined, err := s.ledger.Request(requestID)
	if err != nil {
		return nil, nil, err
	}
	logger.ExitMethod("moneyRequestService.ResolveRequest", "requestID", requestID, "status", declined.Status)
	return declined, nil, nil
}

func (s *moneyRequestService) GetRequest(ctx context.Context, requestID string) (*domain.MoneyRequest, error) {
	return s.ledger.Request(requestID)
}
