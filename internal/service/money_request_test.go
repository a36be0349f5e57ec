package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"credibridge-backend/internal/bank"
	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/ledger"
	"credibridge-backend/internal/service"
)

func newRequestServices(t *testing.T, ids ...string) (*ledger.Ledger, *MockBankClient, *MockAlertService, service.MoneyRequestService) {
	t.Helper()
	l := newFamilyLedger(t, ids...)
	b := new(MockBankClient)
	alerts := new(MockAlertService)
	settlement := service.NewSettlementService(l, b, alerts, nil, time.Second)
	return l, b, alerts, service.NewMoneyRequestService(l, settlement)
}

func TestMoneyRequestService_CreateRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		l, _, _, svc := newRequestServices(t, "a", "b")

		req, err := svc.CreateRequest(ctx, "a", "b", domain.Cents(5000), " bus fare ")
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusPending, req.Status)
		assert.Equal(t, "bus fare", req.Description)

		funder, err := l.Member("b")
		require.NoError(t, err)
		assert.Equal(t, []string{req.ID}, funder.ActiveRequestIDs)

		family, err := l.Family("fam")
		require.NoError(t, err)
		assert.Equal(t, []string{req.ID}, family.RequestIDs)

		// no money moves on creation
		assert.Equal(t, domain.Cents(50000), balanceOf(t, l, "a"))
		assert.Equal(t, domain.Cents(50000), balanceOf(t, l, "b"))
	})

	tests := []struct {
		name    string
		fromID  string
		toID    string
		amount  domain.Money
		wantErr error
	}{
		{"ZeroAmount", "a", "b", 0, domain.ErrInvalidAmount},
		{"NegativeAmount", "a", "b", domain.Cents(-1), domain.ErrInvalidAmount},
		{"SelfRequest", "a", "a", domain.Cents(100), domain.ErrSelfTransfer},
		{"UnknownRequester", "ghost", "b", domain.Cents(100), domain.ErrMembersNotFound},
		{"UnknownFunder", "a", "ghost", domain.Cents(100), domain.ErrUnknownMember},
		{"OutsideFamily", "a", "loner", domain.Cents(100), domain.ErrCrossFamily},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, _, svc := newRequestServices(t, "a", "b")
			require.NoError(t, l.Update(func(tx *ledger.Tx) error {
				return tx.AddMember(&domain.Member{ID: "loner", AccountRef: "acct-loner"})
			}))

			_, err := svc.CreateRequest(ctx, tt.fromID, tt.toID, tt.amount, "")
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestMoneyRequestService_ResolveRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Accept", func(t *testing.T) {
		l, b, _, svc := newRequestServices(t, "a", "b")
		req, err := svc.CreateRequest(ctx, "a", "b", domain.Cents(5000), "")
		require.NoError(t, err)

		// b funds a
		expectTransfer(b, "acct-b", "acct-a", domain.Cents(50000), domain.Cents(5000))

		resolved, txn, err := svc.ResolveRequest(ctx, req.ID, true)
		require.NoError(t, err)
		b.AssertExpectations(t)

		assert.Equal(t, domain.RequestStatusAccepted, resolved.Status)
		require.NotNil(t, resolved.ResolvedAt)
		assert.Equal(t, domain.TransactionKindRequestFulfilled, txn.Kind)
		assert.Equal(t, "b", txn.FromID)
		assert.Equal(t, "a", txn.ToID)

		assert.Equal(t, domain.Cents(55000), balanceOf(t, l, "a"))
		assert.Equal(t, domain.Cents(45000), balanceOf(t, l, "b"))
		assert.Equal(t, domain.Cents(5000), l.Debts().OwedTo("a", "b"))

		funder, _ := l.Member("b")
		assert.Empty(t, funder.ActiveRequestIDs)

		t.Run("SecondResolveFails", func(t *testing.T) {
			resetMock(&b.Mock)

			_, _, err := svc.ResolveRequest(ctx, req.ID, true)
			assert.True(t, errors.Is(err, domain.ErrAlreadyResolved))
			_, _, err = svc.ResolveRequest(ctx, req.ID, false)
			assert.True(t, errors.Is(err, domain.ErrAlreadyResolved))

			b.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)
			assert.Len(t, l.AllTransactions(), 1)
		})
	})

	t.Run("Decline", func(t *testing.T) {
		l, b, _, svc := newRequestServices(t, "a", "b")
		req, err := svc.CreateRequest(ctx, "a", "b", domain.Cents(5000), "")
		require.NoError(t, err)

		resolved, txn, err := svc.ResolveRequest(ctx, req.ID, false)
		require.NoError(t, err)
		assert.Nil(t, txn)
		assert.Equal(t, domain.RequestStatusDeclined, resolved.Status)

		b.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)
		assert.Equal(t, domain.Cents(50000), balanceOf(t, l, "a"))
		assert.Empty(t, l.AllTransactions())

		family, _ := l.Family("fam")
		assert.Empty(t, family.RequestIDs)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, _, _, svc := newRequestServices(t, "a", "b")

		_, _, err := svc.ResolveRequest(ctx, "missing", true)
		assert.True(t, errors.Is(err, domain.ErrRequestNotFound))
	})

	t.Run("InsufficientFunderBalance", func(t *testing.T) {
		l, b, _, svc := newRequestServices(t, "a", "b")
		req, err := svc.CreateRequest(ctx, "a", "b", domain.Cents(60000), "")
		require.NoError(t, err)

		_, _, err = svc.ResolveRequest(ctx, req.ID, true)
		assert.True(t, errors.Is(err, domain.ErrInsufficientBalance))
		b.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)

		pending, err := l.Request(req.ID)
		require.NoError(t, err)
		assert.True(t, pending.IsPending())
	})

	t.Run("UnreconciledBlocksRetry", func(t *testing.T) {
		l, b, alerts, svc := newRequestServices(t, "a", "b")
		req, err := svc.CreateRequest(ctx, "a", "b", domain.Cents(5000), "")
		require.NoError(t, err)

		b.On("GetBalance", mock.Anything, "acct-b").Return(domain.Cents(50000), nil).Once()
		b.On("Withdraw", mock.Anything, "acct-b", domain.Cents(5000), mock.Anything).Return("wd-1", nil).Once()
		b.On("Deposit", mock.Anything, "acct-a", domain.Cents(5000), mock.Anything).
			Return("", &bank.RemoteServiceError{Operation: bank.OpDeposit, Status: 500}).Once()
		alerts.On("NotifyUnreconciled", mock.Anything, mock.Anything).Return(errors.New("mail down")).Once()

		_, _, err = svc.ResolveRequest(ctx, req.ID, true)
		var unreconciled *domain.UnreconciledError
		require.True(t, errors.As(err, &unreconciled))

		rec, err := l.Reconciliation(unreconciled.ReconciliationID)
		require.NoError(t, err)
		assert.Equal(t, req.ID, rec.RequestID)
		assert.Equal(t, domain.TransactionKindRequestFulfilled, rec.Operation)

		pending, err := l.Request(req.ID)
		require.NoError(t, err)
		assert.True(t, pending.IsPending())

		resetMock(&b.Mock)
		_, _, err = svc.ResolveRequest(ctx, req.ID, true)
		assert.True(t, errors.Is(err, domain.ErrUnreconciledSettlement))
		_, _, err = svc.ResolveRequest(ctx, req.ID, false)
		assert.True(t, errors.Is(err, domain.ErrUnreconciledSettlement))
		b.AssertNotCalled(t, "GetBalance", mock.Anything, mock.Anything)

		// closing the record releases the request
		recs := service.NewReconciliationService(l, nil)
		_, err = recs.CloseReconciliation(ctx, rec.ID, "refunded by hand")
		require.NoError(t, err)

		declined, _, err := svc.ResolveRequest(ctx, req.ID, false)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusDeclined, declined.Status)
	})
}

func TestMoneyRequestService_GetRequest(t *testing.T) {
	ctx := context.Background()
	_, _, _, svc := newRequestServices(t, "a", "b")

	req, err := svc.CreateRequest(ctx, "a", "b", domain.Cents(100), "")
	require.NoError(t, err)

	got, err := svc.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	_, err = svc.GetRequest(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrRequestNotFound))
}
