package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"credibridge-backend/internal/bank"
	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/ledger"
)

// MockBankClient
type MockBankClient struct {
	mock.Mock
}

func (m *MockBankClient) GetBalance(ctx context.Context, accountRef string) (domain.Money, error) {
	args := m.Called(ctx, accountRef)
	return args.Get(0).(domain.Money), args.Error(1)
}

func (m *MockBankClient) Withdraw(ctx context.Context, accountRef string, amount domain.Money, memo string) (string, error) {
	args := m.Called(ctx, accountRef, amount, memo)
	return args.String(0), args.Error(1)
}

func (m *MockBankClient) Deposit(ctx context.Context, accountRef string, amount domain.Money, memo string) (string, error) {
	args := m.Called(ctx, accountRef, amount, memo)
	return args.String(0), args.Error(1)
}

func (m *MockBankClient) Purchase(ctx context.Context, accountRef, merchantRef string, amount domain.Money, memo string) (string, error) {
	args := m.Called(ctx, accountRef, merchantRef, amount, memo)
	return args.String(0), args.Error(1)
}

func (m *MockBankClient) OpenAccount(ctx context.Context, firstName, lastName string, opening domain.Money) (bank.Account, error) {
	args := m.Called(ctx, firstName, lastName, opening)
	return args.Get(0).(bank.Account), args.Error(1)
}

func (m *MockBankClient) CreateMerchant(ctx context.Context, name, category, location string) (string, error) {
	args := m.Called(ctx, name, category, location)
	return args.String(0), args.Error(1)
}

// MockAlertService
type MockAlertService struct {
	mock.Mock
}

func (m *MockAlertService) NotifyUnreconciled(ctx context.Context, rec *domain.Reconciliation) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// newFamilyLedger returns a ledger holding one family "fam" with the given
// members, each with 500.00 and an account "acct-<id>", plus a merchant "shop".
func newFamilyLedger(t *testing.T, memberIDs ...string) *ledger.Ledger {
	t.Helper()

	l := ledger.New()
	err := l.Update(func(tx *ledger.Tx) error {
		if err := tx.AddFamily(&domain.Family{ID: "fam", Name: "Test Family", CreatedAt: tx.Now()}); err != nil {
			return err
		}
		for _, id := range memberIDs {
			m := &domain.Member{
				ID:         id,
				FirstName:  id,
				LastName:   "Test",
				Balance:    domain.Cents(50000),
				AccountRef: "acct-" + id,
				CreatedAt:  tx.Now(),
			}
			if err := tx.AddMember(m); err != nil {
				return err
			}
			if err := tx.JoinFamily("fam", id); err != nil {
				return err
			}
		}
		return tx.AddMerchant(&domain.Merchant{ID: "shop", Name: "Walmart", ExternalRef: "merch-shop", CreatedAt: tx.Now()})
	})
	require.NoError(t, err)
	return l
}

func balanceOf(t *testing.T, l *ledger.Ledger, id string) domain.Money {
	t.Helper()
	snap, err := l.Snapshot(id)
	require.NoError(t, err)
	return snap.Balance
}

func resetMock(m *mock.Mock) {
	m.ExpectedCalls = nil
	m.Calls = nil
}
