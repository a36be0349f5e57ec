package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"credibridge-backend/internal/bank"
	"credibridge-backend/internal/config"
	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/jobs"
	"credibridge-backend/internal/ledger"
	"credibridge-backend/internal/metrics"
)

type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Save(ctx context.Context, s *domain.Snapshot) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSnapshotRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func seededLedger(t *testing.T, balances map[string]domain.Money) *ledger.Ledger {
	t.Helper()
	l := ledger.New()
	require.NoError(t, l.Update(func(tx *ledger.Tx) error {
		for id, balance := range balances {
			if err := tx.AddMember(&domain.Member{ID: id, Balance: balance, AccountRef: "acct-" + id}); err != nil {
				return err
			}
		}
		return tx.AddMember(&domain.Member{ID: "no-account", Balance: domain.Cents(100)})
	}))
	return l
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Scheduler.DriftConcurrency = 2
	return cfg
}

func TestJobRunner_SaveSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		l := seededLedger(t, map[string]domain.Money{"a": domain.Cents(100)})
		store := new(MockSnapshotRepository)
		runner := jobs.NewJobRunner(l, store, bank.NewMockBank(), nil, testConfig())

		store.On("Save", mock.Anything, mock.MatchedBy(func(s *domain.Snapshot) bool {
			return len(s.Members) == 2
		})).Return(nil).Once()

		assert.NoError(t, runner.SaveSnapshot(ctx))
		store.AssertExpectations(t)
	})

	t.Run("StoreError", func(t *testing.T) {
		store := new(MockSnapshotRepository)
		runner := jobs.NewJobRunner(ledger.New(), store, bank.NewMockBank(), nil, testConfig())

		store.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection reset")).Twice()

		assert.Error(t, runner.SaveSnapshot(ctx))
		// the cron entry point only logs
		runner.PersistSnapshot()
		store.AssertExpectations(t)
	})

	t.Run("NoStore", func(t *testing.T) {
		runner := jobs.NewJobRunner(ledger.New(), nil, bank.NewMockBank(), nil, testConfig())
		assert.False(t, runner.HasStore())
		assert.NoError(t, runner.SaveSnapshot(ctx))
	})
}

func TestJobRunner_CheckBalanceDrift(t *testing.T) {
	ctx := context.Background()

	l := seededLedger(t, map[string]domain.Money{
		"a": domain.Cents(50000),
		"b": domain.Cents(50000),
		"c": domain.Cents(50000),
	})
	mb := bank.NewMockBank()
	mb.SetBalance("acct-a", domain.Cents(50000))
	mb.SetBalance("acct-b", domain.Cents(49000))
	mb.SetBalance("acct-c", domain.Cents(50000))
	mb.FailNext(bank.OpGetBalance, "acct-c", 1)

	m := metrics.New()
	runner := jobs.NewJobRunner(l, nil, mb, m, testConfig())

	drifted, err := runner.CheckBalanceDrift(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, drifted)

	// read-only: the cached balance is not corrected
	snap, err := l.Snapshot("b")
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(50000), snap.Balance)

	calls := mb.Calls()
	assert.Len(t, calls, 3)
	assert.NotContains(t, calls, bank.OpGetBalance+":")

	// ReportBalanceDrift is the cron entry point around the same check
	runner.ReportBalanceDrift()
	assert.Len(t, mb.Calls(), 6)
}

func TestJobRunner_CheckBalanceDrift_WaitsForSettlement(t *testing.T) {
	ctx := context.Background()

	l := seededLedger(t, map[string]domain.Money{"a": domain.Cents(50000)})
	mb := bank.NewMockBank()
	mb.SetBalance("acct-a", domain.Cents(50000))
	runner := jobs.NewJobRunner(l, nil, mb, metrics.New(), testConfig())

	// a settlement in flight: money has left remotely, the ledger is not updated yet
	unlock, err := l.Locks().Lock(ctx, "a")
	require.NoError(t, err)
	_, err = mb.Withdraw(ctx, "acct-a", domain.Cents(2000), "loan")
	require.NoError(t, err)

	type result struct {
		drifted int
		err     error
	}
	done := make(chan result, 1)
	go func() {
		n, err := runner.CheckBalanceDrift(ctx)
		done <- result{n, err}
	}()

	select {
	case <-done:
		t.Fatal("drift check finished while the member was locked")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, l.Debit("a", domain.Cents(2000)))
	unlock()

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, 0, res.drifted)
	case <-time.After(2 * time.Second):
		t.Fatal("drift check did not finish")
	}
}
