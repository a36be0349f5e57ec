package bank

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credibridge-backend/internal/domain"
)

func TestMockBank_Transfers(t *testing.T) {
	ctx := context.Background()
	b := NewMockBank()

	a, err := b.OpenAccount(ctx, "A", "One", domain.Cents(50000))
	require.NoError(t, err)
	c, err := b.OpenAccount(ctx, "C", "Two", domain.Cents(50000))
	require.NoError(t, err)

	_, err = b.Withdraw(ctx, a.AccountRef, domain.Cents(20000), "loan")
	require.NoError(t, err)
	_, err = b.Deposit(ctx, c.AccountRef, domain.Cents(20000), "loan")
	require.NoError(t, err)

	balance, err := b.GetBalance(ctx, a.AccountRef)
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(30000), balance)
	assert.Equal(t, domain.Cents(70000), b.Balance(c.AccountRef))

	t.Run("InsufficientFunds", func(t *testing.T) {
		_, err := b.Withdraw(ctx, a.AccountRef, domain.Cents(30001), "")
		var remote *RemoteServiceError
		require.True(t, errors.As(err, &remote))
		assert.Equal(t, domain.Cents(30000), b.Balance(a.AccountRef))
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		_, err := b.GetBalance(ctx, "nope")
		assert.Error(t, err)
	})
}

func TestMockBank_FailNext(t *testing.T) {
	ctx := context.Background()
	b := NewMockBank()
	b.SetBalance("acct-1", domain.Cents(1000))

	b.FailNext(OpDeposit, "acct-1", 1)

	_, err := b.Deposit(ctx, "acct-1", domain.Cents(100), "")
	require.Error(t, err)
	assert.Equal(t, domain.Cents(1000), b.Balance("acct-1"))

	_, err = b.Deposit(ctx, "acct-1", domain.Cents(100), "")
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(1100), b.Balance("acct-1"))

	assert.Equal(t, []string{"deposit:acct-1", "deposit:acct-1"}, b.Calls())
}

func TestMockBank_Purchase(t *testing.T) {
	ctx := context.Background()
	b := NewMockBank()
	b.SetBalance("acct-1", domain.Cents(1000))

	_, err := b.Purchase(ctx, "acct-1", "unknown", domain.Cents(100), "")
	require.Error(t, err)

	ref, err := b.CreateMerchant(ctx, "Walmart", "Grocery", "College Station, TX")
	require.NoError(t, err)

	_, err = b.Purchase(ctx, "acct-1", ref, domain.Cents(400), "")
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(600), b.Balance("acct-1"))
}
