// Package bank talks to the external settlement service that holds the real
// account balances. The service is an opaque remote ledger: the engine only
// distinguishes success from failure.
package bank

import (
	"context"
	"fmt"

	"credibridge-backend/internal/domain"
)

// Client is the settlement contract used by the coordinator.
type Client interface {
	// GetBalance returns the authoritative balance of an account.
	GetBalance(ctx context.Context, accountRef string) (domain.Money, error)

	// Withdraw takes money out of an account and returns the remote operation id.
	Withdraw(ctx context.Context, accountRef string, amount domain.Money, memo string) (string, error)

	// Deposit puts money into an account and returns the remote operation id.
	Deposit(ctx context.Context, accountRef string, amount domain.Money, memo string) (string, error)

	// Purchase pays a merchant from an account in a single remote call.
	Purchase(ctx context.Context, accountRef, merchantRef string, amount domain.Money, memo string) (string, error)
}

// Provisioner creates remote customers, accounts and merchants.
type Provisioner interface {
	OpenAccount(ctx context.Context, firstName, lastName string, opening domain.Money) (Account, error)
	CreateMerchant(ctx context.Context, name, category, location string) (string, error)
}

// Service is everything the application needs from the settlement service.
type Service interface {
	Client
	Provisioner
}

// Account is a freshly opened remote account.
type Account struct {
	CustomerRef string
	AccountRef  string
	Balance     domain.Money
}

// RemoteServiceError is any failure reported by the settlement service,
// including transport errors (Status 0) and an open circuit breaker.
type RemoteServiceError struct {
	Operation string
	Status    int
	Message   string
}

func (e *RemoteServiceError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("remote %s failed: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("remote %s failed with status %d: %s", e.Operation, e.Status, e.Message)
}

// Remote operation names, used in errors, logs and metrics.
const (
	OpGetBalance     = "get_balance"
	OpWithdraw       = "withdraw"
	OpDeposit        = "deposit"
	OpPurchase       = "purchase"
	OpOpenAccount    = "open_account"
	OpCreateMerchant = "create_merchant"
)
