package bank

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"credibridge-backend/internal/domain"
)

// MockBank is an in-memory settlement service for local development and
// tests. It behaves like the real one for balances and can be told to fail
// specific calls.
type MockBank struct {
	mu        sync.Mutex
	accounts  map[string]domain.Money
	merchants map[string]string
	failures  map[string]int // operation|accountRef -> remaining forced failures
	calls     []string
}

// NewMockBank creates an empty mock bank
func NewMockBank() *MockBank {
	return &MockBank{
		accounts:  make(map[string]domain.Money),
		merchants: make(map[string]string),
		failures:  make(map[string]int),
	}
}

// SetBalance creates or overwrites an account.
func (b *MockBank) SetBalance(accountRef string, balance domain.Money) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[accountRef] = balance
}

// Balance returns the current balance of an account without recording a call.
func (b *MockBank) Balance(accountRef string) domain.Money {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[accountRef]
}

// FailNext makes the next n calls of operation on accountRef return a
// RemoteServiceError. An empty accountRef matches every account.
func (b *MockBank) FailNext(operation, accountRef string, n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[operation+"|"+accountRef] += n
}

// Calls lists every operation performed, in order, as "operation:accountRef".
func (b *MockBank) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	copy(out, b.calls)
	return out
}

func (b *MockBank) begin(ctx context.Context, operation, accountRef string) error {
	b.calls = append(b.calls, operation+":"+accountRef)
	if err := ctx.Err(); err != nil {
		return &RemoteServiceError{Operation: operation, Message: err.Error()}
	}
	for _, key := range []string{operation + "|" + accountRef, operation + "|"} {
		if b.failures[key] > 0 {
			b.failures[key]--
			return &RemoteServiceError{Operation: operation, Status: http.StatusServiceUnavailable, Message: "injected failure"}
		}
	}
	return nil
}

func (b *MockBank) account(operation, accountRef string) (domain.Money, error) {
	balance, ok := b.accounts[accountRef]
	if !ok {
		return 0, &RemoteServiceError{Operation: operation, Status: http.StatusNotFound, Message: fmt.Sprintf("account %s not found", accountRef)}
	}
	return balance, nil
}

func (b *MockBank) GetBalance(ctx context.Context, accountRef string) (domain.Money, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.begin(ctx, OpGetBalance, accountRef); err != nil {
		return 0, err
	}
	return b.account(OpGetBalance, accountRef)
}

func (b *MockBank) Withdraw(ctx context.Context, accountRef string, amount domain.Money, memo string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.begin(ctx, OpWithdraw, accountRef); err != nil {
		return "", err
	}
	return b.debit(OpWithdraw, accountRef, amount)
}

func (b *MockBank) Deposit(ctx context.Context, accountRef string, amount domain.Money, memo string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.begin(ctx, OpDeposit, accountRef); err != nil {
		return "", err
	}
	balance, err := b.account(OpDeposit, accountRef)
	if err != nil {
		return "", err
	}
	b.accounts[accountRef] = balance.Add(amount)
	return uuid.NewString(), nil
}

func (b *MockBank) Purchase(ctx context.Context, accountRef, merchantRef string, amount domain.Money, memo string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.begin(ctx, OpPurchase, accountRef); err != nil {
		return "", err
	}
	if _, ok := b.merchants[merchantRef]; !ok {
		return "", &RemoteServiceError{Operation: OpPurchase, Status: http.StatusNotFound, Message: fmt.Sprintf("merchant %s not found", merchantRef)}
	}
	return b.debit(OpPurchase, accountRef, amount)
}

func (b *MockBank) debit(operation, accountRef string, amount domain.Money) (string, error) {
	balance, err := b.account(operation, accountRef)
	if err != nil {
		return "", err
	}
	next, err := balance.Sub(amount)
	if err != nil {
		return "", &RemoteServiceError{Operation: operation, Status: http.StatusBadRequest, Message: "insufficient funds"}
	}
	b.accounts[accountRef] = next
	return uuid.NewString(), nil
}

func (b *MockBank) OpenAccount(ctx context.Context, firstName, lastName string, opening domain.Money) (Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.begin(ctx, OpOpenAccount, ""); err != nil {
		return Account{}, err
	}
	acct := Account{
		CustomerRef: "cust-" + uuid.NewString(),
		AccountRef:  "acct-" + uuid.NewString(),
		Balance:     opening,
	}
	b.accounts[acct.AccountRef] = opening
	return acct, nil
}

func (b *MockBank) CreateMerchant(ctx context.Context, name, category, location string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.begin(ctx, OpCreateMerchant, ""); err != nil {
		return "", err
	}
	ref := "merch-" + uuid.NewString()
	b.merchants[ref] = name
	return ref, nil
}

// RegisterMerchant adds a merchant with a known reference, used when
// restoring state into a fresh mock.
func (b *MockBank) RegisterMerchant(ref, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.merchants[ref] = name
}
