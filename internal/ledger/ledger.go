// Package ledger owns the authoritative in-memory state: member balances and
// debts, families, money requests, merchants, the transaction log and the
// reconciliation register.
//
// All writes go through Update, which applies a batch of mutations atomically:
// either every mutation in the batch becomes visible or none does. Callers that
// must keep a pair of members stable across slow work (remote calls) hold the
// member locks from Locks() around their reads and the final Update.
package ledger

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"credibridge-backend/internal/domain"
)

type Ledger struct {
	mu              sync.RWMutex
	members         map[string]*domain.Member
	families        map[string]*domain.Family
	requests        map[string]*domain.MoneyRequest
	merchants       map[string]*domain.Merchant
	reconciliations map[string]*domain.Reconciliation

	// debtors is the inverse of Member.Debts: lender id -> set of borrower ids.
	debtors map[string]map[string]struct{}

	log   *TransactionLog
	locks *Locker

	now   func() time.Time
	newID func() string
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator replaces the uuid generator, mainly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		members:         make(map[string]*domain.Member),
		families:        make(map[string]*domain.Family),
		requests:        make(map[string]*domain.MoneyRequest),
		merchants:       make(map[string]*domain.Merchant),
		reconciliations: make(map[string]*domain.Reconciliation),
		debtors:         make(map[string]map[string]struct{}),
		log:             newTransactionLog(),
		locks:           NewLocker(),
		now:             time.Now,
		newID:           uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locks returns the per-member lock set shared by every coordinator using
// this ledger.
func (l *Ledger) Locks() *Locker {
	return l.locks
}

// NewID returns a fresh identifier from the ledger's generator.
func (l *Ledger) NewID() string {
	return l.newID()
}

func (l *Ledger) Now() time.Time {
	return l.now()
}

// Update runs fn with exclusive access to the ledger. If fn returns an error
// every mutation it made is rolled back and no transaction is logged.
func (l *Ledger) Update(fn func(tx *Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &Tx{l: l}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

// Credit increases a member's balance.
func (l *Ledger) Credit(memberID string, amount domain.Money) error {
	return l.Update(func(tx *Tx) error { return tx.Credit(memberID, amount) })
}

// Debit decreases a member's balance; it never lets the balance go negative.
func (l *Ledger) Debit(memberID string, amount domain.Money) error {
	return l.Update(func(tx *Tx) error { return tx.Debit(memberID, amount) })
}

// IncreaseDebt adds amount to what borrower owes lender.
func (l *Ledger) IncreaseDebt(borrowerID, lenderID string, amount domain.Money) error {
	return l.Update(func(tx *Tx) error { return tx.IncreaseDebt(borrowerID, lenderID, amount) })
}

// DecreaseDebt subtracts amount from what borrower owes lender, removing the
// entry once it reaches zero.
func (l *Ledger) DecreaseDebt(borrowerID, lenderID string, amount domain.Money) error {
	return l.Update(func(tx *Tx) error { return tx.DecreaseDebt(borrowerID, lenderID, amount) })
}

// Snapshot returns a copy of a member's balance and debts.
func (l *Ledger) Snapshot(memberID string) (domain.MemberSnapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, err := l.member(memberID)
	if err != nil {
		return domain.MemberSnapshot{}, err
	}
	return snapshotOf(m), nil
}

// Record appends a transaction between two parties using their current debts.
func (l *Ledger) Record(kind domain.TransactionKind, fromID, toID string, amount domain.Money, description string) (*domain.Transaction, error) {
	var recorded *domain.Transaction
	err := l.Update(func(tx *Tx) error {
		t, err := tx.Record(kind, fromID, toID, amount, description)
		recorded = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return recorded, nil
}

func (l *Ledger) Member(id string) (*domain.Member, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, err := l.member(id)
	if err != nil {
		return nil, err
	}
	return m.Clone(), nil
}

// Members returns every member ordered by creation time.
func (l *Ledger) Members() []*domain.Member {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*domain.Member, 0, len(l.members))
	for _, m := range l.members {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (l *Ledger) Family(id string) (*domain.Family, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	f, ok := l.families[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrFamilyNotFound, id)
	}
	return f.Clone(), nil
}

func (l *Ledger) Request(id string) (*domain.MoneyRequest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRequestNotFound, id)
	}
	c := *r
	return &c, nil
}

// RequestsOf returns the requests a member sent and the ones it received, in
// creation order.
func (l *Ledger) RequestsOf(memberID string) (sent, received []domain.MoneyRequest, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if _, err := l.member(memberID); err != nil {
		return nil, nil, err
	}
	for _, r := range l.requests {
		if r.FromID == memberID {
			sent = append(sent, *r)
		}
		if r.ToID == memberID {
			received = append(received, *r)
		}
	}
	byCreated := func(a, b domain.MoneyRequest) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		return 1
	}
	slices.SortFunc(sent, byCreated)
	slices.SortFunc(received, byCreated)
	return sent, received, nil
}

func (l *Ledger) Merchant(id string) (*domain.Merchant, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.merchants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMerchant, id)
	}
	c := *m
	return &c, nil
}

// Merchants returns up to limit merchants ordered by name. A limit <= 0 means all.
func (l *Ledger) Merchants(limit int) []domain.Merchant {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Merchant, 0, len(l.merchants))
	for _, m := range l.merchants {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (l *Ledger) Transaction(id string) (*domain.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.log.Get(id)
}

// Transactions returns the member's own transactions in the order recorded.
func (l *Ledger) Transactions(memberID string) ([]domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, err := l.member(memberID)
	if err != nil {
		return nil, err
	}
	return l.log.Lookup(m.TransactionIDs), nil
}

// AllTransactions returns the whole log in append order.
func (l *Ledger) AllTransactions() []domain.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.log.All()
}

func (l *Ledger) Reconciliation(id string) (*domain.Reconciliation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.reconciliations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrReconciliationNotFound, id)
	}
	c := *r
	return &c, nil
}

// Reconciliations returns records oldest first, optionally only open ones.
func (l *Ledger) Reconciliations(openOnly bool) []domain.Reconciliation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.Reconciliation, 0, len(l.reconciliations))
	for _, r := range l.reconciliations {
		if openOnly && !r.IsOpen() {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// OpenReconciliationFor reports an open reconciliation raised while settling
// the given money request.
func (l *Ledger) OpenReconciliationFor(requestID string) (*domain.Reconciliation, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, r := range l.reconciliations {
		if r.RequestID == requestID && r.IsOpen() {
			c := *r
			return &c, true
		}
	}
	return nil, false
}

func (l *Ledger) member(id string) (*domain.Member, error) {
	m, ok := l.members[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMember, id)
	}
	return m, nil
}

func snapshotOf(m *domain.Member) domain.MemberSnapshot {
	debts := make(map[string]domain.Money, len(m.Debts))
	for k, v := range m.Debts {
		debts[k] = v
	}
	return domain.MemberSnapshot{
		MemberID:  m.ID,
		Balance:   m.Balance,
		Debts:     debts,
		TotalDebt: m.TotalDebt(),
	}
}
