package ledger

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"credibridge-backend/internal/domain"
)

// Tx is a batch of ledger mutations applied under the ledger's write lock.
// It is only valid inside the Update callback that created it.
type Tx struct {
	l       *Ledger
	undo    []func()
	pending []*domain.Transaction
}

func (tx *Tx) onRollback(fn func()) {
	tx.undo = append(tx.undo, fn)
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.pending = nil
}

func (tx *Tx) commit() {
	for _, t := range tx.pending {
		tx.l.log.append(t)
	}
	tx.undo = nil
	tx.pending = nil
}

func (tx *Tx) Now() time.Time {
	return tx.l.now()
}

func (tx *Tx) NewID() string {
	return tx.l.newID()
}

// Member returns a copy of the member as seen inside this batch.
func (tx *Tx) Member(id string) (*domain.Member, error) {
	m, err := tx.l.member(id)
	if err != nil {
		return nil, err
	}
	return m.Clone(), nil
}

func (tx *Tx) Snapshot(memberID string) (domain.MemberSnapshot, error) {
	m, err := tx.l.member(memberID)
	if err != nil {
		return domain.MemberSnapshot{}, err
	}
	return snapshotOf(m), nil
}

func (tx *Tx) Credit(memberID string, amount domain.Money) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	m, err := tx.l.member(memberID)
	if err != nil {
		return err
	}
	prev := m.Balance
	m.Balance = m.Balance.Add(amount)
	tx.onRollback(func() { m.Balance = prev })
	return nil
}

func (tx *Tx) Debit(memberID string, amount domain.Money) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	m, err := tx.l.member(memberID)
	if err != nil {
		return err
	}
	next, err := m.Balance.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: member %s has %s, needs %s", domain.ErrInsufficientBalance, memberID, m.Balance, amount)
	}
	prev := m.Balance
	m.Balance = next
	tx.onRollback(func() { m.Balance = prev })
	return nil
}

func (tx *Tx) IncreaseDebt(borrowerID, lenderID string, amount domain.Money) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	if borrowerID == lenderID {
		return fmt.Errorf("%w: %s cannot owe itself", domain.ErrSelfTransfer, borrowerID)
	}
	borrower, err := tx.l.member(borrowerID)
	if err != nil {
		return err
	}
	if _, err := tx.l.member(lenderID); err != nil {
		return err
	}

	prev, existed := borrower.Debts[lenderID]
	if borrower.Debts == nil {
		borrower.Debts = make(map[string]domain.Money)
	}
	borrower.Debts[lenderID] = prev.Add(amount)
	tx.l.indexDebt(lenderID, borrowerID)

	tx.onRollback(func() {
		if existed {
			borrower.Debts[lenderID] = prev
			return
		}
		delete(borrower.Debts, lenderID)
		tx.l.unindexDebt(lenderID, borrowerID)
	})
	return nil
}

func (tx *Tx) DecreaseDebt(borrowerID, lenderID string, amount domain.Money) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	borrower, err := tx.l.member(borrowerID)
	if err != nil {
		return err
	}
	owed, ok := borrower.Debts[lenderID]
	if !ok {
		return fmt.Errorf("%w: %s owes nothing to %s", domain.ErrNoSuchDebt, borrowerID, lenderID)
	}
	remaining, err := owed.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %s owes %s to %s, repaying %s", domain.ErrOverRepayment, borrowerID, owed, lenderID, amount)
	}

	if remaining.IsZero() {
		delete(borrower.Debts, lenderID)
		tx.l.unindexDebt(lenderID, borrowerID)
	} else {
		borrower.Debts[lenderID] = remaining
	}

	tx.onRollback(func() {
		borrower.Debts[lenderID] = owed
		tx.l.indexDebt(lenderID, borrowerID)
	})
	return nil
}

// Record creates a transaction from the current state of both parties. It must
// be called after the balance and debt mutations it describes. toID may name a
// merchant, in which case only the source member's history is updated.
func (tx *Tx) Record(kind domain.TransactionKind, fromID, toID string, amount domain.Money, description string) (*domain.Transaction, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown transaction kind %q", kind)
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	from, err := tx.l.member(fromID)
	if err != nil {
		return nil, err
	}
	to, toIsMember := tx.l.members[toID]
	if !toIsMember {
		if _, ok := tx.l.merchants[toID]; !ok || kind != domain.TransactionKindPurchase {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMember, toID)
		}
	}

	t := &domain.Transaction{
		ID:          tx.l.newID(),
		Kind:        kind,
		FromID:      fromID,
		ToID:        toID,
		Amount:      amount,
		FromDebt:    from.TotalDebt(),
		Description: strings.TrimSpace(description),
		CreatedAt:   tx.l.now(),
	}
	if toIsMember {
		t.ToDebt = to.TotalDebt()
	}

	tx.appendTransactionID(from, t.ID)
	if toIsMember && to != from {
		tx.appendTransactionID(to, t.ID)
	}
	tx.pending = append(tx.pending, t)

	c := *t
	return &c, nil
}

func (tx *Tx) appendTransactionID(m *domain.Member, id string) {
	prev := len(m.TransactionIDs)
	m.TransactionIDs = append(m.TransactionIDs, id)
	tx.onRollback(func() { m.TransactionIDs = m.TransactionIDs[:prev] })
}

// Share makes a transaction visible to a creditor of the member who made it.
func (tx *Tx) Share(memberID, transactionID string) error {
	m, err := tx.l.member(memberID)
	if err != nil {
		return err
	}
	prev := len(m.SharedTransactionIDs)
	m.SharedTransactionIDs = append(m.SharedTransactionIDs, transactionID)
	tx.onRollback(func() { m.SharedTransactionIDs = m.SharedTransactionIDs[:prev] })
	return nil
}

// CreditorsOf lists the lenders a member currently owes, sorted by id.
func (tx *Tx) CreditorsOf(borrowerID string) ([]string, error) {
	m, err := tx.l.member(borrowerID)
	if err != nil {
		return nil, err
	}
	return sortedKeys(m.Debts), nil
}

func (tx *Tx) AddMember(m *domain.Member) error {
	if _, exists := tx.l.members[m.ID]; exists {
		return fmt.Errorf("member %s already exists", m.ID)
	}
	c := m.Clone()
	if c.Debts == nil {
		c.Debts = make(map[string]domain.Money)
	}
	tx.l.members[c.ID] = c
	tx.onRollback(func() { delete(tx.l.members, c.ID) })
	return nil
}

func (tx *Tx) AddFamily(f *domain.Family) error {
	if _, exists := tx.l.families[f.ID]; exists {
		return fmt.Errorf("family %s already exists", f.ID)
	}
	c := f.Clone()
	tx.l.families[c.ID] = c
	tx.onRollback(func() { delete(tx.l.families, c.ID) })
	return nil
}

// JoinFamily attaches a member to a family. A member belongs to at most one
// family; joining the same family twice is a no-op.
func (tx *Tx) JoinFamily(familyID, memberID string) error {
	f, ok := tx.l.families[familyID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrFamilyNotFound, familyID)
	}
	m, err := tx.l.member(memberID)
	if err != nil {
		return err
	}
	if m.FamilyID == familyID {
		return nil
	}
	if m.FamilyID != "" {
		return fmt.Errorf("%w: %s is in %s", domain.ErrAlreadyInFamily, memberID, m.FamilyID)
	}

	prevLen := len(f.MemberIDs)
	f.MemberIDs = append(f.MemberIDs, memberID)
	m.FamilyID = familyID
	tx.onRollback(func() {
		f.MemberIDs = f.MemberIDs[:prevLen]
		m.FamilyID = ""
	})
	return nil
}

func (tx *Tx) AddMerchant(m *domain.Merchant) error {
	if _, exists := tx.l.merchants[m.ID]; exists {
		return fmt.Errorf("merchant %s already exists", m.ID)
	}
	c := *m
	tx.l.merchants[c.ID] = &c
	tx.onRollback(func() { delete(tx.l.merchants, c.ID) })
	return nil
}

// Request returns a copy of a money request as seen inside this batch.
func (tx *Tx) Request(id string) (*domain.MoneyRequest, error) {
	r, ok := tx.l.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRequestNotFound, id)
	}
	c := *r
	return &c, nil
}

// AddRequest stores a pending request and indexes it under its funder and the
// funder's family.
func (tx *Tx) AddRequest(r *domain.MoneyRequest) error {
	if _, exists := tx.l.requests[r.ID]; exists {
		return fmt.Errorf("money request %s already exists", r.ID)
	}
	target, err := tx.l.member(r.ToID)
	if err != nil {
		return err
	}
	c := *r
	tx.l.requests[c.ID] = &c
	tx.onRollback(func() { delete(tx.l.requests, c.ID) })

	prevActive := len(target.ActiveRequestIDs)
	target.ActiveRequestIDs = append(target.ActiveRequestIDs, c.ID)
	tx.onRollback(func() { target.ActiveRequestIDs = target.ActiveRequestIDs[:prevActive] })

	if f, ok := tx.l.families[target.FamilyID]; ok {
		prevFamily := len(f.RequestIDs)
		f.RequestIDs = append(f.RequestIDs, c.ID)
		tx.onRollback(func() { f.RequestIDs = f.RequestIDs[:prevFamily] })
	}
	return nil
}

// FinishRequest moves a pending request to a terminal status and drops it from
// the active indexes. The request record itself is kept.
func (tx *Tx) FinishRequest(id string, status domain.RequestStatus) error {
	if status != domain.RequestStatusAccepted && status != domain.RequestStatusDeclined {
		return fmt.Errorf("invalid terminal status %q", status)
	}
	r, ok := tx.l.requests[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRequestNotFound, id)
	}
	if !r.IsPending() {
		return fmt.Errorf("%w: request %s is %s", domain.ErrAlreadyResolved, id, r.Status)
	}

	prevStatus, prevResolved := r.Status, r.ResolvedAt
	now := tx.l.now()
	r.Status = status
	r.ResolvedAt = &now
	tx.onRollback(func() {
		r.Status = prevStatus
		r.ResolvedAt = prevResolved
	})

	if target, ok := tx.l.members[r.ToID]; ok {
		prev := target.ActiveRequestIDs
		target.ActiveRequestIDs = removeID(prev, id)
		tx.onRollback(func() { target.ActiveRequestIDs = prev })
		if f, ok := tx.l.families[target.FamilyID]; ok {
			prevFamily := f.RequestIDs
			f.RequestIDs = removeID(prevFamily, id)
			tx.onRollback(func() { f.RequestIDs = prevFamily })
		}
	}
	return nil
}

func (tx *Tx) AddReconciliation(r *domain.Reconciliation) error {
	if _, exists := tx.l.reconciliations[r.ID]; exists {
		return fmt.Errorf("reconciliation %s already exists", r.ID)
	}
	c := *r
	tx.l.reconciliations[c.ID] = &c
	tx.onRollback(func() { delete(tx.l.reconciliations, c.ID) })
	return nil
}

func (tx *Tx) CloseReconciliation(id, note string) (*domain.Reconciliation, error) {
	r, ok := tx.l.reconciliations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrReconciliationNotFound, id)
	}
	if !r.IsOpen() {
		return nil, fmt.Errorf("%w: %s", domain.ErrReconciliationClosed, id)
	}
	now := tx.l.now()
	r.ClosedAt = &now
	r.Note = strings.TrimSpace(note)
	tx.onRollback(func() {
		r.ClosedAt = nil
		r.Note = ""
	})
	c := *r
	return &c, nil
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
