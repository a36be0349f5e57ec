package ledger

import (
	"fmt"
	"sort"

	"credibridge-backend/internal/domain"
)

// Export copies the whole ledger into plain records.
func (l *Ledger) Export() *domain.Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := &domain.Snapshot{
		Members:         make([]domain.Member, 0, len(l.members)),
		Families:        make([]domain.Family, 0, len(l.families)),
		Transactions:    l.log.All(),
		MoneyRequests:   make([]domain.MoneyRequest, 0, len(l.requests)),
		Merchants:       make([]domain.Merchant, 0, len(l.merchants)),
		Reconciliations: make([]domain.Reconciliation, 0, len(l.reconciliations)),
		TakenAt:         l.now(),
	}
	for _, id := range sortedKeys(l.members) {
		s.Members = append(s.Members, *l.members[id].Clone())
	}
	for _, id := range sortedKeys(l.families) {
		s.Families = append(s.Families, *l.families[id].Clone())
	}
	for _, id := range sortedKeys(l.requests) {
		s.MoneyRequests = append(s.MoneyRequests, *l.requests[id])
	}
	for _, id := range sortedKeys(l.merchants) {
		s.Merchants = append(s.Merchants, *l.merchants[id])
	}
	for _, id := range sortedKeys(l.reconciliations) {
		s.Reconciliations = append(s.Reconciliations, *l.reconciliations[id])
	}
	return s
}

// Restore builds a ledger from a snapshot. Zero-valued debt entries are
// dropped; negative amounts and references to unknown members or families are
// rejected.
func Restore(s *domain.Snapshot, opts ...Option) (*Ledger, error) {
	l := New(opts...)
	if s == nil {
		return l, nil
	}

	for i := range s.Members {
		m := s.Members[i].Clone()
		if m.Balance < 0 {
			return nil, fmt.Errorf("member %s: negative balance %s", m.ID, m.Balance)
		}
		for lenderID, amount := range m.Debts {
			switch {
			case amount < 0:
				return nil, fmt.Errorf("member %s: negative debt to %s", m.ID, lenderID)
			case amount == 0:
				delete(m.Debts, lenderID)
			default:
				l.indexDebt(lenderID, m.ID)
			}
		}
		l.members[m.ID] = m
	}
	for i := range s.Families {
		f := s.Families[i].Clone()
		l.families[f.ID] = f
	}
	for i := range s.MoneyRequests {
		r := s.MoneyRequests[i]
		l.requests[r.ID] = &r
	}
	for i := range s.Merchants {
		m := s.Merchants[i]
		l.merchants[m.ID] = &m
	}
	for i := range s.Reconciliations {
		r := s.Reconciliations[i]
		l.reconciliations[r.ID] = &r
	}

	if err := l.checkReferences(); err != nil {
		return nil, err
	}

	txs := make([]domain.Transaction, len(s.Transactions))
	copy(txs, s.Transactions)
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.Before(txs[j].CreatedAt) })
	for i := range txs {
		l.log.append(&txs[i])
	}
	return l, nil
}

func (l *Ledger) checkReferences() error {
	for _, id := range sortedKeys(l.members) {
		m := l.members[id]
		for _, lenderID := range sortedKeys(m.Debts) {
			if _, ok := l.members[lenderID]; !ok {
				return fmt.Errorf("member %s: debt to %w %s", m.ID, domain.ErrUnknownMember, lenderID)
			}
		}
		if m.FamilyID != "" {
			if _, ok := l.families[m.FamilyID]; !ok {
				return fmt.Errorf("member %s: %w %s", m.ID, domain.ErrFamilyNotFound, m.FamilyID)
			}
		}
	}
	for _, id := range sortedKeys(l.families) {
		for _, memberID := range l.families[id].MemberIDs {
			if _, ok := l.members[memberID]; !ok {
				return fmt.Errorf("family %s: %w %s", id, domain.ErrUnknownMember, memberID)
			}
		}
	}
	for _, id := range sortedKeys(l.requests) {
		r := l.requests[id]
		for _, memberID := range []string{r.FromID, r.ToID} {
			if _, ok := l.members[memberID]; !ok {
				return fmt.Errorf("request %s: %w %s", id, domain.ErrUnknownMember, memberID)
			}
		}
	}
	return nil
}
