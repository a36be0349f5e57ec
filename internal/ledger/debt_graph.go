package ledger

import (
	"credibridge-backend/internal/domain"
)

// DebtGraph is a read view over member debts: borrower -> lender -> amount.
// Edges are directional; a owing b and b owing a are separate edges and are
// never netted against each other.
type DebtGraph struct {
	l *Ledger
}

func (l *Ledger) Debts() *DebtGraph {
	return &DebtGraph{l: l}
}

// OwedTo returns what borrower owes lender, zero when there is no debt.
func (g *DebtGraph) OwedTo(borrowerID, lenderID string) domain.Money {
	g.l.mu.RLock()
	defer g.l.mu.RUnlock()

	m, ok := g.l.members[borrowerID]
	if !ok {
		return 0
	}
	return m.Debts[lenderID]
}

// CreditorsOf lists the members the borrower owes, sorted by id.
func (g *DebtGraph) CreditorsOf(borrowerID string) []string {
	g.l.mu.RLock()
	defer g.l.mu.RUnlock()

	m, ok := g.l.members[borrowerID]
	if !ok {
		return nil
	}
	return sortedKeys(m.Debts)
}

// DebtorsOf lists the members who owe the lender, sorted by id. It is served
// from the inverse index kept alongside every debt mutation.
func (g *DebtGraph) DebtorsOf(lenderID string) []string {
	g.l.mu.RLock()
	defer g.l.mu.RUnlock()

	return sortedKeys(g.l.debtors[lenderID])
}

// Edges returns every outstanding debt. Used for reporting.
func (g *DebtGraph) Edges() []DebtEdge {
	g.l.mu.RLock()
	defer g.l.mu.RUnlock()

	var edges []DebtEdge
	for _, borrowerID := range sortedKeys(g.l.members) {
		m := g.l.members[borrowerID]
		for _, lenderID := range sortedKeys(m.Debts) {
			edges = append(edges, DebtEdge{BorrowerID: borrowerID, LenderID: lenderID, Amount: m.Debts[lenderID]})
		}
	}
	return edges
}

// DebtEdge is one borrower -> lender debt.
type DebtEdge struct {
	BorrowerID string       `json:"borrower_id"`
	LenderID   string       `json:"lender_id"`
	Amount     domain.Money `json:"amount"`
}

func (l *Ledger) indexDebt(lenderID, borrowerID string) {
	set, ok := l.debtors[lenderID]
	if !ok {
		set = make(map[string]struct{})
		l.debtors[lenderID] = set
	}
	set[borrowerID] = struct{}{}
}

func (l *Ledger) unindexDebt(lenderID, borrowerID string) {
	set, ok := l.debtors[lenderID]
	if !ok {
		return
	}
	delete(set, borrowerID)
	if len(set) == 0 {
		delete(l.debtors, lenderID)
	}
}
