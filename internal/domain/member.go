package domain

import (
	"slices"
	"strings"
	"time"
)

type Member struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Balance   Money  `json:"balance"`

	// Debts maps lender id to the amount this member owes. Entries are always
	// positive; a settled debt is removed, never stored as zero.
	Debts map[string]Money `json:"debts"`

	TransactionIDs []string `json:"transaction_ids"`

	// SharedTransactionIDs are purchases made by this member's debtors.
	SharedTransactionIDs []string `json:"shared_transaction_ids"`

	// ActiveRequestIDs are pending money requests this member was asked to fund.
	ActiveRequestIDs []string `json:"active_request_ids"`

	FamilyID    string    `json:"family_id,omitempty"`
	CustomerRef string    `json:"customer_ref,omitempty"`
	AccountRef  string    `json:"account_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m *Member) DisplayName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// TotalDebt is the sum of everything the member owes across all lenders.
func (m *Member) TotalDebt() Money {
	var total Money
	for _, amount := range m.Debts {
		total = total.Add(amount)
	}
	return total
}

func (m *Member) HasAccount() bool {
	return m.AccountRef != ""
}

// Clone returns a deep copy safe to hand out of the ledger.
func (m *Member) Clone() *Member {
	c := *m
	c.Debts = make(map[string]Money, len(m.Debts))
	for k, v := range m.Debts {
		c.Debts[k] = v
	}
	c.TransactionIDs = slices.Clone(m.TransactionIDs)
	c.SharedTransactionIDs = slices.Clone(m.SharedTransactionIDs)
	c.ActiveRequestIDs = slices.Clone(m.ActiveRequestIDs)
	return &c
}

// MemberSnapshot is the read-only balance and debt view used when recording
// transactions.
type MemberSnapshot struct {
	MemberID  string           `json:"member_id"`
	Balance   Money            `json:"balance"`
	Debts     map[string]Money `json:"debts"`
	TotalDebt Money            `json:"total_debt"`
}
