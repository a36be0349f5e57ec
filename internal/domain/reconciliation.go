package domain

import "time"

// Reconciliation records a settlement whose remote withdrawal went through
// while the rest of the operation did not. An operator closes it after fixing
// the accounts by hand.
type Reconciliation struct {
	ID               string          `json:"id"`
	Operation        TransactionKind `json:"operation"`
	FundingID        string          `json:"funding_id"`
	ReceivingID      string          `json:"receiving_id"`
	FundingAccount   string          `json:"funding_account"`
	ReceivingAccount string          `json:"receiving_account"`
	Amount           Money           `json:"amount"`
	WithdrawalID     string          `json:"withdrawal_id"`
	RequestID        string          `json:"request_id,omitempty"`
	Cause            string          `json:"cause"`
	CreatedAt        time.Time       `json:"created_at"`
	ClosedAt         *time.Time      `json:"closed_at,omitempty"`
	Note             string          `json:"note,omitempty"`
}

func (r *Reconciliation) IsOpen() bool {
	return r.ClosedAt == nil
}
