package domain

import "time"

type TransactionKind string

const (
	TransactionKindLoan             TransactionKind = "loan"
	TransactionKindRequestFulfilled TransactionKind = "request_fulfilled"
	TransactionKindDebtResolution   TransactionKind = "debt_resolution"
	TransactionKindPurchase         TransactionKind = "purchase"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionKindLoan, TransactionKindRequestFulfilled, TransactionKindDebtResolution, TransactionKindPurchase:
		return true
	}
	return false
}

// Transaction is an immutable record of one money movement. FromDebt and ToDebt
// are the total debts of both parties right after the movement was applied.
type Transaction struct {
	ID          string          `json:"id"`
	Kind        TransactionKind `json:"kind"`
	FromID      string          `json:"from_id"`
	ToID        string          `json:"to_id"`
	Amount      Money           `json:"amount"`
	FromDebt    Money           `json:"from_debt"`
	ToDebt      Money           `json:"to_debt"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
