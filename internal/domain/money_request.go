package domain

import "time"

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusDeclined RequestStatus = "declined"
)

// MoneyRequest asks ToID to fund Amount for FromID. Accepting it makes FromID
// owe ToID the amount.
type MoneyRequest struct {
	ID          string        `json:"id"`
	FromID      string        `json:"from_id"` // requester, the would-be borrower
	ToID        string        `json:"to_id"`   // funder
	Amount      Money         `json:"amount"`
	Status      RequestStatus `json:"status"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}

func (r *MoneyRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}
