package domain

import "time"

// Snapshot is the full ledger state as plain records, used for persistence.
type Snapshot struct {
	Members         []Member         `json:"members"`
	Families        []Family         `json:"families"`
	Transactions    []Transaction    `json:"transactions"`
	MoneyRequests   []MoneyRequest   `json:"money_requests"`
	Merchants       []Merchant       `json:"merchants"`
	Reconciliations []Reconciliation `json:"reconciliations"`
	TakenAt         time.Time        `json:"taken_at"`
}

func (s *Snapshot) IsEmpty() bool {
	return len(s.Members) == 0 && len(s.Families) == 0 && len(s.Merchants) == 0
}
