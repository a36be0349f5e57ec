package ledger

import "credibridge-backend/internal/domain"

// TransactionLog is the append-only history of money movements. Entries are
// never edited or removed. It is guarded by the owning Ledger's lock.
type TransactionLog struct {
	entries []domain.Transaction
	index   map[string]int
}

func newTransactionLog() *TransactionLog {
	return &TransactionLog{index: make(map[string]int)}
}

func (tl *TransactionLog) append(t *domain.Transaction) {
	tl.index[t.ID] = len(tl.entries)
	tl.entries = append(tl.entries, *t)
}

func (tl *TransactionLog) Get(id string) (*domain.Transaction, bool) {
	i, ok := tl.index[id]
	if !ok {
		return nil, false
	}
	t := tl.entries[i]
	return &t, true
}

// Lookup resolves ids in order, skipping unknown ones.
func (tl *TransactionLog) Lookup(ids []string) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(ids))
	for _, id := range ids {
		if i, ok := tl.index[id]; ok {
			out = append(out, tl.entries[i])
		}
	}
	return out
}

func (tl *TransactionLog) All() []domain.Transaction {
	out := make([]domain.Transaction, len(tl.entries))
	copy(out, tl.entries)
	return out
}

func (tl *TransactionLog) Len() int {
	return len(tl.entries)
}
