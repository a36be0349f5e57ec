package bank

import (
	"fmt"

	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/logger"
)

// New returns the settlement service selected by kind: "mock" or "nessie".
func New(kind string, cfg NessieConfig) (Service, error) {
	switch kind {
	case "", "mock":
		logger.Info("Using mock settlement service")
		return NewMockBank(), nil
	case "nessie":
		logger.Info("Using Nessie settlement service", "base_url", cfg.BaseURL)
		client, err := NewNessieClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown bank type: %s", kind)
	}
}

// Prime loads the accounts and merchants of a restored snapshot so the mock
// agrees with the ledger after a restart.
func (b *MockBank) Prime(s *domain.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, m := range s.Members {
		if m.AccountRef != "" {
			b.accounts[m.AccountRef] = m.Balance
		}
	}
	for _, m := range s.Merchants {
		if m.ExternalRef != "" {
			b.merchants[m.ExternalRef] = m.Name
		}
	}
}
