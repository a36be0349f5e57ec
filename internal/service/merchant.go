package service

import (
	"context"
	"strings"

	"credibridge-backend/internal/bank"
	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/ledger"
	"credibridge-backend/internal/logger"
)

type merchantService struct {
	ledger      *ledger.Ledger
	provisioner bank.Provisioner
}

func NewMerchantService(l *ledger.Ledger, provisioner bank.Provisioner) MerchantService {
	return &merchantService{ledger: l, provisioner: provisioner}
}

// CreateMerchant stores a merchant. Without an externalRef the merchant is
// first registered at the settlement service.
func (s *merchantService) CreateMerchant(ctx context.Context, name, category, location, externalRef string) (*domain.Merchant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	if externalRef == "" {
		ref, err := s.provisioner.CreateMerchant(ctx, name, category, location)
		if err != nil {
			return nil, settlementFailed(bank.OpCreateMerchant, err)
		}
		externalRef = ref
	}

	var merchant *domain.Merchant
	err := s.ledger.Update(func(tx *ledger.Tx) error {
		merchant = &domain.Merchant{
			ID:          tx.NewID(),
			Name:        name,
			Category:    strings.TrimSpace(category),
			Location:    strings.TrimSpace(location),
			ExternalRef: externalRef,
			CreatedAt:   tx.Now(),
		}
		return tx.AddMerchant(merchant)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Merchant created", "merchantID", merchant.ID, "name", name)
	return merchant, nil
}

func (s *merchantService) ListMerchants(ctx context.Context, limit int) ([]domain.Merchant, error) {
	return s.ledger.Merchants(limit), nil
}
