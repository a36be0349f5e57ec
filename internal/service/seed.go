package service

import (
	"context"
	"fmt"

	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/logger"
)

// Services bundles every service the API and jobs depend on.
type Services struct {
	Settlement     SettlementService
	MoneyRequest   MoneyRequestService
	Member         MemberService
	Family         FamilyService
	Merchant       MerchantService
	Reconciliation ReconciliationService
}

// Seed loads the demo data set: one family of three members, two merchants
// and a pending request of 50.00 from the first member to the second.
func Seed(ctx context.Context, svc *Services, familyName string) error {
	logger.Info("Seeding demo data", "family", familyName)

	family, err := svc.Family.CreateFamily(ctx, familyName)
	if err != nil {
		return fmt.Errorf("failed to create seed family: %w", err)
	}

	people := [][2]string{
		{"Chinmay", "Mangalwedhe"},
		{"Aiyaz", "Mostofa"},
		{"Connor", "Carey"},
	}
	members := make([]*domain.Member, 0, len(people))
	for _, p := range people {
		m, err := svc.Member.Register(ctx, p[0], p[1])
		if err != nil {
			return fmt.Errorf("failed to register seed member %s: %w", p[0], err)
		}
		if _, err := svc.Family.AddMemberToFamily(ctx, family.ID, m.ID); err != nil {
			return fmt.Errorf("failed to add seed member %s to family: %w", p[0], err)
		}
		members = append(members, m)
	}

	merchants := []struct{ name, category, location string }{
		{"Amazon", "Shopping", "Austin, TX"},
		{"Walmart", "Grocery", "College Station, TX"},
	}
	for _, m := range merchants {
		if _, err := svc.Merchant.CreateMerchant(ctx, m.name, m.category, m.location, ""); err != nil {
			return fmt.Errorf("failed to create seed merchant %s: %w", m.name, err)
		}
	}

	if _, err := svc.MoneyRequest.CreateRequest(ctx, members[0].ID, members[1].ID, domain.Cents(5000), ""); err != nil {
		return fmt.Errorf("failed to create seed money request: %w", err)
	}

	logger.Info("Demo data seeded", "familyID", family.ID, "members", len(members), "merchants", len(merchants))
	return nil
}
