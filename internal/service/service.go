package service

import (
	"context"

	"credibridge-backend/internal/domain"
)

// SettlementService moves money between accounts at the settlement service and
// mirrors each movement in the local ledger.
type SettlementService interface {
	CreateLoan(ctx context.Context, familyID, lenderID, borrowerID string, amount domain.Money, description string) (*domain.Transaction, error)
	FulfillRequest(ctx context.Context, requestID string) (*domain.MoneyRequest, *domain.Transaction, error)
	ResolveDebt(ctx context.Context, borrowerID, lenderID string, amount domain.Money, description string) (*domain.Transaction, error)
	PayMerchant(ctx context.Context, memberID, merchantID string, amount domain.Money, description string) (*domain.Transaction, error)
}

type MoneyRequestService interface {
	CreateRequest(ctx context.Context, fromID, toID string, amount domain.Money, description string) (*domain.MoneyRequest, error)
	ResolveRequest(ctx context.Context, requestID string, accept bool) (*domain.MoneyRequest, *domain.Transaction, error)
	GetRequest(ctx context.Context, requestID string) (*domain.MoneyRequest, error)
}

type MemberService interface {
	Register(ctx context.Context, firstName, lastName string) (*domain.Member, error)
	GetMember(ctx context.Context, memberID string) (*domain.Member, error)
	ListMembers(ctx context.Context) ([]*domain.Member, error)
	ListTransactions(ctx context.Context, memberID string) ([]domain.TransactionView, error)
	ListMoneyRequests(ctx context.Context, memberID string) (sent, received []domain.MoneyRequest, err error)
	ListBorrowers(ctx context.Context, lenderID string) ([]domain.BorrowerSummary, error)
}

type FamilyService interface {
	CreateFamily(ctx context.Context, name string) (*domain.Family, error)
	GetFamily(ctx context.Context, familyID string) (*domain.Family, error)
	ListFamilyMembers(ctx context.Context, familyID string) ([]*domain.Member, error)
	AddMemberToFamily(ctx context.Context, familyID, memberID string) (*domain.Family, error)
}

type MerchantService interface {
	CreateMerchant(ctx context.Context, name, category, location, externalRef string) (*domain.Merchant, error)
	ListMerchants(ctx context.Context, limit int) ([]domain.Merchant, error)
}

type ReconciliationService interface {
	ListReconciliations(ctx context.Context, openOnly bool) ([]domain.Reconciliation, error)
	CloseReconciliation(ctx context.Context, id, note string) (*domain.Reconciliation, error)
}

// AlertService tells an operator about settlements that need manual work.
type AlertService interface {
	NotifyUnreconciled(ctx context.Context, rec *domain.Reconciliation) error
}
