package service

import (
	"context"
	"fmt"
	"strings"

	"credibridge-backend/internal/bank"
	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/ledger"
	"credibridge-backend/internal/logger"
)

// recentTransactionCount is how many of a borrower's transactions a lender sees.
const recentTransactionCount = 5

type memberService struct {
	ledger         *ledger.Ledger
	provisioner    bank.Provisioner
	openingBalance domain.Money
}

func NewMemberService(l *ledger.Ledger, provisioner bank.Provisioner, openingBalance domain.Money) MemberService {
	return &memberService{
		ledger:         l,
		provisioner:    provisioner,
		openingBalance: openingBalance,
	}
}

// Register opens a remote account for a new member and stores the member with
// the same opening balance.
func (s *memberService) Register(ctx context.Context, firstName, lastName string) (*domain.Member, error) {
	logger.EnterMethod("memberService.Register", "firstName", firstName, "lastName", lastName)

	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		logger.ExitMethodWithError("memberService.Register", domain.ErrInvalidName)
		return nil, domain.ErrInvalidName
	}

	account, err := s.provisioner.OpenAccount(ctx, firstName, lastName, s.openingBalance)
	if err != nil {
		err = settlementFailed(bank.OpOpenAccount, err)
		logger.ExitMethodWithError("memberService.Register", err)
		return nil, err
	}

	var member *domain.Member
	err = s.ledger.Update(func(tx *ledger.Tx) error {
		member = &domain.Member{
			ID:          tx.NewID(),
			FirstName:   firstName,
			LastName:    lastName,
			Balance:     account.Balance,
			Debts:       map[string]domain.Money{},
			CustomerRef: account.CustomerRef,
			AccountRef:  account.AccountRef,
			CreatedAt:   tx.Now(),
		}
		return tx.AddMember(member)
	})
	if err != nil {
		logger.ExitMethodWithError("memberService.Register", err)
		return nil, err
	}

	logger.Info("Member registered", "memberID", member.ID, "accountRef", member.AccountRef)
	logger.ExitMethod("memberService.Register", "memberID", member.ID)
	return member, nil
}

func (s *memberService) GetMember(ctx context.Context, memberID string) (*domain.Member, error) {
	return s.ledger.Member(memberID)
}

func (s *memberService) ListMembers(ctx context.Context) ([]*domain.Member, error) {
	return s.ledger.Members(), nil
}

// ListTransactions returns the member's history with both parties named.
func (s *memberService) ListTransactions(ctx context.Context, memberID string) ([]domain.TransactionView, error) {
	txs, err := s.ledger.Transactions(memberID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	views := make([]domain.TransactionView, 0, len(txs))
	for _, t := range txs {
		views = append(views, domain.TransactionView{
			Transaction: t,
			FromName:    s.partyName(names, t.FromID),
			ToName:      s.partyName(names, t.ToID),
		})
	}
	return views, nil
}

func (s *memberService) partyName(cache map[string]string, id string) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := id
	if m, err := s.ledger.Member(id); err == nil {
		name = m.DisplayName()
	} else if merchant, err := s.ledger.Merchant(id); err == nil {
		name = merchant.Name
	}
	cache[id] = name
	return name
}

func (s *memberService) ListMoneyRequests(ctx context.Context, memberID string) ([]domain.MoneyRequest, []domain.MoneyRequest, error) {
	return s.ledger.RequestsOf(memberID)
}

// ListBorrowers describes every member who currently owes lenderID.
func (s *memberService) ListBorrowers(ctx context.Context, lenderID string) ([]domain.BorrowerSummary, error) {
	lender, err := s.ledger.Member(lenderID)
	if err != nil {
		return nil, err
	}

	var summaries []domain.BorrowerSummary
	for _, borrowerID := range s.ledger.Debts().DebtorsOf(lenderID) {
		borrower, err := s.ledger.Member(borrowerID)
		if err != nil {
			return nil, fmt.Errorf("debtor index out of sync: %w", err)
		}
		history, err := s.ledger.Transactions(borrowerID)
		if err != nil {
			return nil, err
		}
		if len(history) > recentTransactionCount {
			history = history[len(history)-recentTransactionCount:]
		}

		var shared []domain.Transaction
		for _, id := range lender.SharedTransactionIDs {
			if t, ok := s.ledger.Transaction(id); ok && t.FromID == borrowerID {
				shared = append(shared, *t)
			}
		}

		summaries = append(summaries, domain.BorrowerSummary{
			BorrowerID:         borrowerID,
			BorrowerName:       borrower.DisplayName(),
			AmountOwed:         borrower.Debts[lenderID],
			RecentTransactions: history,
			SharedPurchases:    shared,
		})
	}
	return summaries, nil
}

type familyService struct {
	ledger *ledger.Ledger
}

func NewFamilyService(l *ledger.Ledger) FamilyService {
	return &familyService{ledger: l}
}

func (s *familyService) CreateFamily(ctx context.Context, name string) (*domain.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	var family *domain.Family
	err := s.ledger.Update(func(tx *ledger.Tx) error {
		family = &domain.Family{ID: tx.NewID(), Name: name, CreatedAt: tx.Now()}
		return tx.AddFamily(family)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Family created", "familyID", family.ID, "name", name)
	return family, nil
}

func (s *familyService) GetFamily(ctx context.Context, familyID string) (*domain.Family, error) {
	return s.ledger.Family(familyID)
}

func (s *familyService) ListFamilyMembers(ctx context.Context, familyID string) ([]*domain.Member, error) {
	family, err := s.ledger.Family(familyID)
	if err != nil {
		return nil, err
	}
	members := make([]*domain.Member, 0, len(family.MemberIDs))
	for _, id := range family.MemberIDs {
		m, err := s.ledger.Member(id)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func (s *familyService) AddMemberToFamily(ctx context.Context, familyID, memberID string) (*domain.Family, error) {
	unlock, err := s.ledger.Locks().Lock(ctx, memberID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.ledger.Update(func(tx *ledger.Tx) error {
		return tx.JoinFamily(familyID, memberID)
	}); err != nil {
		return nil, err
	}
	return s.ledger.Family(familyID)
}
