package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"credibridge-backend/internal/bank"
	"credibridge-backend/internal/domain"
	"credibridge-backend/internal/ledger"
	"credibridge-backend/internal/logger"
	"credibridge-backend/internal/metrics"
)

type settlementService struct {
	ledger      *ledger.Ledger
	bank        bank.Client
	alerts      AlertService
	metrics     *metrics.Metrics
	callTimeout time.Duration
}

func NewSettlementService(
	l *ledger.Ledger,
	client bank.Client,
	alerts AlertService,
	m *metrics.Metrics,
	callTimeout time.Duration,
) SettlementService {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &settlementService{
		ledger:      l,
		bank:        client,
		alerts:      alerts,
		metrics:     m,
		callTimeout: callTimeout,
	}
}

// transfer is one settlement: money leaves the funding member's account and
// reaches the receiving member (or merchant), then the ledger is updated.
type transfer struct {
	kind        domain.TransactionKind
	fundingID   string
	receivingID string
	toMerchant  bool
	amount      domain.Money
	description string
	requestID   string

	// check validates operation specific preconditions under the member locks,
	// before any remote call. receiving is nil for merchant payments.
	check func(funding, receiving *domain.Member) error

	// apply runs in the ledger batch after balances moved, before recording.
	apply func(tx *ledger.Tx) error

	// after runs in the same batch once the transaction is recorded.
	after func(tx *ledger.Tx, t *domain.Transaction) error
}

func (s *settlementService) CreateLoan(ctx context.Context, familyID, lenderID, borrowerID string, amount domain.Money, description string) (*domain.Transaction, error) {
	logger.EnterMethod("settlementService.CreateLoan", "familyID", familyID, "lenderID", lenderID, "borrowerID", borrowerID, "amount", amount.String())

	if err := validatePair(lenderID, borrowerID, amount); err != nil {
		logger.ExitMethodWithError("settlementService.CreateLoan", err)
		return nil, err
	}

	t, err := s.execute(ctx, &transfer{
		kind:        domain.TransactionKindLoan,
		fundingID:   lenderID,
		receivingID: borrowerID,
		amount:      amount,
		description: description,
		check: func(lender, borrower *domain.Member) error {
			family, err := s.ledger.Family(familyID)
			if err != nil {
				return err
			}
			if !family.HasMember(lender.ID) || !family.HasMember(borrower.ID) {
				return fmt.Errorf("%w: family %s", domain.ErrCrossFamily, familyID)
			}
			return nil
		},
		apply: func(tx *ledger.Tx) error {
			return tx.IncreaseDebt(borrowerID, lenderID, amount)
		},
	})
	if err != nil {
		logger.ExitMethodWithError("settlementService.CreateLoan", err, "lenderID", lenderID, "borrowerID", borrowerID)
		return nil, err
	}

	logger.ExitMethod("settlementService.CreateLoan", "transactionID", t.ID)
	return t, nil
}

// FulfillRequest settles an accepted money request: the funder pays the
// requester, who then owes the funder the amount.
func (s *settlementService) FulfillRequest(ctx context.Context, requestID string) (*domain.MoneyRequest, *domain.Transaction, error) {
	logger.EnterMethod("settlementService.FulfillRequest", "requestID", requestID)

	req, err := s.ledger.Request(requestID)
	if err != nil {
		logger.ExitMethodWithError("settlementService.FulfillRequest", err, "requestID", requestID)
		return nil, nil, err
	}

	t, err := s.execute(ctx, &transfer{
		kind:        domain.TransactionKindRequestFulfilled,
		fundingID:   req.ToID,
		receivingID: req.FromID,
		amount:      req.Amount,
		description: req.Description,
		requestID:   req.ID,
		check: func(_, _ *domain.Member) error {
			return s.checkResolvable(requestID)
		},
		apply: func(tx *ledger.Tx) error {
			return tx.IncreaseDebt(req.FromID, req.ToID, req.Amount)
		},
		after: func(tx *ledger.Tx, _ *domain.Transaction) error {
			return tx.FinishRequest(requestID, domain.RequestStatusAccepted)
		},
	})
	if err != nil {
		logger.ExitMethodWithError("settlementService.FulfillRequest", err, "requestID", requestID)
		return nil, nil, err
	}

	resolved, err := s.ledger.Request(requestID)
	if err != nil {
		return nil, nil, err
	}
	logger.ExitMethod("settlementService.FulfillRequest", "requestID", requestID, "transactionID", t.ID)
	return resolved, t, nil
}

// checkResolvable must run with both request members locked.
func (s *settlementService) checkResolvable(requestID string) error {
	req, err := s.ledger.Request(requestID)
	if err != nil {
		return err
	}
	if !req.IsPending() {
		return fmt.Errorf("%w: request %s is %s", domain.ErrAlreadyResolved, requestID, req.Status)
	}
	if rec, open := s.ledger.OpenReconciliationFor(requestID); open {
		return &domain.UnreconciledError{
			ReconciliationID: rec.ID,
			Operation:        rec.Operation,
			Err:              errors.New("request is awaiting manual reconciliation"),
		}
	}
	return nil
}

func (s *settlementService) ResolveDebt(ctx context.Context, borrowerID, lenderID string, amount domain.Money, description string) (*domain.Transaction, error) {
	logger.EnterMethod("settlementService.ResolveDebt", "borrowerID", borrowerID, "lenderID", lenderID, "amount", amount.String())

	if err := validatePair(borrowerID, lenderID, amount); err != nil {
		logger.ExitMethodWithError("settlementService.ResolveDebt", err)
		return nil, err
	}

	t, err := s.execute(ctx, &transfer{
		kind:        domain.TransactionKindDebtResolution,
		fundingID:   borrowerID,
		receivingID: lenderID,
		amount:      amount,
		description: description,
		check: func(borrower, _ *domain.Member) error {
			owed, ok := borrower.Debts[lenderID]
			if !ok {
				return fmt.Errorf("%w: %s owes nothing to %s", domain.ErrNoSuchDebt, borrowerID, lenderID)
			}
			if amount > owed {
				return fmt.Errorf("%w: %s owes %s to %s, repaying %s", domain.ErrOverRepayment, borrowerID, owed, lenderID, amount)
			}
			return nil
		},
		apply: func(tx *ledger.Tx) error {
			return tx.DecreaseDebt(borrowerID, lenderID, amount)
		},
	})
	if err != nil {
		logger.ExitMethodWithError("settlementService.ResolveDebt", err, "borrowerID", borrowerID, "lenderID", lenderID)
		return nil, err
	}

	logger.ExitMethod("settlementService.ResolveDebt", "transactionID", t.ID)
	return t, nil
}

// PayMerchant pays a merchant in a single remote purchase. Every creditor of
// the paying member gets the purchase added to its shared history.
func (s *settlementService) PayMerchant(ctx context.Context, memberID, merchantID string, amount domain.Money, description string) (*domain.Transaction, error) {
	logger.EnterMethod("settlementService.PayMerchant", "memberID", memberID, "merchantID", merchantID, "amount", amount.String())

	if err := domain.ValidateAmount(amount); err != nil {
		logger.ExitMethodWithError("settlementService.PayMerchant", err)
		return nil, err
	}

	t, err := s.execute(ctx, &transfer{
		kind:        domain.TransactionKindPurchase,
		fundingID:   memberID,
		receivingID: merchantID,
		toMerchant:  true,
		amount:      amount,
		description: description,
		after: func(tx *ledger.Tx, t *domain.Transaction) error {
			creditors, err := tx.CreditorsOf(memberID)
			if err != nil {
				return err
			}
			for _, lenderID := range creditors {
				if err := tx.Share(lenderID, t.ID); err != nil {
					return err
				}
			}
			return nil
		},
	})
	if err != nil {
		logger.ExitMethodWithError("settlementService.PayMerchant", err, "memberID", memberID, "merchantID", merchantID)
		return nil, err
	}

	logger.ExitMethod("settlementService.PayMerchant", "transactionID", t.ID)
	return t, nil
}

// execute runs a transfer:
//  1. resolve both parties and their accounts, check local preconditions
//  2. check the authoritative remote balance of the funding account
//  3. withdraw then deposit (or purchase) at the settlement service
//  4. apply balances, debts and the transaction record in one ledger batch
//
// Nothing changes locally unless every remote call succeeded. Once the
// withdrawal went through the transfer is carried to the end even if ctx is
// canceled, and any later failure opens a reconciliation record.
func (s *settlementService) execute(ctx context.Context, tr *transfer) (t *domain.Transaction, err error) {
	defer func() { s.metrics.ObserveSettlement(tr.kind, err) }()

	lockIDs := []string{tr.fundingID}
	if !tr.toMerchant {
		lockIDs = append(lockIDs, tr.receivingID)
	}
	unlock, err := s.ledger.Locks().Lock(ctx, lockIDs...)
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for member locks: %w", domain.ErrSettlementFailed, err)
	}
	defer unlock()

	funding, receivingAccount, err := s.prepare(tr)
	if err != nil {
		return nil, err
	}

	remote, err := remoteCall(ctx, s, bank.OpGetBalance, func(ctx context.Context) (domain.Money, error) {
		return s.bank.GetBalance(ctx, funding.AccountRef)
	})
	if err != nil {
		return nil, settlementFailed(bank.OpGetBalance, err)
	}
	if remote < tr.amount {
		return nil, fmt.Errorf("%w: account of %s holds %s, needs %s", domain.ErrInsufficientExternalFunds, funding.ID, remote, tr.amount)
	}

	memo := settlementMemo(tr)
	var withdrawalID string
	if tr.toMerchant {
		withdrawalID, err = remoteCall(ctx, s, bank.OpPurchase, func(ctx context.Context) (string, error) {
			return s.bank.Purchase(ctx, funding.AccountRef, receivingAccount, tr.amount, memo)
		})
		if err != nil {
			return nil, settlementFailed(bank.OpPurchase, err)
		}
	} else {
		withdrawalID, err = remoteCall(ctx, s, bank.OpWithdraw, func(ctx context.Context) (string, error) {
			return s.bank.Withdraw(ctx, funding.AccountRef, tr.amount, memo)
		})
		if err != nil {
			return nil, settlementFailed(bank.OpWithdraw, err)
		}
	}

	// Money has left the funding account. The caller can no longer cancel.
	ctx = context.WithoutCancel(ctx)

	if !tr.toMerchant {
		_, err = remoteCall(ctx, s, bank.OpDeposit, func(ctx context.Context) (string, error) {
			return s.bank.Deposit(ctx, receivingAccount, tr.amount, memo)
		})
		if err != nil {
			return nil, s.unreconciled(ctx, tr, funding.AccountRef, receivingAccount, withdrawalID, fmt.Errorf("deposit failed: %w", err))
		}
	}

	t, err = s.commit(tr)
	if err != nil {
		return nil, s.unreconciled(ctx, tr, funding.AccountRef, receivingAccount, withdrawalID, fmt.Errorf("local apply failed: %w", err))
	}

	logger.Info("Settlement completed",
		"kind", tr.kind,
		"transactionID", t.ID,
		"fundingID", tr.fundingID,
		"receivingID", tr.receivingID,
		"amount", tr.amount.String(),
	)
	return t, nil
}

// prepare resolves both parties and runs every local precondition. It returns
// the funding member and the receiving account reference.
func (s *settlementService) prepare(tr *transfer) (*domain.Member, string, error) {
	funding, err := s.ledger.Member(tr.fundingID)
	if err != nil {
		return nil, "", err
	}

	var receiving *domain.Member
	var receivingAccount string
	if tr.toMerchant {
		merchant, err := s.ledger.Merchant(tr.receivingID)
		if err != nil {
			return nil, "", err
		}
		receivingAccount = merchant.ExternalRef
	} else {
		receiving, err = s.ledger.Member(tr.receivingID)
		if err != nil {
			return nil, "", err
		}
		receivingAccount = receiving.AccountRef
	}

	if tr.check != nil {
		if err := tr.check(funding, receiving); err != nil {
			return nil, "", err
		}
	}

	if !funding.HasAccount() {
		return nil, "", fmt.Errorf("%w: member %s", domain.ErrUnknownAccount, funding.ID)
	}
	if receivingAccount == "" {
		return nil, "", fmt.Errorf("%w: %s", domain.ErrUnknownAccount, tr.receivingID)
	}
	if funding.Balance < tr.amount {
		return nil, "", fmt.Errorf("%w: member %s has %s, needs %s", domain.ErrInsufficientBalance, funding.ID, funding.Balance, tr.amount)
	}
	return funding, receivingAccount, nil
}

func (s *settlementService) commit(tr *transfer) (*domain.Transaction, error) {
	var recorded *domain.Transaction
	err := s.ledger.Update(func(tx *ledger.Tx) error {
		if err := tx.Debit(tr.fundingID, tr.amount); err != nil {
			return err
		}
		if !tr.toMerchant {
			if err := tx.Credit(tr.receivingID, tr.amount); err != nil {
				return err
			}
		}
		if tr.apply != nil {
			if err := tr.apply(tx); err != nil {
				return err
			}
		}
		t, err := tx.Record(tr.kind, tr.fundingID, tr.receivingID, tr.amount, tr.description)
		if err != nil {
			return err
		}
		if tr.after != nil {
			if err := tr.after(tx, t); err != nil {
				return err
			}
		}
		recorded = t
		return nil
	})
	return recorded, err
}

// unreconciled opens a reconciliation record for a transfer whose withdrawal
// went through while the rest did not. Local balances are left untouched.
func (s *settlementService) unreconciled(ctx context.Context, tr *transfer, fundingAccount, receivingAccount, withdrawalID string, cause error) error {
	rec := &domain.Reconciliation{
		ID:               s.ledger.NewID(),
		Operation:        tr.kind,
		FundingID:        tr.fundingID,
		ReceivingID:      tr.receivingID,
		FundingAccount:   fundingAccount,
		ReceivingAccount: receivingAccount,
		Amount:           tr.amount,
		WithdrawalID:     withdrawalID,
		RequestID:        tr.requestID,
		Cause:            cause.Error(),
		CreatedAt:        s.ledger.Now(),
	}
	if err := s.ledger.Update(func(tx *ledger.Tx) error { return tx.AddReconciliation(rec) }); err != nil {
		logger.Error("Failed to store reconciliation record", "reconciliationID", rec.ID, "error", err)
	}

	logger.Reconciliation("Settlement needs manual reconciliation",
		"reconciliationID", rec.ID,
		"operation", tr.kind,
		"fundingID", tr.fundingID,
		"receivingID", tr.receivingID,
		"fundingAccount", fundingAccount,
		"receivingAccount", receivingAccount,
		"amount", tr.amount.String(),
		"withdrawalID", withdrawalID,
		"requestID", tr.requestID,
		"error", cause,
	)
	s.metrics.ReconciliationOpened()

	if s.alerts != nil {
		alertCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		if err := s.alerts.NotifyUnreconciled(alertCtx, rec); err != nil {
			logger.Warn("Failed to send reconciliation alert", "reconciliationID", rec.ID, "error", err)
		}
	}

	return &domain.UnreconciledError{ReconciliationID: rec.ID, Operation: tr.kind, Err: cause}
}

// remoteCall runs one settlement service call under the per-call timeout.
func remoteCall[T any](ctx context.Context, s *settlementService, operation string, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	start := time.Now()
	v, err := fn(callCtx)
	s.metrics.ObserveRemoteCall(operation, time.Since(start), err)
	return v, err
}

func settlementFailed(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrSettlementFailed, operation, err)
}

func settlementMemo(tr *transfer) string {
	if tr.description == "" {
		return string(tr.kind)
	}
	return string(tr.kind) + ": " + tr.description
}

func validatePair(fromID, toID string, amount domain.Money) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	if fromID == toID {
		return fmt.Errorf("%w: %s", domain.ErrSelfTransfer, fromID)
	}
	return nil
}
