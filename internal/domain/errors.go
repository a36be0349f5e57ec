package domain

import (
	"errors"
	"fmt"
)

// Local precondition errors. These are always returned before any call to the
// external settlement service is made.
var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrNegativeResult      = errors.New("result would be negative")
	ErrUnknownMember       = errors.New("member not found")
	ErrMembersNotFound     = fmt.Errorf("%w: invalid member ids", ErrUnknownMember)
	ErrUnknownAccount      = errors.New("no linked external account")
	ErrUnknownMerchant     = errors.New("merchant not found")
	ErrCrossFamily         = errors.New("members must be in the same family")
	ErrSelfTransfer        = errors.New("source and destination must differ")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoSuchDebt          = errors.New("no such debt")
	ErrOverRepayment       = errors.New("repayment exceeds outstanding debt")
	ErrRequestNotFound     = errors.New("money request not found")
	ErrAlreadyResolved     = errors.New("money request already resolved")
	ErrFamilyNotFound      = errors.New("family not found")
	ErrAlreadyInFamily     = errors.New("member already belongs to a family")
	ErrInvalidName         = errors.New("name must not be blank")

	ErrReconciliationNotFound = errors.New("reconciliation record not found")
	ErrReconciliationClosed   = errors.New("reconciliation record already closed")
)

// Settlement errors.
var (
	// ErrInsufficientExternalFunds means the authoritative remote balance of the
	// funding account is below the amount.
	ErrInsufficientExternalFunds = errors.New("insufficient external funds")

	// ErrSettlementFailed means a remote call failed or timed out before any money
	// moved. Nothing was mutated locally; retrying from scratch is safe.
	ErrSettlementFailed = errors.New("settlement failed")

	// ErrUnreconciledSettlement means money left the funding account remotely but
	// the matching deposit (or the local bookkeeping) did not complete. It must not
	// be retried automatically.
	ErrUnreconciledSettlement = errors.New("unreconciled settlement")
)

// UnreconciledError reports a settlement that needs manual reconciliation.
type UnreconciledError struct {
	ReconciliationID string
	Operation        TransactionKind
	Err              error
}

func (e *UnreconciledError) Error() string {
	return fmt.Sprintf("%s: %s (reconciliation %s): %v", ErrUnreconciledSettlement, e.Operation, e.ReconciliationID, e.Err)
}

func (e *UnreconciledError) Is(target error) bool {
	return target == ErrUnreconciledSettlement
}

func (e *UnreconciledError) Unwrap() error {
	return e.Err
}
