package http

import (
	"errors"
	"net/http"

	"credibridge-backend/internal/domain"
)

type errorResponse struct {
	Error            string `json:"error"`
	ReconciliationID string `json:"reconciliation_id,omitempty"`
}

var errBadRequest = errors.New("malformed request body")

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnreconciledSettlement):
		// money already left the funding account; an operator must reconcile
		return http.StatusInternalServerError
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSelfTransfer),
		errors.Is(err, domain.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownMember),
		errors.Is(err, domain.ErrUnknownMerchant),
		errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, domain.ErrFamilyNotFound),
		errors.Is(err, domain.ErrReconciliationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrAlreadyInFamily),
		errors.Is(err, domain.ErrReconciliationClosed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientExternalFunds),
		errors.Is(err, domain.ErrNoSuchDebt),
		errors.Is(err, domain.ErrOverRepayment),
		errors.Is(err, domain.ErrCrossFamily),
		errors.Is(err, domain.ErrUnknownAccount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSettlementFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(err error) errorResponse {
	body := errorResponse{Error: err.Error()}
	var unreconciled *domain.UnreconciledError
	if errors.As(err, &unreconciled) {
		body.ReconciliationID = unreconciled.ReconciliationID
	}
	return body
}
