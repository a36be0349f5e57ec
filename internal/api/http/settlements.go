package http

import (
	"net/http"

	"credibridge-backend/internal/domain"
)

type createLoanRequest struct {
	LenderID    string       `json:"lender_id"`
	BorrowerID  string       `json:"borrower_id"`
	Amount      domain.Money `json:"amount"`
	Description string       `json:"description"`
}

type resolveDebtRequest struct {
	BorrowerID  string       `json:"borrower_id"`
	LenderID    string       `json:"lender_id"`
	Amount      domain.Money `json:"amount"`
	Description string       `json:"description"`
}

type payMerchantRequest struct {
	MemberID    string       `json:"member_id"`
	Amount      domain.Money `json:"amount"`
	Description string       `json:"description"`
}

func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.svc.Settlement.CreateLoan(r.Context(), pathVar(r, "id"), req.LenderID, req.BorrowerID, req.Amount, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) ResolveDebt(w http.ResponseWriter, r *http.Request) {
	var req resolveDebtRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.svc.Settlement.ResolveDebt(r.Context(), req.BorrowerID, req.LenderID, req.Amount, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) PayMerchant(w http.ResponseWriter, r *http.Request) {
	var req payMerchantRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.svc.Settlement.PayMerchant(r.Context(), req.MemberID, pathVar(r, "id"), req.Amount, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}
