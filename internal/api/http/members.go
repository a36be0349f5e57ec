package http

import (
	"net/http"

	"credibridge-backend/internal/domain"
)

type registerMemberRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type moneyRequestsResponse struct {
	Sent     []domain.MoneyRequest `json:"sent"`
	Received []domain.MoneyRequest `json:"received"`
}

func (h *Handler) RegisterMember(w http.ResponseWriter, r *http.Request) {
	var req registerMemberRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	member, err := h.svc.Member.Register(r.Context(), req.FirstName, req.LastName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.svc.Member.ListMembers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.svc.Member.GetMember(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.Member.ListTransactions(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) ListMoneyRequests(w http.ResponseWriter, r *http.Request) {
	sent, received, err := h.svc.Member.ListMoneyRequests(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moneyRequestsResponse{Sent: sent, Received: received})
}

func (h *Handler) ListBorrowers(w http.ResponseWriter, r *http.Request) {
	borrowers, err := h.svc.Member.ListBorrowers(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if borrowers == nil {
		borrowers = []domain.BorrowerSummary{}
	}
	writeJSON(w, http.StatusOK, borrowers)
}
