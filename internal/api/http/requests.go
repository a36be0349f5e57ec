package http

import (
	"net/http"

	"credibridge-backend/internal/domain"
)

type createMoneyRequestRequest struct {
	FromID      string       `json:"from_id"`
	ToID        string       `json:"to_id"`
	Amount      domain.Money `json:"amount"`
	Description string       `json:"description"`
}

type resolveMoneyRequestRequest struct {
	Accept *bool `json:"accept"`
}

type resolveMoneyRequestResponse struct {
	Request     *domain.MoneyRequest `json:"request"`
	Transaction *domain.Transaction  `json:"transaction,omitempty"`
}

func (h *Handler) CreateMoneyRequest(w http.ResponseWriter, r *http.Request) {
	var req createMoneyRequestRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.svc.MoneyRequest.CreateRequest(r.Context(), req.FromID, req.ToID, req.Amount, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetMoneyRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.MoneyRequest.GetRequest(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) ResolveMoneyRequest(w http.ResponseWriter, r *http.Request) {
	var req resolveMoneyRequestRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Accept == nil {
		writeError(w, r, errBadRequest)
		return
	}
	resolved, t, err := h.svc.MoneyRequest.ResolveRequest(r.Context(), pathVar(r, "id"), *req.Accept)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveMoneyRequestResponse{Request: resolved, Transaction: t})
}
