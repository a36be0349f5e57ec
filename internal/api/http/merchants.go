package http

import (
	"net/http"
)

type createMerchantRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	ExternalRef string `json:"external_ref"`
}

func (h *Handler) CreateMerchant(w http.ResponseWriter, r *http.Request) {
	var req createMerchantRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	merchant, err := h.svc.Merchant.CreateMerchant(r.Context(), req.Name, req.Category, req.Location, req.ExternalRef)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, merchant)
}

func (h *Handler) ListMerchants(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	merchants, err := h.svc.Merchant.ListMerchants(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, merchants)
}
