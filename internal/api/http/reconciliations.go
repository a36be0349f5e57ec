package http

import (
	"net/http"
)

type closeReconciliationRequest struct {
	Note string `json:"note"`
}

// ListReconciliations returns open records unless ?all=true is given.
func (h *Handler) ListReconciliations(w http.ResponseWriter, r *http.Request) {
	openOnly := r.URL.Query().Get("all") != "true"
	recs, err := h.svc.Reconciliation.ListReconciliations(r.Context(), openOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) CloseReconciliation(w http.ResponseWriter, r *http.Request) {
	var req closeReconciliationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.svc.Reconciliation.CloseReconciliation(r.Context(), pathVar(r, "id"), req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
