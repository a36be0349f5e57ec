package http

import (
	"net/http"
)

type createFamilyRequest struct {
	Name string `json:"name"`
}

type addFamilyMemberRequest struct {
	MemberID string `json:"member_id"`
}

func (h *Handler) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var req createFamilyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	family, err := h.svc.Family.CreateFamily(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, family)
}

func (h *Handler) GetFamily(w http.ResponseWriter, r *http.Request) {
	family, err := h.svc.Family.GetFamily(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *Handler) ListFamilyMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.svc.Family.ListFamilyMembers(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) AddFamilyMember(w http.ResponseWriter, r *http.Request) {
	var req addFamilyMemberRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	family, err := h.svc.Family.AddMemberToFamily(r.Context(), pathVar(r, "id"), req.MemberID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, family)
}
