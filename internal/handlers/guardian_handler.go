package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"readquest/internal/security"
	"readquest/internal/service"
)

// GuardianHandler serves invitations and gated progress views
type GuardianHandler struct {
	guardians *service.GuardianService
}

func NewGuardianHandler(guardians *service.GuardianService) *GuardianHandler {
	return &GuardianHandler{guardians: guardians}
}

type invitationRequest struct {
	RelationshipType string `json:"relationship_type"`
	InvitedEmail     string `json:"invited_email"`
}

func (h *GuardianHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req invitationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	rel, err := h.guardians.CreateInvitation(r.Context(), security.UserIDFrom(r.Context()), req.RelationshipType, req.InvitedEmail)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, rel)
}

func (h *GuardianHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	rel, err := h.guardians.AcceptInvitation(r.Context(), chi.URLParam(r, "code"), security.UserIDFrom(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, rel)
}

func (h *GuardianHandler) RejectInvitation(w http.ResponseWriter, r *http.Request) {
	rel, err := h.guardians.RejectInvitation(r.Context(), chi.URLParam(r, "code"), security.UserIDFrom(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, rel)
}

func (h *GuardianHandler) Relationships(w http.ResponseWriter, r *http.Request) {
	rels, err := h.guardians.ListRelationships(r.Context(), security.UserIDFrom(r.Context()))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, rels)
}

func (h *GuardianHandler) StudentProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.guardians.GetStudentProgress(r.Context(), security.UserIDFrom(r.Context()), chi.URLParam(r, "studentId"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, progress)
}
