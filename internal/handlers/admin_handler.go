package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"readquest/internal/live"
	"readquest/internal/security"
	"readquest/internal/service"
)

// AdminHandler handles admin-specific routes
type AdminHandler struct {
	analytics  *service.AnalyticsService
	roles      *service.RoleService
	books      *service.BookService
	quizzes    *service.QuizService
	events     *service.EventService
	hub        *live.Hub
	middleware *Middleware
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(analytics *service.AnalyticsService, roles *service.RoleService, books *service.BookService, quizzes *service.QuizService, events *service.EventService, hub *live.Hub, middleware *Middleware) *AdminHandler {
	return &AdminHandler{
		analytics:  analytics,
		roles:      roles,
		books:      books,
		quizzes:    quizzes,
		events:     events,
		hub:        hub,
		middleware: middleware,
	}
}

func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	overview, err := h.analytics.Overview(r.Context(), parseInt(r.URL.Query().Get("days"), 0))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, overview)
}

// RecomputePopularity rebuilds the popularity aggregate now instead of
// waiting for the next tick
func (h *AdminHandler) RecomputePopularity(w http.ResponseWriter, r *http.Request) {
	if err := h.analytics.RecomputePopularity(r.Context()); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.Recent(r.Context(), parseInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *AdminHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"roles": roles})
}

type grantRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (h *AdminHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	var req grantRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, err)
		return
	}

	created, err := h.roles.Grant(r.Context(), req.UserID, req.Role)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, map[string]any{"user_id": req.UserID, "role": req.Role, "created": created})
}

func (h *AdminHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	removed, err := h.roles.Revoke(r.Context(), chi.URLParam(r, "userId"), chi.URLParam(r, "role"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if !removed {
		WriteError(w, http.StatusNotFound, CodeNotFound, "Role not granted")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.books.Delete(r.Context(), chi.URLParam(r, "bookId")); err != nil {
		respondWithError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) DeleteTemplates(w http.ResponseWriter, r *http.Request) {
	n, err := h.quizzes.DeleteTemplates(r.Context(), chi.URLParam(r, "bookId"))
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

// LiveEvents streams recorded events over a websocket. Browsers cannot set
// headers on the upgrade request, so the token comes in the query string.
func (h *AdminHandler) LiveEvents(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication failed")
		return
	}
	id, err := h.middleware.tokens.Verify(token)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication failed")
		return
	}
	ok, err := h.middleware.isAdmin(r.Context(), id)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if !ok {
		WriteError(w, http.StatusForbidden, CodeForbidden, "Not allowed")
		return
	}

	h.hub.Serve(w, r.WithContext(security.WithIdentity(r.Context(), id)))
}
