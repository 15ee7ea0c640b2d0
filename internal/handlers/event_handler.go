package handlers

import (
	"net/http"

	"readquest/internal/security"
	"readquest/internal/service"
	"readquest/internal/validation"
)

// EventHandler accepts analytics events from the client
type EventHandler struct {
	events *service.EventService
}

func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// RecordEvent stores a validated event. The user id always comes from the
// token: authenticated callers get theirs, anonymous events carry none.
func (h *EventHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var in validation.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithError(w, r, err)
		return
	}

	in.UserID = nil
	if userID := security.UserIDFrom(r.Context()); userID != "" {
		in.UserID = &userID
	}

	event, err := h.events.Record(r.Context(), in)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, event)
}
