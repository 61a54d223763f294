package handler

import (
	"net/http"

	"github.com/efreitasn/escrowbook/internal/domain"
	"github.com/efreitasn/escrowbook/internal/store"
)

// EventHandler serves the append-only event log.
type EventHandler struct {
	events *store.EventLog
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *store.EventLog) *EventHandler {
	return &EventHandler{events: events}
}

// eventListResponse is the JSON response for GET /events.
type eventListResponse struct {
	Events []domain.Event `json:"events"`
}

// List handles GET /events?type=order.filled. Without a type filter
// every event is returned, in operation order.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter *domain.EventType
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := domain.EventType(raw)
		filter = &t
	}

	WriteJSON(w, http.StatusOK, eventListResponse{
		Events: h.events.List(filter),
	})
}
