package handlers

import (
	"net/http"
	"strconv"

	"github.com/bybo/bybo-be/internal/services"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 200
)

// EventHandler handles HTTP requests related to activity events.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get recent activity, optionally for one listing.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	events, err := h.service.GetRecentEvents(r.Context(), limit, r.URL.Query().Get("listingId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
