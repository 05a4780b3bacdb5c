package handlers

import (
	"net/http"

	"github.com/bybo/bybo-be/internal/services"
	ws "github.com/bybo/bybo-be/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades connections that watch one listing's availability.
type WebSocketHandler struct {
	hub      *ws.Hub
	bookings services.BookingServiceProvider
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Browser connections are
// accepted only from allowedOrigins; an empty list allows any origin.
func NewWebSocketHandler(hub *ws.Hub, bookings services.BookingServiceProvider, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		hub:      hub,
		bookings: bookings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed[origin]
			},
		},
	}
}

// Serve subscribes the connection to the listing and sends this client an initial snapshot.
// The snapshot is loaded after subscribing, so any change it misses arrives as a later frame.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "id")
	if _, err := h.bookings.Availability(r.Context(), listingID); err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, listingID)
	if !h.hub.Subscribe(client) {
		conn.Close()
		return
	}

	availability, err := h.bookings.Availability(r.Context(), listingID)
	if err != nil {
		log.Warn().Err(err).Str("listing_id", listingID).Msg("Failed to load availability snapshot")
		client.WriteDirect(ws.NewErrorMessage("availability unavailable"))
	} else if err := client.WriteDirect(ws.NewAvailabilityMessage(availability)); err != nil {
		log.Debug().Err(err).Str("listing_id", listingID).Msg("Failed to send availability snapshot")
	}

	go client.WritePump()
	go client.ReadPump()
}
