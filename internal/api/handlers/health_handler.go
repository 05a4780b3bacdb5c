package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bybo/bybo-be/internal/monitoring"
	"github.com/rs/zerolog/log"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports store reachability and host resource usage.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string                `json:"status"`
	Database string                `json:"database"`
	Host     *monitoring.HostStats `json:"host,omitempty"`
}

// Get handles the health check request.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Health check: database unreachable")
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	if stats, err := monitoring.CollectHostStats(ctx); err == nil {
		resp.Host = &stats
	} else {
		log.Debug().Err(err).Msg("Health check: host stats unavailable")
	}

	writeJSON(w, status, resp)
}
