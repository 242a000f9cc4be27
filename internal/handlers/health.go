package handlers

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks store connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new health handler. db may be nil for the memory store.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
