// Package httphandler serves the JSON health endpoint and provides the HTTP
// middleware shared by every route.
package httphandler

import (
	"log/slog"
	"net/http"
	"time"
)

// SessionCounter reports how many browser sessions are held in memory.
type SessionCounter interface {
	Len() int
}

// Handler is the JSON driving adapter.
type Handler struct {
	sessions  SessionCounter
	backend   string
	startedAt time.Time
	logger    *slog.Logger
}

// NewHandler creates a Handler. backend names the session key store in use.
func NewHandler(sessions SessionCounter, backend string, logger *slog.Logger) *Handler {
	return &Handler{
		sessions:  sessions,
		backend:   backend,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// RegisterAPIRoutes registers the JSON routes on mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		Time:           now.UTC().Format(time.RFC3339),
		Uptime:         now.Sub(h.startedAt).Round(time.Second).String(),
		SessionBackend: h.backend,
		ActiveSessions: h.sessions.Len(),
	})
}
