package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GatewayStats is the read-only view of the gateway the health check reports.
type GatewayStats interface {
	Connections() int
	OnlineUsers() int
}

// HealthHandler handles health-check and test endpoints.
type HealthHandler struct {
	stats GatewayStats
}

func NewHealthHandler(stats GatewayStats) *HealthHandler { return &HealthHandler{stats: stats} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "status":
		if h.stats == nil {
			writeError(w, http.StatusServiceUnavailable, "gateway not running")
			return
		}
		writeJSON(w, http.StatusOK, StatusEnvelope{
			Message:     "ok",
			Connections: h.stats.Connections(),
			OnlineUsers: h.stats.OnlineUsers(),
		})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func (h *HealthHandler) Test(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "ok"})
}
