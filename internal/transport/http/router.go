package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ugram-notify/internal/config"
	"github.com/ugram-notify/internal/observability/metrics"
	"github.com/ugram-notify/internal/transport/http/handler"
	appmiddleware "github.com/ugram-notify/internal/transport/http/middleware"
)

// Gateway is the WebSocket endpoint plus the counters the health check reports.
type Gateway interface {
	http.Handler
	handler.GatewayStats
}

// Deps holds the components the router mounts.
type Deps struct {
	Gateway  Gateway
	Metrics  *metrics.NotificationMetrics
	// Producer backs the internal push routes when cfg.IngestToken is set.
	Producer handler.Producer
	// Limiter guards the WebSocket upgrade. Nil disables it.
	Limiter  *appmiddleware.RateLimiter
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		// The session cookie rides on the WebSocket handshake.
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limit := func(next http.Handler) http.Handler { return next }
	if deps.Limiter != nil {
		limit = deps.Limiter.Limit
	}

	healthH := handler.NewHealthHandler(deps.Gateway)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.Get("/test", healthH.Test)
		r.Post("/test", healthH.Test)

		if deps.Gateway != nil {
			r.With(limit).Get("/notifications/ws", deps.Gateway.ServeHTTP)
		}

		if deps.Producer != nil && cfg.IngestToken != "" {
			notifH := handler.NewNotificationHandler(deps.Producer)
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireToken(cfg.IngestToken))
				r.Post("/notifications/likes", notifH.Like)
				r.Post("/notifications/comments", notifH.Comment)
			})
		}
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return r
}
