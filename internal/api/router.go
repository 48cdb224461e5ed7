package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iconidentify/makanmap/internal/api/handler"
	mw "github.com/iconidentify/makanmap/internal/api/middleware"
	"github.com/iconidentify/makanmap/internal/config"
	"github.com/iconidentify/makanmap/internal/metrics"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Health      *handler.HealthHandler
	Sync        *handler.SyncHandler
	Restaurants *handler.RestaurantHandler
	Channels    *handler.ChannelHandler
	Suggestions *handler.SuggestionHandler
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(h Handlers, cfg config.ServerConfig, m *metrics.Metrics, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger, m))
	r.Use(mw.Recovery(logger))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(mw.CORS(cfg.CORSOrigins))

	// Health checks and metrics (no auth)
	r.Get("/health", h.Health.Live)
	r.Get("/ready", h.Health.Ready)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Get("/restaurants/near", h.Restaurants.Near)
		r.Post("/suggestions", h.Suggestions.Create)

		r.With(mw.SyncAuth(cfg.APIKey, cfg.SyncSecret)).Post("/sync", h.Sync.Trigger)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(mw.APIKeyAuth(cfg.APIKey))

			r.Get("/stats", h.Health.Stats)
			r.Get("/sync/status", h.Sync.Status)

			r.Get("/channels", h.Channels.List)
			r.Post("/channels", h.Channels.Create)
			r.Delete("/channels/{channelID}", h.Channels.Delete)

			r.Get("/suggestions", h.Suggestions.List)
			r.Post("/suggestions/{suggestionID}/approve", h.Suggestions.Approve)
			r.Post("/suggestions/{suggestionID}/reject", h.Suggestions.Reject)
		})
	})

	return r
}
