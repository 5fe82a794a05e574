package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shari-ar/Assets/internal/service"
	"github.com/shari-ar/Assets/pkg/health"
	"github.com/shari-ar/Assets/pkg/middleware"
)

// RouterConfig carries the knobs the router needs beyond its collaborators.
type RouterConfig struct {
	Cookies        CookieConfig
	RateLimitRPS   int
	RateLimitBurst int
}

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(
	authService *service.AuthService,
	gatekeeper *Gatekeeper,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("auth"))
	r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(authService, cfg.Cookies, logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(ContentTypeJSON)

			// Public endpoints
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.Get("/status", authHandler.Status)

			// Authenticated endpoints
			r.Group(func(r chi.Router) {
				r.Use(gatekeeper.Authenticate)

				r.Get("/me", authHandler.Me)
			})
		})

		// Application module heartbeats sit behind the auth boundary.
		r.Group(func(r chi.Router) {
			r.Use(gatekeeper.Authenticate)

			for _, name := range moduleNames {
				r.Get("/"+name+"/status", ModuleStatus(name))
			}
		})
	})

	return r
}
