package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"genbridge/internal/http/handlers"
	"genbridge/internal/infra"
	"genbridge/internal/middleware"
)

// NewRouter mounts the public surface. Webhooks and the tracking redirect
// sit outside the identity and rate-limit middleware: callbacks authenticate
// with their own signature, and the redirect must never bounce a paying
// customer.
func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/v1/healthz", app.Health)
	r.Method(stdhttp.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/v1/webhooks/{provider}", app.WebhookCallback)
	r.Get("/track", app.Track)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity)
		r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))

		r.Route("/v1/generations", func(r chi.Router) {
			r.Post("/", app.GenerationsSubmit)
			r.Get("/{job_id}", app.GenerationStatus)
		})

		r.Route("/v1/credits", func(r chi.Router) {
			r.Get("/", app.CreditsBalance)
			r.Get("/movements", app.CreditsMovements)
		})
	})

	return r
}
