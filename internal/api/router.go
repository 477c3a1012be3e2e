// Package api provides the HTTP surface of the ingestion service: run
// triggers, run history, operational endpoints, and the admin gates.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/envlake/envlake/internal/api/handler"
	"github.com/envlake/envlake/internal/api/middleware"
	"github.com/envlake/envlake/internal/featureflags"
	"github.com/envlake/envlake/internal/runlog"
	"github.com/envlake/envlake/internal/worker"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	ServiceName string
	Logger      zerolog.Logger
	Metrics     *middleware.Metrics

	Runner    *worker.Runner
	History   runlog.Repository
	Flags     *featureflags.Service
	FlagsRepo featureflags.Repository
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "envlake-ingest"
	}

	// Global middleware, outermost first.
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime)
	ingestHandler := handler.NewIngestHandler(cfg.Runner, cfg.History)
	flagsHandler := handler.NewFeatureFlagsHandler(cfg.Flags, cfg.FlagsRepo)

	triggerRateLimit := middleware.RateLimitByIP(middleware.TriggerRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Triggering a run is expensive; keep the limit tight.
		r.With(triggerRateLimit).Post("/ingest/{source}", ingestHandler.TriggerRun)

		r.Route("/runs", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", ingestHandler.ListRuns)
			r.Get("/{runId}", ingestHandler.GetRun)
		})

		r.Route("/admin/feature-flags", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", flagsHandler.ListFlags)
			r.Put("/sources/{source}", flagsHandler.SetSourceGate)
		})
	})

	return r
}
