// Package api serves the HTTP surface: ingestion, queries, alert rule
// management, and the operational endpoints.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/health"
	"github.com/loglens/loglens/internal/ingest"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/metrics"
	"github.com/loglens/loglens/internal/store"
)

// Server owns the HTTP listener and its router.
type Server struct {
	srv             *http.Server
	logger          *logging.Logger
	shutdownTimeout time.Duration
}

// New builds the server with all routes mounted.
func New(cfg config.ServerConfig, ingestCfg config.IngestConfig, svc *ingest.Service, st *store.Store, collector *metrics.Collector, checker *health.Checker, logger *logging.Logger) *Server {
	log := logger.WithComponent("api")
	h := &handlers{svc: svc, store: st, logger: log}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", checker.LivenessHandler())
	r.Get("/readyz", checker.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(maxBody(ingestCfg.MaxBodySize))
			if ingestCfg.RateLimit > 0 {
				r.Use(rateLimit(ingestCfg.RateLimit, ingestCfg.RateBurst, collector))
			}
			r.Post("/ingest", h.ingest)
		})

		r.Get("/logs", h.logs)
		r.Get("/metrics", h.metricSeries)
		r.Get("/categories", h.categories)
		r.Get("/sources", h.sources)
		r.Get("/stats", h.stats)

		r.Get("/alerts", h.alerts)
		r.Post("/alerts/rules", h.createRule)
		r.Delete("/alerts/rules/{id}", h.deleteRule)
		r.Patch("/alerts/rules/{id}", h.updateRule)
	})

	return &Server{
		srv: &http.Server{
			Addr:         cfg.Address,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger:          log,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the configured grace period.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
