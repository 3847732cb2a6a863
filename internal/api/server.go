// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the nfoscan daemon over HTTP: scan trigger, last report,
// health probes and Prometheus metrics.
package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/nfoscan/internal/api/middleware"
	"github.com/ManuGH/nfoscan/internal/health"
	"github.com/ManuGH/nfoscan/internal/library"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scanner runs library scans on behalf of the API.
type Scanner interface {
	Run(ctx context.Context) (*library.Report, error)
	LastReport() (*library.Report, bool)
}

// Config configures the API router.
type Config struct {
	TracingService string // empty disables request tracing
	// ScanLimiter overrides the scan trigger rate limit. Nil uses middleware.ScanRateLimit.
	ScanLimiter func(http.Handler) http.Handler
}

// Server serves the daemon API.
type Server struct {
	scans  Scanner
	health *health.Manager
	router chi.Router
}

// New builds the API server and its routes.
func New(cfg Config, scans Scanner, hm *health.Manager) *Server {
	s := &Server{scans: scans, health: hm}

	limiter := cfg.ScanLimiter
	if limiter == nil {
		limiter = middleware.ScanRateLimit()
	}

	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: cfg.TracingService,
		EnableLogging:  true,
	})
	r.Get("/healthz", hm.ServeHealth)
	r.Get("/readyz", hm.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.With(limiter).Post("/scans", s.handleTriggerScan)
		r.Get("/scans/last", s.handleLastScan)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
