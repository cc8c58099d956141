// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/reminisce/internal/config"
	"github.com/tomtom215/reminisce/internal/middleware"
)

// NewRouter assembles the HTTP routes with the shared middleware stack.
func NewRouter(cfg *config.ServerConfig, handlers *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	r.Route("/api/v1/recommend", func(r chi.Router) {
		r.Use(rateLimit(cfg))
		r.Use(middleware.PrometheusMetrics)

		r.Post("/", handlers.Recommend)
		r.Post("/feedback", handlers.Feedback)
		r.Post("/warmstart", handlers.WarmStart)
		r.Get("/status", handlers.Status)
	})

	r.Get("/healthz", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rateLimit returns an IP-keyed limiter; zero config disables it.
func rateLimit(cfg *config.ServerConfig) func(http.Handler) http.Handler {
	requests := cfg.RateLimitReqs
	window := cfg.RateLimitWindow
	if requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if window <= 0 {
		window = time.Minute
	}

	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
	)
}
