// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Bandit selection and learning throughput
// - User model cache efficiency
// - Model store performance and circuit breaker state
// - Feedback database queries
// - API endpoint latency and throughput

var (
	// Bandit Metrics
	BanditSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandit_selections_total",
			Help: "Total number of bandit selections by decision source",
		},
		[]string{"source"}, // "global", "user", "random"
	)

	BanditUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bandit_updates_total",
			Help: "Total number of reward updates applied to the bandit",
		},
	)

	BanditWarmStarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bandit_warm_starts_total",
			Help: "Total number of user models warm-started from onboarding selections",
		},
	)

	ModelFlushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bandit_model_flushes_total",
			Help: "Total number of dirty-model flush passes",
		},
	)

	ModelFlushErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bandit_model_flush_errors_total",
			Help: "Total number of model persistence failures during flush",
		},
	)

	ModelLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bandit_model_loads_total",
			Help: "Total number of model loads by outcome",
		},
		[]string{"outcome"}, // "loaded", "created", "corrupted"
	)

	// User Model Cache Metrics
	UserModelCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "user_model_cache_hits_total",
			Help: "Total number of user model cache hits",
		},
	)

	UserModelCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "user_model_cache_misses_total",
			Help: "Total number of user model cache misses",
		},
	)

	UserModelCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "user_model_cache_evictions_total",
			Help: "Total number of user models evicted from the LRU cache",
		},
	)

	UserModelCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "user_model_cache_entries",
			Help: "Current number of user models held in memory",
		},
	)

	// Model Store Metrics
	ModelStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_store_operation_duration_seconds",
			Help:    "Duration of model store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "get", "put"
	)

	ModelStoreBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_store_circuit_breaker_state",
			Help: "Model store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Feedback Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	FeedbackRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_recorded_total",
			Help: "Total number of feedback events recorded by interaction type",
		},
		[]string{"interaction"},
	)

	// Recommendation Pipeline Metrics
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Total number of recommendations served by content domain",
		},
		[]string{"domain"}, // "movie", "song"
	)

	RecommendationCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_candidate_pool_size",
			Help:    "Number of candidates considered per recommendation",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// ObserveModelStore records the duration of a model store operation.
func ObserveModelStore(operation string, duration time.Duration) {
	ModelStoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetStoreBreakerState maps a circuit breaker state name to its gauge value.
func SetStoreBreakerState(state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	ModelStoreBreakerState.Set(v)
}

// RecordDBQuery records the duration of a feedback database query and
// counts errors.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
