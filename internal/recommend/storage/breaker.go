// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/reminisce/internal/metrics"
)

// BreakerStore wraps a ModelStore with a circuit breaker so that a
// failing backing store sheds load instead of stalling every request.
// Gets and Puts share one breaker; a broken disk breaks both paths.
//
// Circuit breaker configuration:
// - Max 3 requests in half-open state
// - 1 minute measurement window
// - 30 second timeout before attempting recovery
// - Opens after 60% failure rate with minimum 5 requests
type BreakerStore struct {
	inner  ModelStore
	cb     *gobreaker.CircuitBreaker[*Record]
	logger zerolog.Logger
}

// NewBreakerStore wraps inner with circuit breaker protection.
func NewBreakerStore(inner ModelStore, logger zerolog.Logger) *BreakerStore {
	log := logger.With().Str("component", "model_store_breaker").Logger()

	cb := gobreaker.NewCircuitBreaker[*Record](gobreaker.Settings{
		Name:        "model-store",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("model store circuit state transition")
			metrics.SetStoreBreakerState(to.String())
		},

		// ErrNotFound is an answer, not a failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})

	return &BreakerStore{inner: inner, cb: cb, logger: log}
}

// Get implements ModelStore.
func (s *BreakerStore) Get(ctx context.Context, modelID string) (*Record, error) {
	return s.cb.Execute(func() (*Record, error) {
		return s.inner.Get(ctx, modelID)
	})
}

// Put implements ModelStore.
func (s *BreakerStore) Put(ctx context.Context, rec *Record) error {
	_, err := s.cb.Execute(func() (*Record, error) {
		return nil, s.inner.Put(ctx, rec)
	})
	return err
}

// Close implements ModelStore.
func (s *BreakerStore) Close() error {
	return s.inner.Close()
}
