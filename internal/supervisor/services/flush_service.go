// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/reminisce/internal/recommend/bandit"
)

// ModelFlusher is implemented by the bandit engine.
type ModelFlusher interface {
	Flush(ctx context.Context) error
}

// FlushService periodically writes dirty bandit models to the store,
// bounding how much learning a crash can lose between the engine's
// count-based flushes.
type FlushService struct {
	flusher  ModelFlusher
	interval time.Duration
	logger   zerolog.Logger
}

// NewFlushService creates a flush service with the given interval.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewFlushService(flusher ModelFlusher, interval time.Duration, logger zerolog.Logger) *FlushService {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &FlushService{
		flusher:  flusher,
		interval: interval,
		logger:   logger.With().Str("component", "flush-service").Logger(),
	}
}

// Serve implements suture.Service: one flush per interval until the
// context is canceled. Flush errors are logged and retried on the next
// tick rather than crashing the service; a closed engine stops it.
func (f *FlushService) Serve(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(f.interval), 1)

	// Consume the initial token so the first flush waits a full interval.
	_ = limiter.Allow()

	for {
		if err := limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		if err := f.flusher.Flush(ctx); err != nil {
			if errors.Is(err, bandit.ErrClosed) {
				f.logger.Debug().Msg("engine closed, stopping flush service")
				return nil
			}
			f.logger.Warn().Err(err).Msg("periodic model flush failed")
			continue
		}
		f.logger.Debug().Msg("periodic model flush complete")
	}
}

// String implements fmt.Stringer for supervisor logging.
func (f *FlushService) String() string {
	return "model-flush"
}
