// Reminisce - Nostalgic Media Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reminisce

// Package main is the entry point for the Reminisce server.
//
// Reminisce serves personalized nostalgic media recommendations using a
// hierarchical contextual bandit. Startup order:
//
//  1. Configuration (Koanf v2: defaults, YAML file, environment)
//  2. Logging (zerolog, global logger)
//  3. DuckDB feedback database
//  4. Badger model store behind a circuit breaker
//  5. Hierarchical bandit engine (loads the global model)
//  6. Supervisor tree: periodic model flush + HTTP server
//
// Shutdown on SIGINT/SIGTERM drains in-flight requests, stops the
// supervisor tree, then closes the bandit engine (which flushes all
// cached models), the model store, and the database, in that order.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/reminisce/internal/api"
	"github.com/tomtom215/reminisce/internal/config"
	"github.com/tomtom215/reminisce/internal/database"
	"github.com/tomtom215/reminisce/internal/logging"
	"github.com/tomtom215/reminisce/internal/recommend"
	"github.com/tomtom215/reminisce/internal/recommend/bandit"
	"github.com/tomtom215/reminisce/internal/recommend/storage"
	"github.com/tomtom215/reminisce/internal/supervisor"
	"github.com/tomtom215/reminisce/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("Starting Reminisce")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Fatal error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	// Feedback history and user preferences.
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer closeWithLog(db.Close, "database")

	// Model store: Badger behind a circuit breaker so a corrupted or
	// slow disk degrades selection instead of failing it.
	badgerStore, err := storage.NewBadgerStore(cfg.Storage.Path, logging.Logger())
	if err != nil {
		return fmt.Errorf("model store: %w", err)
	}
	defer closeWithLog(badgerStore.Close, "model store")
	store := storage.NewBreakerStore(badgerStore, logging.Logger())

	engine, err := bandit.New(bandit.Config{
		Alpha:            cfg.Bandit.Alpha,
		MinUserUpdates:   cfg.Bandit.MinUserUpdates,
		CacheSize:        cfg.Bandit.CacheSize,
		FlushThreshold:   cfg.Bandit.FlushThreshold,
		BlendRampUpdates: cfg.Bandit.BlendRampUpdates,
		MaxUserWeight:    cfg.Bandit.MaxUserWeight,
		StoreTimeout:     cfg.Bandit.StoreTimeout,
	}, store, logging.Logger())
	if err != nil {
		return fmt.Errorf("bandit engine: %w", err)
	}
	defer closeWithLog(engine.Close, "bandit engine")

	selector := recommend.NewSelector(engine, recommend.SelectorConfig{
		MinNostalgiaScore: cfg.Recommend.MinNostalgiaScore,
		MaxMovieRatings:   cfg.Recommend.MaxMovieRatings,
		MaxSongPopularity: cfg.Recommend.MaxSongPopularity,
		TopN:              cfg.Recommend.TopN,
	}, logging.Logger())

	handlers := api.NewHandlers(db, engine, selector, logging.Logger())
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(&cfg.Server, handlers),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(services.NewFlushService(engine, cfg.Storage.FlushInterval, logging.Logger()))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.Root().UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
	}
	return nil
}

// closeWithLog runs a close function during shutdown and logs failures
// instead of masking the primary error.
func closeWithLog(closeFn func() error, name string) {
	start := time.Now()
	if err := closeFn(); err != nil {
		logging.Error().Err(err).Str("component", name).Msg("Close failed")
		return
	}
	logging.Debug().Str("component", name).Dur("took", time.Since(start)).Msg("Closed")
}
