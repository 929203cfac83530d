// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

// Package main is the entry point for the Tastemap server.
//
// Tastemap serves personalized restaurant recommendations over a REST
// API. It loads restaurant reference data, user profiles, and rating
// history from disk, scores candidates with a trained regression
// predictor plus hand-tuned composite heuristics, and blends
// collaborative and content-based filtering for users with rating
// history.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables layered over a config file
//     and built-in defaults (Koanf v2)
//  2. Engine: the scoring engine; empty until the first snapshot swap
//  3. Data provider: file-backed reads wrapped in a circuit breaker
//  4. Sync manager: periodic snapshot rebuilds with retry
//  5. Feedback store (optional): BadgerDB log of served results
//  6. HTTP server: REST API plus Prometheus metrics
//
// The sync manager and HTTP server run under a suture supervisor tree
// with separate data and api layers, so a crashing rebuild loop never
// takes the API down with it.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (TASTEMAP_ prefix, e.g. TASTEMAP_SERVER_PORT)
//   - Config file (config.yaml, or TASTEMAP_CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, waits for in-flight requests to complete
// (10s timeout), stops the sync worker, and closes the feedback store.
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

	"github.com/tastemap/tastemap/internal/api"
	"github.com/tastemap/tastemap/internal/config"
	"github.com/tastemap/tastemap/internal/feedback"
	"github.com/tastemap/tastemap/internal/logging"
	"github.com/tastemap/tastemap/internal/recommend"
	"github.com/tastemap/tastemap/internal/supervisor"
	"github.com/tastemap/tastemap/internal/supervisor/services"
	tmsync "github.com/tastemap/tastemap/internal/sync"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Tastemap with supervisor tree")
	logging.Info().
		Str("data_dir", cfg.Data.Dir).
		Dur("sync_interval", cfg.Sync.Interval).
		Bool("feedback_enabled", cfg.Feedback.Enabled).
		Msg("Configuration loaded")

	engine, err := recommend.NewEngine(cfg.Engine, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize recommendation engine")
	}

	// File reads go through a circuit breaker so a corrupt or missing
	// data directory trips fast instead of hammering retries.
	provider := tmsync.NewBreakerProvider(tmsync.NewFileProvider(
		cfg.Data.Dir,
		cfg.Data.RestaurantsFile,
		cfg.Data.ProfilesFile,
		cfg.Data.InteractionsFile,
		cfg.Data.ModelFile,
	))
	manager := tmsync.NewManager(provider, engine, cfg.Sync, logging.Logger())

	var fbStore *feedback.Store
	if cfg.Feedback.Enabled {
		fbStore, err = feedback.Open(cfg.Feedback.Path, cfg.Feedback.RetentionDays, logging.Logger())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open feedback store")
		}
		defer func() {
			if err := fbStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing feedback store")
			}
		}()
		logging.Info().Str("path", cfg.Feedback.Path).Msg("Feedback store opened")
	} else {
		logging.Info().Msg("Feedback store disabled")
	}

	handler := api.NewHandler(engine, manager, fbStore, logging.Logger())
	router := api.NewRouter(&cfg.Server, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddDataService(manager)
	logging.Info().Msg("Sync manager added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished).
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Tastemap stopped gracefully")
}
