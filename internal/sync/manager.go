// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tastemap/tastemap/internal/config"
	"github.com/tastemap/tastemap/internal/metrics"
	"github.com/tastemap/tastemap/internal/recommend"
)

// ErrRebuildInProgress is returned when a rebuild is requested while one
// is already running.
var ErrRebuildInProgress = errors.New("snapshot rebuild already in progress")

// Manager owns snapshot construction. One Manager serves one Engine; the
// rebuilding flag guarantees at most one build at a time without ever
// blocking recommendation reads, which keep using the previous snapshot
// until the swap.
type Manager struct {
	provider DataProvider
	engine   *recommend.Engine
	cfg      config.SyncConfig
	logger   zerolog.Logger

	rebuilding atomic.Bool
}

// NewManager wires a manager to its provider and engine.
func NewManager(provider DataProvider, engine *recommend.Engine, cfg config.SyncConfig, logger zerolog.Logger) *Manager {
	return &Manager{
		provider: provider,
		engine:   engine,
		cfg:      cfg,
		logger:   logger.With().Str("component", "sync").Logger(),
	}
}

// Rebuilding reports whether a rebuild is currently running.
func (m *Manager) Rebuilding() bool {
	return m.rebuilding.Load()
}

// Rebuild fetches fresh data, assembles a snapshot, and swaps it into
// the engine. Provider failures retry with doubling backoff up to the
// configured attempt budget. Returns ErrRebuildInProgress when a rebuild
// is already running.
func (m *Manager) Rebuild(ctx context.Context) error {
	if !m.rebuilding.CompareAndSwap(false, true) {
		return ErrRebuildInProgress
	}
	defer m.rebuilding.Store(false)

	start := time.Now()
	var err error
	delay := m.cfg.RetryDelay

	for attempt := 0; ; attempt++ {
		err = m.buildAndSwap(ctx)
		if err == nil {
			metrics.SnapshotBuilds.WithLabelValues("success").Inc()
			metrics.SnapshotBuildDuration.Observe(time.Since(start).Seconds())
			return nil
		}
		if attempt >= m.cfg.RetryAttempts {
			break
		}

		m.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("snapshot rebuild failed, retrying")

		select {
		case <-ctx.Done():
			metrics.SnapshotBuilds.WithLabelValues("failure").Inc()
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	metrics.SnapshotBuilds.WithLabelValues("failure").Inc()
	return fmt.Errorf("snapshot rebuild exhausted %d attempts: %w", m.cfg.RetryAttempts+1, err)
}

// buildAndSwap performs one snapshot construction attempt.
func (m *Manager) buildAndSwap(ctx context.Context) error {
	restaurants, err := m.provider.FetchRestaurants(ctx)
	if err != nil {
		return fmt.Errorf("fetching restaurants: %w", err)
	}
	if len(restaurants) == 0 {
		return fmt.Errorf("restaurant table is empty")
	}

	profiles, err := m.provider.FetchProfiles(ctx)
	if err != nil {
		return fmt.Errorf("fetching profiles: %w", err)
	}

	interactions, err := m.provider.FetchInteractions(ctx)
	if err != nil {
		return fmt.Errorf("fetching interactions: %w", err)
	}

	artifacts, err := m.provider.FetchModel(ctx)
	if err != nil {
		return fmt.Errorf("fetching model artifacts: %w", err)
	}

	profileIndex := make(map[string]recommend.UserProfile, len(profiles))
	for _, p := range profiles {
		profileIndex[p.UserID] = p
	}

	snap := &recommend.Snapshot{
		Version:      uuid.NewString(),
		BuiltAt:      time.Now().UTC(),
		Restaurants:  restaurants,
		Profiles:     profileIndex,
		Interactions: interactions,
		Predictor:    artifacts,
		FeatureNames: artifacts.FeatureNames,
	}

	m.engine.SwapSnapshot(snap)

	metrics.SnapshotAge.Set(0)
	metrics.SnapshotRestaurants.Set(float64(len(restaurants)))
	metrics.SnapshotProfiles.Set(float64(len(profiles)))

	m.logger.Info().
		Str("version", snap.Version).
		Int("restaurants", len(restaurants)).
		Int("profiles", len(profiles)).
		Int("interactions", len(interactions)).
		Msg("snapshot rebuilt")
	return nil
}

// Serve rebuilds on the configured interval until the context is
// cancelled. Implements the suture service contract.
func (m *Manager) Serve(ctx context.Context) error {
	m.logger.Info().Dur("interval", m.cfg.Interval).Msg("sync worker starting")

	if m.cfg.SyncOnStart {
		if err := m.Rebuild(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error().Err(err).Msg("initial snapshot rebuild failed")
		}
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("sync worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := m.Rebuild(ctx); err != nil && !errors.Is(err, ErrRebuildInProgress) && !errors.Is(err, context.Canceled) {
				m.logger.Error().Err(err).Msg("scheduled snapshot rebuild failed")
			}
			if s := m.engine.CurrentSnapshot(); s != nil {
				metrics.SnapshotAge.Set(time.Since(s.BuiltAt).Seconds())
			}
		}
	}
}

// String names the service in the supervisor tree.
func (m *Manager) String() string {
	return "sync-manager"
}
