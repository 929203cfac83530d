// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

// Package sync rebuilds engine snapshots in the background: it pulls
// reference tables and trained artifacts from a data provider, assembles
// an immutable snapshot, and swaps it into the engine. Provider calls run
// behind a circuit breaker; failed rebuilds retry with exponential
// backoff, and a rebuild-in-progress flag prevents overlap without
// blocking readers.
package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/tastemap/tastemap/internal/recommend"
	"github.com/tastemap/tastemap/internal/recommend/model"
)

// noAmenitySentinel is the source table's "no amenity information"
// marker. It is stripped at ingestion so it never dilutes the amenity
// mean.
const noAmenitySentinel = "no_amenity_info"

// DataProvider supplies the raw material for one snapshot. Profiles and
// interactions are optional: a provider may return empty slices, which
// disables personalization and the hybrid path respectively.
type DataProvider interface {
	// FetchRestaurants returns the restaurant reference table.
	FetchRestaurants(ctx context.Context) ([]recommend.RestaurantRecord, error)

	// FetchProfiles returns the user profile table.
	FetchProfiles(ctx context.Context) ([]recommend.UserProfile, error)

	// FetchInteractions returns the rating history.
	FetchInteractions(ctx context.Context) ([]recommend.Interaction, error)

	// FetchModel returns the trained predictor artifacts.
	FetchModel(ctx context.Context) (*model.Artifacts, error)
}

// FileProvider reads the snapshot inputs from JSON files exported by the
// ingestion and training collaborators.
type FileProvider struct {
	restaurantsPath  string
	profilesPath     string
	interactionsPath string
	modelPath        string
}

// NewFileProvider builds a provider over the given data directory and
// file names.
func NewFileProvider(dir, restaurants, profiles, interactions, modelFile string) *FileProvider {
	return &FileProvider{
		restaurantsPath:  filepath.Join(dir, restaurants),
		profilesPath:     filepath.Join(dir, profiles),
		interactionsPath: filepath.Join(dir, interactions),
		modelPath:        filepath.Join(dir, modelFile),
	}
}

// FetchRestaurants reads and sanitizes the restaurant table. The table
// is mandatory: a missing file is an error.
func (p *FileProvider) FetchRestaurants(ctx context.Context) ([]recommend.RestaurantRecord, error) {
	var records []recommend.RestaurantRecord
	if err := readJSON(p.restaurantsPath, &records); err != nil {
		return nil, fmt.Errorf("restaurants: %w", err)
	}
	return sanitizeRestaurants(records), nil
}

// FetchProfiles reads the profile table. A missing file yields an empty
// table, routing every user to the cold-start path.
func (p *FileProvider) FetchProfiles(ctx context.Context) ([]recommend.UserProfile, error) {
	var profiles []recommend.UserProfile
	err := readJSON(p.profilesPath, &profiles)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}
	return profiles, nil
}

// FetchInteractions reads the rating history. A missing file yields an
// empty history, disabling the hybrid path.
func (p *FileProvider) FetchInteractions(ctx context.Context) ([]recommend.Interaction, error) {
	var interactions []recommend.Interaction
	err := readJSON(p.interactionsPath, &interactions)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("interactions: %w", err)
	}
	return interactions, nil
}

// FetchModel reads the trained artifacts. The artifacts are mandatory:
// without them the engine stays not-ready.
func (p *FileProvider) FetchModel(ctx context.Context) (*model.Artifacts, error) {
	return model.Load(p.modelPath)
}

// readJSON decodes one file into out, passing through os.IsNotExist
// errors for the caller to interpret.
func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

// sanitizeRestaurants applies ingestion-time defaults so scoring never
// probes for missing data: negative counts clamp to zero, out-of-range
// raw scores clamp to the 0-5 scale, and the no-amenity sentinel is
// stripped. Records without a usable ID are dropped.
func sanitizeRestaurants(records []recommend.RestaurantRecord) []recommend.RestaurantRecord {
	out := records[:0]
	for _, r := range records {
		if r.RestaurantID == 0 {
			continue
		}
		if r.Review < 0 {
			r.Review = 0
		}
		if r.Score < 0 {
			r.Score = 0
		}
		if r.Score > 5 {
			r.Score = 5
		}
		if r.DurationHours < 0 {
			r.DurationHours = 0
		}
		if r.Price < 0 {
			r.Price = 0
		}
		delete(r.Conveniences, noAmenitySentinel)
		out = append(out, r)
	}
	return out
}
