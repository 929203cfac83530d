// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tastemap/tastemap/internal/recommend"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestFileProviderRestaurants(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "restaurants.json", `[
		{"restaurant_id": 1, "category_id": 2, "score": 4.5, "review": 120},
		{"restaurant_id": 0, "category_id": 2, "score": 3.0},
		{"restaurant_id": 2, "category_id": 3, "score": 9.9, "review": -4,
		 "conveniences": {"parking": true, "no_amenity_info": true}}
	]`)
	p := NewFileProvider(dir, "restaurants.json", "profiles.json", "interactions.json", "model.json")

	records, err := p.FetchRestaurants(context.Background())
	if err != nil {
		t.Fatalf("FetchRestaurants error: %v", err)
	}

	// The zero-ID record is dropped.
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	r := records[1]
	if r.Score != 5 {
		t.Errorf("Score = %f, want clamped to 5", r.Score)
	}
	if r.Review != 0 {
		t.Errorf("Review = %d, want clamped to 0", r.Review)
	}
	if _, found := r.Conveniences["no_amenity_info"]; found {
		t.Error("amenity sentinel not stripped")
	}
	if !r.Conveniences["parking"] {
		t.Error("real amenity lost during sanitization")
	}
}

func TestFileProviderRestaurantsMissing(t *testing.T) {
	p := NewFileProvider(t.TempDir(), "restaurants.json", "p.json", "i.json", "m.json")
	if _, err := p.FetchRestaurants(context.Background()); err == nil {
		t.Error("FetchRestaurants with no file = nil error, want error")
	}
}

func TestFileProviderOptionalTables(t *testing.T) {
	dir := t.TempDir()
	p := NewFileProvider(dir, "restaurants.json", "profiles.json", "interactions.json", "model.json")

	profiles, err := p.FetchProfiles(context.Background())
	if err != nil {
		t.Fatalf("FetchProfiles with missing file error: %v", err)
	}
	if profiles != nil {
		t.Errorf("profiles = %v, want nil for missing file", profiles)
	}

	interactions, err := p.FetchInteractions(context.Background())
	if err != nil {
		t.Fatalf("FetchInteractions with missing file error: %v", err)
	}
	if interactions != nil {
		t.Errorf("interactions = %v, want nil for missing file", interactions)
	}

	// A present but corrupt optional file is still an error.
	writeFile(t, dir, "profiles.json", `{not json`)
	if _, err := p.FetchProfiles(context.Background()); err == nil {
		t.Error("FetchProfiles with corrupt file = nil error, want error")
	}
}

func TestFileProviderInteractions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "interactions.json", `[
		{"user_id": "a", "restaurant_id": 1, "rating": 5},
		{"user_id": "b", "restaurant_id": 2, "rating": 3.5}
	]`)
	p := NewFileProvider(dir, "r.json", "p.json", "interactions.json", "m.json")

	interactions, err := p.FetchInteractions(context.Background())
	if err != nil {
		t.Fatalf("FetchInteractions error: %v", err)
	}
	want := []recommend.Interaction{
		{UserID: "a", RestaurantID: 1, Rating: 5},
		{UserID: "b", RestaurantID: 2, Rating: 3.5},
	}
	if len(interactions) != len(want) {
		t.Fatalf("got %d interactions, want %d", len(interactions), len(want))
	}
	for i := range want {
		if interactions[i] != want[i] {
			t.Errorf("interactions[%d] = %+v, want %+v", i, interactions[i], want[i])
		}
	}
}

func TestSanitizeRestaurantsNegativeValues(t *testing.T) {
	records := []recommend.RestaurantRecord{
		{RestaurantID: 1, Score: -1, DurationHours: -2, Price: -100},
	}
	out := sanitizeRestaurants(records)
	if len(out) != 1 {
		t.Fatalf("got %d records, want 1", len(out))
	}
	r := out[0]
	if r.Score != 0 || r.DurationHours != 0 || r.Price != 0 {
		t.Errorf("record = %+v, want negatives clamped to zero", r)
	}
}
