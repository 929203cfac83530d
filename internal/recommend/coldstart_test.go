// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

import (
	"math"
	"testing"
)

func TestEnhanceColdStartDiversity(t *testing.T) {
	cfg := DefaultConfig().ColdStart

	// Three of category 1, one of category 2: the rare category earns
	// the larger diversity bonus.
	candidates := []CandidateScore{
		{Restaurant: &RestaurantRecord{RestaurantID: 1, CategoryID: 1, Review: 10, DurationHours: 8}},
		{Restaurant: &RestaurantRecord{RestaurantID: 2, CategoryID: 1, Review: 10, DurationHours: 8}},
		{Restaurant: &RestaurantRecord{RestaurantID: 3, CategoryID: 1, Review: 10, DurationHours: 8}},
		{Restaurant: &RestaurantRecord{RestaurantID: 4, CategoryID: 2, Review: 10, DurationHours: 8}},
	}

	result := enhanceColdStart(&cfg, 0, candidates)
	if result.Status != StageOK {
		t.Fatalf("result = %+v, want ok", result)
	}

	wantCommon := (1 - 3.0/4.0) * 0.15
	wantRare := (1 - 1.0/4.0) * 0.15
	if got := candidates[0].Bonuses.Diversity; math.Abs(got-wantCommon) > 1e-9 {
		t.Errorf("common diversity = %f, want %f", got, wantCommon)
	}
	if got := candidates[3].Bonuses.Diversity; math.Abs(got-wantRare) > 1e-9 {
		t.Errorf("rare diversity = %f, want %f", got, wantRare)
	}
	if candidates[3].Bonuses.Diversity <= candidates[0].Bonuses.Diversity {
		t.Error("rare category should earn more diversity bonus than common")
	}
}

func TestEnhanceColdStartPreferredCategory(t *testing.T) {
	cfg := DefaultConfig().ColdStart

	candidates := []CandidateScore{
		{Restaurant: &RestaurantRecord{RestaurantID: 1, CategoryID: 5, Review: 10, DurationHours: 8}},
		{Restaurant: &RestaurantRecord{RestaurantID: 2, CategoryID: 6, Review: 10, DurationHours: 8}},
	}

	result := enhanceColdStart(&cfg, 5, candidates)
	if result.Status != StageOK {
		t.Fatalf("result = %+v, want ok", result)
	}

	if got := candidates[0].Bonuses.Category; math.Abs(got-0.4) > 1e-9 {
		t.Errorf("preferred category bonus = %f, want 0.4", got)
	}
	if got := candidates[1].Bonuses.Category; got != 0 {
		t.Errorf("other category bonus = %f, want 0", got)
	}
}

func TestEnhanceColdStartNormalizers(t *testing.T) {
	cfg := DefaultConfig().ColdStart

	tests := []struct {
		name         string
		review       int
		duration     float64
		wantWarnings int
	}{
		{"full data", 100, 12, 0},
		{"no reviews anywhere", 0, 12, 1},
		{"no hours anywhere", 100, 0, 1},
		{"neither", 0, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := []CandidateScore{
				{Restaurant: &RestaurantRecord{RestaurantID: 1, CategoryID: 1, Review: tt.review, DurationHours: tt.duration}},
			}

			result := enhanceColdStart(&cfg, 0, candidates)

			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("warnings = %v, want %d entries", result.Warnings, tt.wantWarnings)
			}
			wantStatus := StageOK
			if tt.wantWarnings > 0 {
				wantStatus = StageDegraded
			}
			if result.Status != wantStatus {
				t.Errorf("Status = %v, want %v", result.Status, wantStatus)
			}
			// A degraded stage still applies the remaining bonuses.
			if math.IsNaN(candidates[0].Composite) || math.IsInf(candidates[0].Composite, 0) {
				t.Errorf("Composite = %f, want finite", candidates[0].Composite)
			}
		})
	}
}

func TestEnhanceColdStartConvenienceBonus(t *testing.T) {
	cfg := DefaultConfig().ColdStart

	candidates := []CandidateScore{
		{Restaurant: &RestaurantRecord{
			RestaurantID: 1, CategoryID: 1, Review: 10, DurationHours: 8,
			Conveniences: map[string]bool{"parking": true, "wifi": true, "smoking": false},
		}},
	}

	result := enhanceColdStart(&cfg, 0, candidates)
	if result.Status != StageOK {
		t.Fatalf("result = %+v, want ok", result)
	}

	// Two amenities offered.
	var wantEngagement = 0.05*2 + 0.1*1.0 // convenience + max-duration term
	if got := candidates[0].Bonuses.Engagement; math.Abs(got-wantEngagement) > 1e-9 {
		t.Errorf("Bonuses.Engagement = %f, want %f", got, wantEngagement)
	}
}

func TestEnhanceColdStartEmptySet(t *testing.T) {
	cfg := DefaultConfig().ColdStart
	if result := enhanceColdStart(&cfg, 0, nil); result.Status != StageOK {
		t.Errorf("empty set result = %+v, want ok", result)
	}
}

func TestInferPreferredCategory(t *testing.T) {
	tests := []struct {
		name      string
		requested []int
		want      int
	}{
		{"single category", []int{7}, 7},
		{"multiple categories", []int{1, 2}, 0},
		{"no categories", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inferPreferredCategory(tt.requested); got != tt.want {
				t.Errorf("inferPreferredCategory(%v) = %d, want %d", tt.requested, got, tt.want)
			}
		})
	}
}
