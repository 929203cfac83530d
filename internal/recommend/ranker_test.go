// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

import (
	"math"
	"testing"
)

func candidate(id int, composite float64) CandidateScore {
	return CandidateScore{
		Restaurant: &RestaurantRecord{RestaurantID: id, CategoryID: 1},
		Raw:        composite,
		Predicted:  composite,
		Composite:  composite,
	}
}

func TestRankOrderingAndTruncation(t *testing.T) {
	var candidates []CandidateScore
	for i := 1; i <= 30; i++ {
		candidates = append(candidates, candidate(i, float64(i)*0.1))
	}

	items := rank(15, candidates)

	if len(items) != 15 {
		t.Fatalf("rank() returned %d items, want 15", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].CompositeScore > items[i-1].CompositeScore {
			t.Errorf("items[%d] = %f > items[%d] = %f, want non-increasing",
				i, items[i].CompositeScore, i-1, items[i-1].CompositeScore)
		}
	}
	// Highest composite came from the highest ID here.
	if items[0].RestaurantID != 30 {
		t.Errorf("items[0].RestaurantID = %d, want 30", items[0].RestaurantID)
	}
}

func TestRankDeduplicatesKeepingHighest(t *testing.T) {
	candidates := []CandidateScore{
		candidate(7, 2.0),
		candidate(7, 4.0),
		candidate(8, 3.0),
	}

	items := rank(15, candidates)

	if len(items) != 2 {
		t.Fatalf("rank() returned %d items, want 2", len(items))
	}
	if items[0].RestaurantID != 7 || items[0].CompositeScore != 4.0 {
		t.Errorf("items[0] = %+v, want restaurant 7 at 4.0", items[0])
	}
	if items[1].RestaurantID != 8 {
		t.Errorf("items[1].RestaurantID = %d, want 8", items[1].RestaurantID)
	}
}

func TestRankTieBreaksByAscendingID(t *testing.T) {
	candidates := []CandidateScore{
		candidate(42, 3.0),
		candidate(3, 3.0),
		candidate(17, 3.0),
	}

	items := rank(15, candidates)

	wantOrder := []int{3, 17, 42}
	for i, want := range wantOrder {
		if items[i].RestaurantID != want {
			t.Errorf("items[%d].RestaurantID = %d, want %d", i, items[i].RestaurantID, want)
		}
	}
}

func TestRankRoundsToThreeDecimals(t *testing.T) {
	c := candidate(1, 3.14159265)
	c.Raw = 2.71828
	c.Predicted = 1.41421356

	items := rank(15, []CandidateScore{c})

	if items[0].CompositeScore != 3.142 {
		t.Errorf("CompositeScore = %f, want 3.142", items[0].CompositeScore)
	}
	if items[0].Score != 2.718 {
		t.Errorf("Score = %f, want 2.718", items[0].Score)
	}
	if items[0].PredictedScore != 1.414 {
		t.Errorf("PredictedScore = %f, want 1.414", items[0].PredictedScore)
	}
}

func TestRound3(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1.23456, 1.235},
		{1.2344, 1.234},
		{-1.23456, -1.235},
		{2.0004, 2.0},
	}
	for _, tt := range tests {
		if got := round3(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("round3(%f) = %f, want %f", tt.in, got, tt.want)
		}
	}
}
