// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

import (
	"math"
	"sort"
)

// round3 rounds to three decimals, the boundary convention for all
// client-facing scores.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// rank sorts candidates by composite score descending (ties broken by
// ascending restaurant ID for determinism), drops duplicate restaurant
// IDs keeping the highest-scored occurrence, truncates to topK, and
// rounds scores to the output contract.
func rank(topK int, candidates []CandidateScore) []RecommendationItem {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Composite != candidates[j].Composite {
			return candidates[i].Composite > candidates[j].Composite
		}
		return candidates[i].Restaurant.RestaurantID < candidates[j].Restaurant.RestaurantID
	})

	seen := make(map[int]bool, len(candidates))
	items := make([]RecommendationItem, 0, topK)
	for i := range candidates {
		c := &candidates[i]
		id := c.Restaurant.RestaurantID
		if seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, RecommendationItem{
			CategoryID:     c.Restaurant.CategoryID,
			RestaurantID:   id,
			Score:          round3(c.Raw),
			PredictedScore: round3(c.Predicted),
			CompositeScore: round3(c.Composite),
		})
		if len(items) == topK {
			break
		}
	}
	return items
}
