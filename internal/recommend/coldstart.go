// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

import (
	"math"
)

// enhanceColdStart layers exploration bonuses onto new-user candidates to
// counteract pure-popularity bias. preferred is the single inferred
// preferred category (0 when none could be inferred). All five bonuses
// sum into the pre-calibration composite; any sub-bonus that cannot be
// computed degrades to 0 with a warning and never aborts the request.
func enhanceColdStart(cfg *ColdStartConfig, preferred int, candidates []CandidateScore) StageResult {
	if len(candidates) == 0 {
		return ok()
	}

	result := ok()

	catFreq := make(map[int]int)
	maxReview := 0
	maxDuration := 0.0
	for i := range candidates {
		r := candidates[i].Restaurant
		catFreq[r.CategoryID]++
		if r.Review > maxReview {
			maxReview = r.Review
		}
		if r.DurationHours > maxDuration {
			maxDuration = r.DurationHours
		}
	}

	// Normalizers degrade once for the whole set, not per candidate.
	logMaxReview := math.Log1p(float64(maxReview))
	if logMaxReview <= 0 {
		result = result.merge(degraded("popularity bonus skipped: no candidate has reviews"))
	}
	if maxDuration <= 0 {
		result = result.merge(degraded("duration bonus skipped: no candidate has operating hours"))
	}

	total := float64(len(candidates))
	for i := range candidates {
		c := &candidates[i]
		r := c.Restaurant

		diversity := (1 - float64(catFreq[r.CategoryID])/total) * cfg.DiversityWeight
		c.Composite += diversity
		c.Bonuses.Diversity += diversity

		if preferred != 0 && r.CategoryID == preferred {
			c.Composite += cfg.PreferredCategoryBonus
			c.Bonuses.Category += cfg.PreferredCategoryBonus
		}

		if logMaxReview > 0 {
			popularity := cfg.PopularityWeight * math.Log1p(float64(r.Review)) / logMaxReview
			c.Composite += popularity
			c.Bonuses.Popularity += popularity
		}

		if maxDuration > 0 {
			duration := cfg.DurationWeight * r.DurationHours / maxDuration
			c.Composite += duration
			c.Bonuses.Engagement += duration
		}

		convenience := cfg.ConvenienceWeight * float64(r.ConvenienceCount())
		c.Composite += convenience
		c.Bonuses.Engagement += convenience
	}

	return result
}

// inferPreferredCategory picks the single preferred category for the
// cold-start bonus. With exactly one requested category the choice is
// unambiguous; with several or none, no preference is inferred.
func inferPreferredCategory(requested []int) int {
	if len(requested) == 1 {
		return requested[0]
	}
	return 0
}
