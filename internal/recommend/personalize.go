// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

// personalize applies profile-driven adjustments to the candidate set and
// returns the (possibly price-filtered) survivors. It is a pure function
// of the candidates and the profile: it mutates only transient
// CandidateScore state, never snapshot records.
func personalize(cfg *PersonalizationConfig, profile UserProfile, candidates []CandidateScore) ([]CandidateScore, StageResult) {
	// Price filter runs first so bonuses are not wasted on candidates
	// the user cannot afford. A zero Price means the source had no price
	// column for this record, which exempts it from filtering.
	if profile.MaxPrice > 0 {
		kept := candidates[:0]
		for _, c := range candidates {
			if c.Restaurant.Price == 0 || c.Restaurant.Price <= profile.MaxPrice {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}
	if len(candidates) == 0 {
		return nil, fatal(ErrNoCandidates)
	}

	important := make(map[int]bool, len(cfg.ImportantCategories))
	for _, id := range cfg.ImportantCategories {
		important[id] = true
	}

	for i := range candidates {
		c := &candidates[i]
		r := c.Restaurant

		if profile.Categories.Has(r.CategoryID) {
			bonus := cfg.CategoryBonus
			if important[r.CategoryID] {
				bonus += cfg.ImportantCategoryBonus
			}
			c.Composite += bonus
			c.Bonuses.Category += bonus
		}

		if profile.CompletedReservations > cfg.ReservationThreshold && r.Caution.ReservationAvailable {
			c.Composite += cfg.ReservationBonus
			c.Bonuses.Engagement += cfg.ReservationBonus
		}

		// Users who save far more than they reserve respond to
		// well-reviewed places; nudge by compressed review volume.
		if profile.LikeToReservationRatio > cfg.EngagementRatioThreshold {
			nudge := cfg.EngagementWeight * popularityNudge(r.Review)
			c.Composite += nudge
			c.Bonuses.Popularity += nudge
		}
	}

	return candidates, ok()
}

// adjustNewUser applies the uniform adjustments for users without a
// profile row. The candidate set is already category-filtered upstream,
// so the category bonus applies to every candidate.
func adjustNewUser(cfg *PersonalizationConfig, candidates []CandidateScore) StageResult {
	for i := range candidates {
		c := &candidates[i]
		c.Composite += cfg.NewUserCategoryBonus
		c.Bonuses.Category += cfg.NewUserCategoryBonus

		nudge := cfg.NewUserPopularityWeight * popularityNudge(c.Restaurant.Review)
		c.Composite += nudge
		c.Bonuses.Popularity += nudge
	}
	return ok()
}
