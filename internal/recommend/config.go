// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

import (
	"fmt"
)

// Config contains all tunable parameters of the recommendation engine.
// Every additive bonus constant is configuration rather than a literal:
// the values were hand-tuned with no documented derivation, so operators
// must be able to adjust them without a rebuild.
type Config struct {
	// Scoring contains composite-score and calibration parameters.
	Scoring ScoringConfig `json:"scoring" koanf:"scoring"`

	// Personalization contains profile-driven adjustment parameters.
	Personalization PersonalizationConfig `json:"personalization" koanf:"personalization"`

	// ColdStart contains exploration-bonus parameters for new users.
	ColdStart ColdStartConfig `json:"cold_start" koanf:"cold_start"`

	// Hybrid contains collaborative/content blending parameters.
	Hybrid HybridConfig `json:"hybrid" koanf:"hybrid"`

	// Limits contains output-size limits.
	Limits LimitsConfig `json:"limits" koanf:"limits"`
}

// ScoringConfig tunes the composite score formula and its sigmoid
// calibration.
type ScoringConfig struct {
	// ReviewWeight scales the log review-volume term.
	ReviewWeight float64 `json:"review_weight" koanf:"review_weight"`

	// CautionWeight scales the positive-minus-negative caution count.
	CautionWeight float64 `json:"caution_weight" koanf:"caution_weight"`

	// ConvenienceWeight scales the amenity flag mean.
	ConvenienceWeight float64 `json:"convenience_weight" koanf:"convenience_weight"`

	// SigmoidSlope is the calibration steepness (a in 5/(1+e^-a(x-b))).
	SigmoidSlope float64 `json:"sigmoid_slope" koanf:"sigmoid_slope"`

	// SigmoidMidpoint is the calibration center (b).
	SigmoidMidpoint float64 `json:"sigmoid_midpoint" koanf:"sigmoid_midpoint"`
}

// PersonalizationConfig tunes the profile-driven adjustment stage.
type PersonalizationConfig struct {
	// CategoryBonus is added when a candidate's category is in the
	// user's preference mask.
	CategoryBonus float64 `json:"category_bonus" koanf:"category_bonus"`

	// ImportantCategoryBonus is added on top of CategoryBonus for the
	// high-importance category subset.
	ImportantCategoryBonus float64 `json:"important_category_bonus" koanf:"important_category_bonus"`

	// ImportantCategories lists the category IDs that earn the extra
	// bonus.
	ImportantCategories []int `json:"important_categories" koanf:"important_categories"`

	// ReservationBonus is added to reservation-capable candidates for
	// users who reserve frequently.
	ReservationBonus float64 `json:"reservation_bonus" koanf:"reservation_bonus"`

	// ReservationThreshold is the completed-reservation count above
	// which ReservationBonus applies.
	ReservationThreshold int `json:"reservation_threshold" koanf:"reservation_threshold"`

	// EngagementRatioThreshold is the like-to-reservation ratio above
	// which the popularity nudge applies.
	EngagementRatioThreshold float64 `json:"engagement_ratio_threshold" koanf:"engagement_ratio_threshold"`

	// EngagementWeight scales the popularity nudge for high-ratio users.
	EngagementWeight float64 `json:"engagement_weight" koanf:"engagement_weight"`

	// NewUserCategoryBonus is the uniform category bonus for users with
	// no profile (candidates arrive already category-filtered).
	NewUserCategoryBonus float64 `json:"new_user_category_bonus" koanf:"new_user_category_bonus"`

	// NewUserPopularityWeight scales the uniform popularity nudge for
	// users with no profile.
	NewUserPopularityWeight float64 `json:"new_user_popularity_weight" koanf:"new_user_popularity_weight"`
}

// ColdStartConfig tunes the exploration bonuses layered on top of the
// new-user adjustments to counteract pure-popularity bias.
type ColdStartConfig struct {
	// DiversityWeight scales the rare-category bonus.
	DiversityWeight float64 `json:"diversity_weight" koanf:"diversity_weight"`

	// PreferredCategoryBonus is added when a candidate matches the
	// single inferred preferred category.
	PreferredCategoryBonus float64 `json:"preferred_category_bonus" koanf:"preferred_category_bonus"`

	// PopularityWeight scales the normalized log review-count bonus.
	PopularityWeight float64 `json:"popularity_weight" koanf:"popularity_weight"`

	// DurationWeight scales the normalized operating-hours bonus.
	DurationWeight float64 `json:"duration_weight" koanf:"duration_weight"`

	// ConvenienceWeight scales the amenity-count bonus.
	ConvenienceWeight float64 `json:"convenience_weight" koanf:"convenience_weight"`
}

// HybridConfig tunes the collaborative/content hybrid recommender.
type HybridConfig struct {
	// DefaultAlpha is the CF/CB blend weight used when a request does
	// not specify one.
	DefaultAlpha float64 `json:"default_alpha" koanf:"default_alpha"`

	// TopSimilarUsers is how many nearest users vote in user-based CF.
	TopSimilarUsers int `json:"top_similar_users" koanf:"top_similar_users"`

	// TopRatedItems is how many of the user's highest-rated items seed
	// content-based scoring.
	TopRatedItems int `json:"top_rated_items" koanf:"top_rated_items"`

	// MinRatingsForPopularity is the minimum rating count for an item
	// to enter the popularity fallback pool.
	MinRatingsForPopularity int `json:"min_ratings_for_popularity" koanf:"min_ratings_for_popularity"`

	// PopularityPoolSize caps the popularity fallback pool.
	PopularityPoolSize int `json:"popularity_pool_size" koanf:"popularity_pool_size"`
}

// LimitsConfig caps engine output.
type LimitsConfig struct {
	// TopK is the maximum result list length.
	TopK int `json:"top_k" koanf:"top_k"`
}

// DefaultConfig returns the production default configuration.
func DefaultConfig() Config {
	return Config{
		Scoring: ScoringConfig{
			ReviewWeight:      0.4,
			CautionWeight:     0.15,
			ConvenienceWeight: 0.15,
			SigmoidSlope:      1.25,
			SigmoidMidpoint:   2.5,
		},
		Personalization: PersonalizationConfig{
			CategoryBonus:            0.3,
			ImportantCategoryBonus:   0.2,
			ImportantCategories:      []int{4, 7, 9, 10},
			ReservationBonus:         0.2,
			ReservationThreshold:     3,
			EngagementRatioThreshold: 2.0,
			EngagementWeight:         0.15,
			NewUserCategoryBonus:     0.3,
			NewUserPopularityWeight:  0.1,
		},
		ColdStart: ColdStartConfig{
			DiversityWeight:        0.15,
			PreferredCategoryBonus: 0.4,
			PopularityWeight:       0.2,
			DurationWeight:         0.1,
			ConvenienceWeight:      0.05,
		},
		Hybrid: HybridConfig{
			DefaultAlpha:            0.7,
			TopSimilarUsers:         10,
			TopRatedItems:           5,
			MinRatingsForPopularity: 5,
			PopularityPoolSize:      20,
		},
		Limits: LimitsConfig{
			TopK: 15,
		},
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Scoring.SigmoidSlope <= 0 {
		return fmt.Errorf("scoring.sigmoid_slope must be positive, got %f", c.Scoring.SigmoidSlope)
	}
	if c.Scoring.ReviewWeight < 0 || c.Scoring.CautionWeight < 0 || c.Scoring.ConvenienceWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	for _, id := range c.Personalization.ImportantCategories {
		if id < 1 || id > NumCategories {
			return fmt.Errorf("personalization.important_categories: category %d out of range 1..%d", id, NumCategories)
		}
	}
	if c.Hybrid.DefaultAlpha < 0 || c.Hybrid.DefaultAlpha > 1 {
		return fmt.Errorf("hybrid.default_alpha must be in [0, 1], got %f", c.Hybrid.DefaultAlpha)
	}
	if c.Hybrid.TopSimilarUsers <= 0 {
		return fmt.Errorf("hybrid.top_similar_users must be positive, got %d", c.Hybrid.TopSimilarUsers)
	}
	if c.Hybrid.TopRatedItems <= 0 {
		return fmt.Errorf("hybrid.top_rated_items must be positive, got %d", c.Hybrid.TopRatedItems)
	}
	if c.Hybrid.MinRatingsForPopularity < 1 {
		return fmt.Errorf("hybrid.min_ratings_for_popularity must be at least 1, got %d", c.Hybrid.MinRatingsForPopularity)
	}
	if c.Hybrid.PopularityPoolSize <= 0 {
		return fmt.Errorf("hybrid.popularity_pool_size must be positive, got %d", c.Hybrid.PopularityPoolSize)
	}
	if c.Limits.TopK <= 0 {
		return fmt.Errorf("limits.top_k must be positive, got %d", c.Limits.TopK)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() Config {
	out := *c
	out.Personalization.ImportantCategories = append([]int(nil), c.Personalization.ImportantCategories...)
	return out
}
