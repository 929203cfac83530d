// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

import (
	"strconv"
	"sync"
	"time"

	"github.com/tastemap/tastemap/internal/recommend/hybrid"
)

// NumCategories is the size of the fixed restaurant category space.
// Category IDs run 1..NumCategories.
const NumCategories = 12

// CategoryMask is a bitmask over the 12 restaurant categories.
// Bit i-1 corresponds to category ID i.
type CategoryMask uint16

// Has reports whether category id is set in the mask.
func (m CategoryMask) Has(id int) bool {
	if id < 1 || id > NumCategories {
		return false
	}
	return m&(1<<(id-1)) != 0
}

// Set returns a copy of the mask with category id set.
func (m CategoryMask) Set(id int) CategoryMask {
	if id < 1 || id > NumCategories {
		return m
	}
	return m | (1 << (id - 1))
}

// Categories returns the category IDs set in the mask, ascending.
func (m CategoryMask) Categories() []int {
	var ids []int
	for id := 1; id <= NumCategories; id++ {
		if m.Has(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Count returns the number of categories set in the mask.
func (m CategoryMask) Count() int {
	n := 0
	for id := 1; id <= NumCategories; id++ {
		if m.Has(id) {
			n++
		}
	}
	return n
}

// Caution holds the six service-availability flags a restaurant declares.
// Positive flags state a service is offered; negative flags state it is
// explicitly not offered. Both can be false when the data source is silent.
type Caution struct {
	// DeliveryAvailable indicates delivery is offered.
	DeliveryAvailable bool `json:"delivery_available"`

	// ReservationAvailable indicates reservations are accepted.
	ReservationAvailable bool `json:"reservation_available"`

	// TakeoutAvailable indicates takeout is offered.
	TakeoutAvailable bool `json:"takeout_available"`

	// DeliveryUnavailable indicates delivery is explicitly not offered.
	DeliveryUnavailable bool `json:"delivery_unavailable"`

	// ReservationUnavailable indicates reservations are explicitly not accepted.
	ReservationUnavailable bool `json:"reservation_unavailable"`

	// TakeoutUnavailable indicates takeout is explicitly not offered.
	TakeoutUnavailable bool `json:"takeout_unavailable"`
}

// PositiveCount returns the number of set positive flags.
func (c Caution) PositiveCount() int {
	n := 0
	for _, f := range [3]bool{c.DeliveryAvailable, c.ReservationAvailable, c.TakeoutAvailable} {
		if f {
			n++
		}
	}
	return n
}

// NegativeCount returns the number of set negative flags.
func (c Caution) NegativeCount() int {
	n := 0
	for _, f := range [3]bool{c.DeliveryUnavailable, c.ReservationUnavailable, c.TakeoutUnavailable} {
		if f {
			n++
		}
	}
	return n
}

// RestaurantRecord is one row of the read-only restaurant reference table.
// Optional source columns are defaulted at ingestion time (zero review
// counts, zero price, empty amenity set), so scoring never needs to probe
// for missing fields.
type RestaurantRecord struct {
	// RestaurantID uniquely identifies the restaurant.
	RestaurantID int `json:"restaurant_id"`

	// CategoryID is the restaurant's category (1..12).
	CategoryID int `json:"category_id"`

	// Score is the raw user rating, 0-5.
	Score float64 `json:"score"`

	// Review is the review count. Defaults to 0 when the source column
	// is missing or non-numeric.
	Review int `json:"review"`

	// DurationHours is the daily operating duration in hours.
	DurationHours float64 `json:"duration_hours"`

	// Price is the representative price. 0 means the source had no price,
	// which disables price filtering for this record.
	Price float64 `json:"price"`

	// Caution holds the service-availability flags.
	Caution Caution `json:"caution"`

	// Conveniences maps amenity name to presence. The source's
	// "no amenity information" sentinel is stripped at ingestion and
	// never appears here.
	Conveniences map[string]bool `json:"conveniences,omitempty"`
}

// ConvenienceMean returns the mean of the amenity flags, 0 when none
// are recorded.
func (r *RestaurantRecord) ConvenienceMean() float64 {
	if len(r.Conveniences) == 0 {
		return 0
	}
	set := 0
	for _, v := range r.Conveniences {
		if v {
			set++
		}
	}
	return float64(set) / float64(len(r.Conveniences))
}

// ConvenienceCount returns the number of amenities the restaurant offers.
func (r *RestaurantRecord) ConvenienceCount() int {
	n := 0
	for _, v := range r.Conveniences {
		if v {
			n++
		}
	}
	return n
}

// UserProfile is one row of the optional user preference table. Absence of
// a profile row is what routes a user to the cold-start path.
type UserProfile struct {
	// UserID identifies the user.
	UserID string `json:"user_id"`

	// MaxPrice is the user's price ceiling. 0 or negative disables
	// price filtering.
	MaxPrice float64 `json:"max_price"`

	// Categories is the 12-way category preference bitmask.
	Categories CategoryMask `json:"categories"`

	// CompletedReservations counts reservations the user completed.
	CompletedReservations int `json:"completed_reservations"`

	// TotalLikes counts restaurants the user saved.
	TotalLikes int `json:"total_likes"`

	// LikeToReservationRatio is TotalLikes / reservations, with a fixed
	// high value when the user has never reserved.
	LikeToReservationRatio float64 `json:"like_to_reservation_ratio"`
}

// Interaction is a single user-restaurant rating event, consumed only by
// the hybrid recommender's matrix construction.
type Interaction struct {
	// UserID identifies the rating user.
	UserID string `json:"user_id"`

	// RestaurantID identifies the rated restaurant.
	RestaurantID int `json:"restaurant_id"`

	// Rating is the interaction weight (typically 1-5).
	Rating float64 `json:"rating"`
}

// BonusBreakdown records the additive adjustments applied to a candidate.
// Kept for logging and debugging; never serialized to clients.
type BonusBreakdown struct {
	// Category is the preference/category match bonus.
	Category float64

	// Diversity is the cold-start rare-category bonus.
	Diversity float64

	// Popularity is the review-volume nudge.
	Popularity float64

	// Engagement is the like-to-reservation behavior bonus.
	Engagement float64
}

// Total returns the sum of all bonuses.
func (b BonusBreakdown) Total() float64 {
	return b.Category + b.Diversity + b.Popularity + b.Engagement
}

// CandidateScore is the per-request working state for one candidate.
// It references immutable snapshot data and is never persisted.
type CandidateScore struct {
	// Restaurant points into the snapshot's reference table.
	Restaurant *RestaurantRecord

	// Raw is the restaurant's raw rating carried into scoring.
	Raw float64

	// Predicted is the trained model's score for this candidate.
	Predicted float64

	// Composite is the running composite score. Pre-calibration it is
	// unbounded; after sigmoid calibration it lies in (0, 5).
	Composite float64

	// Bonuses is the additive adjustment breakdown.
	Bonuses BonusBreakdown
}

// RecommendationItem is one entry of the client-facing result list.
type RecommendationItem struct {
	// CategoryID is the restaurant's category.
	CategoryID int `json:"category_id"`

	// RestaurantID identifies the recommended restaurant.
	RestaurantID int `json:"restaurant_id"`

	// Score is the raw rating, rounded to 3 decimals.
	Score float64 `json:"score"`

	// PredictedScore is the model prediction, rounded to 3 decimals.
	PredictedScore float64 `json:"predicted_score"`

	// CompositeScore is the calibrated composite, rounded to 3 decimals.
	CompositeScore float64 `json:"composite_score"`
}

// RecommendationResult is the engine's output for one request.
type RecommendationResult struct {
	// UserID echoes the requesting user.
	UserID string `json:"user_id"`

	// IsNewUser reports whether the cold-start path was taken.
	IsNewUser bool `json:"is_new_user"`

	// Items is the ranked list, at most TopK entries, descending
	// composite score.
	Items []RecommendationItem `json:"recommendations"`
}

// Predictor is the opaque capability the training collaborator provides:
// a fitted feature scaler and a trained scoring model. The engine depends
// only on this interface, so the model backend can be substituted without
// touching scoring logic.
type Predictor interface {
	// Transform scales a feature matrix using the fitted scaler.
	Transform(features [][]float64) ([][]float64, error)

	// Predict scores a scaled feature matrix, one score per row.
	Predict(scaled [][]float64) ([]float64, error)
}

// Snapshot is an immutable bundle of trained artifacts and reference
// tables. It is built by the sync worker and swapped atomically into the
// engine; readers always observe a complete snapshot, never a partial one.
type Snapshot struct {
	// Version identifies this snapshot build.
	Version string

	// BuiltAt is when the snapshot was assembled.
	BuiltAt time.Time

	// Restaurants is the read-only restaurant reference table.
	Restaurants []RestaurantRecord

	// Profiles indexes user profiles by user ID.
	Profiles map[string]UserProfile

	// Interactions is the rating history for the hybrid recommender.
	Interactions []Interaction

	// Predictor is the trained model artifact pair (scaler + model).
	// Nil means the snapshot carries reference data only and requests
	// must be refused as not ready.
	Predictor Predictor

	// FeatureNames is the fixed ordered feature list the predictor
	// expects. Columns absent from a record are synthesized as zero.
	FeatureNames []string

	// hybridOnce guards the lazy single-flight hybrid model build.
	hybridOnce sync.Once
	hybridM    *hybrid.Model
	hybridErr  error

	// idxOnce guards the lazy restaurant-by-ID index.
	idxOnce sync.Once
	idx     map[int]*RestaurantRecord
}

// Restaurant returns the record with the given ID, or nil. The index is
// built lazily on first lookup and shared by all readers.
func (s *Snapshot) Restaurant(id int) *RestaurantRecord {
	s.idxOnce.Do(func() {
		s.idx = make(map[int]*RestaurantRecord, len(s.Restaurants))
		for i := range s.Restaurants {
			s.idx[s.Restaurants[i].RestaurantID] = &s.Restaurants[i]
		}
	})
	return s.idx[id]
}

// HybridModel returns the hybrid recommender model for this snapshot,
// building it on first use. Construction is single-flight: concurrent
// first callers block until the one build completes, and every later call
// returns the memoized result.
func (s *Snapshot) HybridModel() (*hybrid.Model, error) {
	s.hybridOnce.Do(func() {
		s.hybridM, s.hybridErr = hybrid.Build(hybrid.Input{
			Ratings: hybridRatings(s.Interactions),
			Items:   hybridItems(s.Restaurants),
		})
	})
	return s.hybridM, s.hybridErr
}

// hybridRatings converts interactions to the hybrid package's input form.
func hybridRatings(interactions []Interaction) []hybrid.Rating {
	ratings := make([]hybrid.Rating, 0, len(interactions))
	for _, in := range interactions {
		ratings = append(ratings, hybrid.Rating{
			UserID: in.UserID,
			ItemID: in.RestaurantID,
			Value:  in.Rating,
		})
	}
	return ratings
}

// hybridItems converts restaurant attributes to content vectors: one-hot
// category plus amenity and caution flags.
func hybridItems(restaurants []RestaurantRecord) []hybrid.Item {
	items := make([]hybrid.Item, 0, len(restaurants))
	for i := range restaurants {
		r := &restaurants[i]
		attrs := map[string]float64{}
		attrs["category_"+strconv.Itoa(r.CategoryID)] = 1
		for name, v := range r.Conveniences {
			if v {
				attrs["conv_"+name] = 1
			}
		}
		for name, v := range map[string]bool{
			"delivery_available":      r.Caution.DeliveryAvailable,
			"reservation_available":   r.Caution.ReservationAvailable,
			"takeout_available":       r.Caution.TakeoutAvailable,
			"delivery_unavailable":    r.Caution.DeliveryUnavailable,
			"reservation_unavailable": r.Caution.ReservationUnavailable,
			"takeout_unavailable":     r.Caution.TakeoutUnavailable,
		} {
			if v {
				attrs["caution_"+name] = 1
			}
		}
		items = append(items, hybrid.Item{
			ID:         r.RestaurantID,
			Attributes: attrs,
		})
	}
	return items
}
