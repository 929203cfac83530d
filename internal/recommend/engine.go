// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tastemap/tastemap/internal/metrics"
	"github.com/tastemap/tastemap/internal/recommend/hybrid"
)

// hybridRankStep spaces the rank-based composite scores of hybrid
// results, assigning 5.0 to the top item (original scoring scheme).
const hybridRankStep = 0.15

// Engine serves recommendation requests against the current snapshot.
// Request handling is stateless and lock-free: readers load the snapshot
// pointer once and work entirely on that immutable value, so concurrent
// requests never block one another and a background swap is invisible to
// in-flight work.
type Engine struct {
	cfg    Config
	logger zerolog.Logger

	snapshot atomic.Pointer[Snapshot]
}

// Request is one recommendation request. Categories carries the
// category IDs the caller filtered on (empty means all categories).
type Request struct {
	// UserID identifies the requesting user.
	UserID string

	// Categories restricts candidates to these category IDs.
	Categories []int
}

// HybridRequest is one hybrid-path request.
type HybridRequest struct {
	// UserID identifies the requesting user.
	UserID string

	// N is the desired result count. Zero means the configured TopK.
	N int

	// Alpha is the CF/CB blend weight. Negative means the configured
	// default.
	Alpha float64
}

// Status describes the engine's current snapshot for health reporting.
type Status struct {
	// Ready reports whether a snapshot with predictor artifacts is
	// loaded.
	Ready bool `json:"ready"`

	// Version is the loaded snapshot's version, empty when none.
	Version string `json:"version,omitempty"`

	// BuiltAt is when the loaded snapshot was assembled.
	BuiltAt time.Time `json:"built_at"`

	// Restaurants is the reference-table row count.
	Restaurants int `json:"restaurants"`

	// Profiles is the profile-table row count.
	Profiles int `json:"profiles"`

	// Interactions is the rating-history row count.
	Interactions int `json:"interactions"`
}

// NewEngine creates an engine with the given configuration. The engine
// starts without a snapshot and refuses requests until SwapSnapshot is
// called.
func NewEngine(cfg Config, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &Engine{
		cfg:    cfg.Clone(),
		logger: logger.With().Str("component", "recommend").Logger(),
	}, nil
}

// SwapSnapshot atomically replaces the current snapshot. In-flight
// requests keep the snapshot they loaded; new requests see the
// replacement in full.
func (e *Engine) SwapSnapshot(s *Snapshot) {
	e.snapshot.Store(s)
	if s != nil {
		e.logger.Info().
			Str("version", s.Version).
			Int("restaurants", len(s.Restaurants)).
			Int("profiles", len(s.Profiles)).
			Int("interactions", len(s.Interactions)).
			Bool("has_predictor", s.Predictor != nil).
			Msg("snapshot swapped")
	}
}

// CurrentSnapshot returns the loaded snapshot, nil before the first swap.
func (e *Engine) CurrentSnapshot() *Snapshot {
	return e.snapshot.Load()
}

// Ready reports whether the engine can serve scoring requests.
func (e *Engine) Ready() bool {
	s := e.snapshot.Load()
	return s != nil && s.Predictor != nil && len(s.FeatureNames) > 0
}

// Status reports the loaded snapshot's vitals.
func (e *Engine) Status() Status {
	s := e.snapshot.Load()
	if s == nil {
		return Status{}
	}
	return Status{
		Ready:        s.Predictor != nil && len(s.FeatureNames) > 0,
		Version:      s.Version,
		BuiltAt:      s.BuiltAt,
		Restaurants:  len(s.Restaurants),
		Profiles:     len(s.Profiles),
		Interactions: len(s.Interactions),
	}
}

// GenerateRecommendations runs the composite scoring pipeline: feature
// assembly, model prediction, composite scoring, personalization or
// cold-start adjustment, sigmoid calibration, and ranking. Recoverable
// stage degradations are logged and the request still completes; only a
// missing snapshot and an empty candidate set return errors.
func (e *Engine) GenerateRecommendations(ctx context.Context, req Request) (*RecommendationResult, error) {
	snap := e.snapshot.Load()
	if snap == nil || snap.Predictor == nil || len(snap.FeatureNames) == 0 {
		return nil, ErrNotReady
	}

	for _, id := range req.Categories {
		if id < 1 || id > NumCategories {
			return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, id)
		}
	}

	candidates, err := e.selectCandidates(snap, req.Categories)
	if err != nil {
		return nil, err
	}

	result := ok()

	scored, stage := e.predictScores(snap, candidates)
	countDegradations("prediction", stage)
	result = result.merge(stage)
	if result.Status == StageFatal {
		return nil, result.Err
	}

	scoreCandidates(&e.cfg.Scoring, scored)

	profile, hasProfile := snap.Profiles[req.UserID]
	isNewUser := !hasProfile
	if hasProfile {
		scored, stage = personalize(&e.cfg.Personalization, profile, scored)
		countDegradations("personalization", stage)
		result = result.merge(stage)
		if result.Status == StageFatal {
			return nil, result.Err
		}
	} else {
		stage = adjustNewUser(&e.cfg.Personalization, scored)
		countDegradations("cold_start", stage)
		result = result.merge(stage)
		preferred := inferPreferredCategory(req.Categories)
		stage = enhanceColdStart(&e.cfg.ColdStart, preferred, scored)
		countDegradations("cold_start", stage)
		result = result.merge(stage)
	}

	calibrateCandidates(&e.cfg.Scoring, scored)

	items := rank(e.cfg.Limits.TopK, scored)

	e.logResult(ctx, req.UserID, isNewUser, len(items), result)

	return &RecommendationResult{
		UserID:    req.UserID,
		IsNewUser: isNewUser,
		Items:     items,
	}, nil
}

// GenerateHybrid runs the collaborative/content hybrid path. The hybrid
// model is built lazily per snapshot; a build failure from empty rating
// data surfaces as ErrNoInteractionData so the caller can fall back to
// the composite path.
func (e *Engine) GenerateHybrid(ctx context.Context, req HybridRequest) (*RecommendationResult, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, ErrNotReady
	}

	model, err := snap.HybridModel()
	if err != nil {
		if errors.Is(err, hybrid.ErrNoRatings) {
			return nil, fmt.Errorf("%w: %w", ErrNoInteractionData, err)
		}
		return nil, fmt.Errorf("building hybrid model: %w", err)
	}

	n := req.N
	if n <= 0 || n > e.cfg.Limits.TopK {
		n = e.cfg.Limits.TopK
	}
	alpha := req.Alpha
	if alpha < 0 || alpha > 1 {
		alpha = e.cfg.Hybrid.DefaultAlpha
	}

	scored := model.Recommend(req.UserID, hybrid.Params{
		N:                       n,
		Alpha:                   alpha,
		TopSimilarUsers:         e.cfg.Hybrid.TopSimilarUsers,
		TopRatedItems:           e.cfg.Hybrid.TopRatedItems,
		MinRatingsForPopularity: e.cfg.Hybrid.MinRatingsForPopularity,
		PopularityPoolSize:      e.cfg.Hybrid.PopularityPoolSize,
	})

	// The blended scores rank the items but live on a different scale
	// than the calibrated composite path (CB accumulation is unbounded),
	// so the emitted composite is rank-based: 5.0 for the top item,
	// stepping down by 0.15 per rank.
	items := make([]RecommendationItem, 0, len(scored))
	for i, s := range scored {
		r := snap.Restaurant(s.ItemID)
		if r == nil {
			// Rating history can reference restaurants that have since
			// left the reference table.
			e.logger.Warn().Int("restaurant_id", s.ItemID).Msg("hybrid result missing from reference table")
			continue
		}
		items = append(items, RecommendationItem{
			CategoryID:     r.CategoryID,
			RestaurantID:   r.RestaurantID,
			Score:          round3(r.Score),
			PredictedScore: round3(r.Score),
			CompositeScore: round3(5.0 - float64(i)*hybridRankStep),
		})
	}

	isNewUser := !model.HasUser(req.UserID)
	e.logResult(ctx, req.UserID, isNewUser, len(items), ok())

	return &RecommendationResult{
		UserID:    req.UserID,
		IsNewUser: isNewUser,
		Items:     items,
	}, nil
}

// selectCandidates filters the reference table by category. Empty
// category list means all restaurants are candidates.
func (e *Engine) selectCandidates(snap *Snapshot, categories []int) ([]*RestaurantRecord, error) {
	wanted := make(map[int]bool, len(categories))
	for _, id := range categories {
		wanted[id] = true
	}

	candidates := make([]*RestaurantRecord, 0, len(snap.Restaurants))
	for i := range snap.Restaurants {
		r := &snap.Restaurants[i]
		if len(wanted) > 0 && !wanted[r.CategoryID] {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return candidates, nil
}

// predictScores assembles the feature matrix, applies the fitted scaler,
// and scores candidates with the trained model. A transform or predict
// failure degrades every predicted score to the raw rating rather than
// failing the request; prediction is an enrichment, not a gate.
func (e *Engine) predictScores(snap *Snapshot, candidates []*RestaurantRecord) ([]CandidateScore, StageResult) {
	scored := make([]CandidateScore, len(candidates))
	for i, r := range candidates {
		scored[i] = CandidateScore{
			Restaurant: r,
			Raw:        r.Score,
			Predicted:  r.Score,
		}
	}

	matrix, result := buildFeatureMatrix(snap.FeatureNames, candidates)
	if result.Status == StageFatal {
		return nil, result
	}

	scaled, err := snap.Predictor.Transform(matrix)
	if err != nil {
		return scored, result.merge(degraded(fmt.Sprintf("scaler transform failed, using raw scores: %v", err)))
	}
	preds, err := snap.Predictor.Predict(scaled)
	if err != nil {
		return scored, result.merge(degraded(fmt.Sprintf("model predict failed, using raw scores: %v", err)))
	}
	if len(preds) != len(scored) {
		return scored, result.merge(degraded(fmt.Sprintf("model returned %d scores for %d candidates, using raw scores", len(preds), len(scored))))
	}

	for i := range scored {
		scored[i].Predicted = preds[i]
	}
	return scored, result
}

// countDegradations records a degraded stage's warnings in Prometheus.
func countDegradations(stage string, result StageResult) {
	if result.Status == StageDegraded {
		metrics.PipelineDegradations.WithLabelValues(stage).Add(float64(len(result.Warnings)))
	}
}

// logResult emits one line per request, warning when any stage degraded.
func (e *Engine) logResult(ctx context.Context, userID string, isNewUser bool, count int, result StageResult) {
	evt := e.logger.Debug()
	if result.Status == StageDegraded {
		evt = e.logger.Warn().Strs("warnings", result.Warnings)
	}
	if ctx.Err() != nil {
		evt = evt.AnErr("ctx_err", ctx.Err())
	}
	evt.
		Str("user_id", userID).
		Bool("is_new_user", isNewUser).
		Int("items", count).
		Msg("recommendations generated")
}
