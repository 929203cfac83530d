// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

// Package api exposes the recommendation service over HTTP with a Chi
// router: recommendation generation, the hybrid path, snapshot status,
// forced reload, health, and Prometheus metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tastemap/tastemap/internal/feedback"
	"github.com/tastemap/tastemap/internal/metrics"
	"github.com/tastemap/tastemap/internal/recommend"
	tmsync "github.com/tastemap/tastemap/internal/sync"
)

// retryAfterSeconds is advertised while the model is not yet loaded.
const retryAfterSeconds = "30"

// Handler carries the dependencies of every endpoint. Feedback may be
// nil when persistence is disabled.
type Handler struct {
	engine   *recommend.Engine
	manager  *tmsync.Manager
	feedback *feedback.Store
	validate *validator.Validate
	logger   zerolog.Logger

	// reloadLimiter throttles forced snapshot rebuilds.
	reloadLimiter *rate.Limiter
}

// NewHandler builds the endpoint handler set.
func NewHandler(engine *recommend.Engine, manager *tmsync.Manager, fb *feedback.Store, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:        engine,
		manager:       manager,
		feedback:      fb,
		validate:      validator.New(),
		logger:        logger.With().Str("component", "api").Logger(),
		reloadLimiter: rate.NewLimiter(rate.Every(30*time.Second), 1),
	}
}

// recommendRequest is the composite-path request body.
type recommendRequest struct {
	// UserID identifies the requesting user.
	UserID string `json:"user_id" validate:"required"`

	// PreferredCategories lists category slugs to filter on.
	PreferredCategories []string `json:"preferred_categories" validate:"required,min=1,dive,required"`
}

// hybridRequest is the hybrid-path request body.
type hybridRequest struct {
	// UserID identifies the requesting user.
	UserID string `json:"user_id" validate:"required"`

	// N is the desired result count (0 = server default).
	N int `json:"n" validate:"gte=0,lte=100"`

	// Alpha is the CF/CB blend weight. Nil means the server default;
	// an explicit 0 requests pure content-based scoring.
	Alpha *float64 `json:"alpha" validate:"omitempty,gte=0,lte=1"`
}

// Recommend serves POST /api/v1/recommendations.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	categoryIDs, err := recommend.CategoryIDs(req.PreferredCategories)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_category", err.Error())
		return
	}

	start := time.Now()
	result, err := h.engine.GenerateRecommendations(r.Context(), recommend.Request{
		UserID:     req.UserID,
		Categories: categoryIDs,
	})
	if err != nil {
		h.writeEngineError(w, "composite", err, time.Since(start))
		return
	}
	metrics.ObserveRecommendation("composite", "ok", time.Since(start))
	if result.IsNewUser {
		metrics.ColdStartRequests.Inc()
	}

	h.recordFeedback("composite", result)
	writeJSON(w, http.StatusOK, result)
}

// RecommendHybrid serves POST /api/v1/recommendations/hybrid. When the
// hybrid pipeline has no interaction data it falls back to the composite
// path over all categories.
func (h *Handler) RecommendHybrid(w http.ResponseWriter, r *http.Request) {
	var req hybridRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	alpha := -1.0 // engine substitutes its configured default
	if req.Alpha != nil {
		alpha = *req.Alpha
	}

	start := time.Now()
	result, err := h.engine.GenerateHybrid(r.Context(), recommend.HybridRequest{
		UserID: req.UserID,
		N:      req.N,
		Alpha:  alpha,
	})
	if errors.Is(err, recommend.ErrNoInteractionData) {
		h.logger.Warn().Str("user_id", req.UserID).Msg("hybrid path unavailable, falling back to composite scoring")
		result, err = h.engine.GenerateRecommendations(r.Context(), recommend.Request{UserID: req.UserID})
	}
	if err != nil {
		h.writeEngineError(w, "hybrid", err, time.Since(start))
		return
	}
	metrics.ObserveRecommendation("hybrid", "ok", time.Since(start))

	h.recordFeedback("hybrid", result)
	writeJSON(w, http.StatusOK, result)
}

// Status serves GET /api/v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.engine.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"model":      status,
		"rebuilding": h.manager.Rebuilding(),
	})
}

// Reload serves POST /api/v1/reload: a rate-limited forced snapshot
// rebuild, started in the background.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if !h.reloadLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "reload requested too frequently")
		return
	}
	if h.manager.Rebuilding() {
		writeError(w, http.StatusConflict, "rebuild_in_progress", "a snapshot rebuild is already running")
		return
	}

	// The rebuild outlives the request: net/http cancels r.Context() as
	// soon as this handler returns, which would abort the retry loop.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := h.manager.Rebuild(ctx); err != nil && !errors.Is(err, tmsync.ErrRebuildInProgress) {
			h.logger.Error().Err(err).Msg("forced snapshot rebuild failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "rebuild started"})
}

// HealthLive serves GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady serves GET /api/v1/health/ready: ready only once a usable
// snapshot is loaded.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Ready() {
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeError(w, http.StatusServiceUnavailable, "not_ready", "recommendation model is not loaded yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeEngineError maps engine errors to HTTP responses.
func (h *Handler) writeEngineError(w http.ResponseWriter, path string, err error, duration time.Duration) {
	metrics.ObserveRecommendation(path, "error", duration)

	switch {
	case errors.Is(err, recommend.ErrNotReady):
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeError(w, http.StatusServiceUnavailable, "model_not_ready", "recommendation model is initializing, retry shortly")
	case errors.Is(err, recommend.ErrNoCandidates):
		writeError(w, http.StatusBadRequest, "no_candidates", "no restaurants match the requested filters")
	case errors.Is(err, recommend.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, "unknown_category", err.Error())
	default:
		h.logger.Error().Err(err).Str("path", path).Msg("recommendation request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "recommendation generation failed")
	}
}

// recordFeedback persists a served result off the request path.
func (h *Handler) recordFeedback(path string, result *recommend.RecommendationResult) {
	if h.feedback == nil {
		return
	}
	var version string
	if s := h.engine.CurrentSnapshot(); s != nil {
		version = s.Version
	}
	h.feedback.RecordAsync(&feedback.Entry{
		UserID:          result.UserID,
		ServedAt:        time.Now().UTC(),
		Path:            path,
		SnapshotVersion: version,
		Result:          result,
	})
}
