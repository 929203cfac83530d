// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tastemap/tastemap/internal/config"
	"github.com/tastemap/tastemap/internal/recommend"
	"github.com/tastemap/tastemap/internal/recommend/model"
	tmsync "github.com/tastemap/tastemap/internal/sync"
)

// passthroughPredictor returns each row's first column unchanged.
type passthroughPredictor struct{}

func (passthroughPredictor) Transform(features [][]float64) ([][]float64, error) {
	return features, nil
}

func (passthroughPredictor) Predict(scaled [][]float64) ([]float64, error) {
	out := make([]float64, len(scaled))
	for i, row := range scaled {
		out[i] = row[0]
	}
	return out, nil
}

type stubProvider struct{}

func (stubProvider) FetchRestaurants(ctx context.Context) ([]recommend.RestaurantRecord, error) {
	return []recommend.RestaurantRecord{{RestaurantID: 1, CategoryID: 1, Score: 4}}, nil
}

func (stubProvider) FetchProfiles(ctx context.Context) ([]recommend.UserProfile, error) {
	return nil, nil
}

func (stubProvider) FetchInteractions(ctx context.Context) ([]recommend.Interaction, error) {
	return nil, nil
}

func (stubProvider) FetchModel(ctx context.Context) (*model.Artifacts, error) {
	return model.Parse([]byte(`{
		"feature_names": ["score"],
		"scaler": {"mean": [0], "scale": [1]},
		"model": {"coefficients": [1], "intercept": 0}
	}`))
}

func testSnapshot(n int, interactions []recommend.Interaction) *recommend.Snapshot {
	restaurants := make([]recommend.RestaurantRecord, 0, n)
	for i := 1; i <= n; i++ {
		restaurants = append(restaurants, recommend.RestaurantRecord{
			RestaurantID:  i,
			CategoryID:    (i % recommend.NumCategories) + 1,
			Score:         2 + float64(i%30)/10,
			Review:        i * 5,
			DurationHours: 8,
		})
	}
	return &recommend.Snapshot{
		Version:      "snap-1",
		BuiltAt:      time.Now().UTC(),
		Restaurants:  restaurants,
		Profiles:     map[string]recommend.UserProfile{},
		Interactions: interactions,
		Predictor:    passthroughPredictor{},
		FeatureNames: []string{"score"},
	}
}

func newTestHandler(t *testing.T, ready bool) *Handler {
	t.Helper()
	engine, err := recommend.NewEngine(recommend.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	if ready {
		engine.SwapSnapshot(testSnapshot(30, nil))
	}
	manager := tmsync.NewManager(stubProvider{}, engine, config.SyncConfig{
		RetryDelay: time.Millisecond,
	}, zerolog.Nop())
	return NewHandler(engine, manager, nil, zerolog.Nop())
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRecommendNotReady(t *testing.T) {
	h := newTestHandler(t, false)

	rec := postJSON(t, h.Recommend, `{"user_id": "u1", "preferred_categories": ["korean"]}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want %q", got, "30")
	}
}

func TestRecommendValidation(t *testing.T) {
	h := newTestHandler(t, true)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing user", `{"preferred_categories": ["korean"]}`, http.StatusBadRequest},
		{"empty categories", `{"user_id": "u1", "preferred_categories": []}`, http.StatusBadRequest},
		{"unknown category", `{"user_id": "u1", "preferred_categories": ["martian"]}`, http.StatusBadRequest},
		{"valid", `{"user_id": "u1", "preferred_categories": ["korean", "pasta"]}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Recommend, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body: %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRecommendHappyPath(t *testing.T) {
	h := newTestHandler(t, true)

	rec := postJSON(t, h.Recommend, `{"user_id": "stranger", "preferred_categories": ["korean", "pasta", "steak"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result recommend.RecommendationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.UserID != "stranger" {
		t.Errorf("UserID = %q, want stranger", result.UserID)
	}
	if !result.IsNewUser {
		t.Error("IsNewUser = false for unknown user")
	}
	if len(result.Items) == 0 {
		t.Fatal("empty recommendation list")
	}
	wantCats := map[int]bool{7: true, 4: true, 9: true}
	for _, item := range result.Items {
		if !wantCats[item.CategoryID] {
			t.Errorf("item %d has category %d outside the requested set", item.RestaurantID, item.CategoryID)
		}
	}
}

func TestRecommendHybridFallsBack(t *testing.T) {
	// No interaction data: the hybrid endpoint degrades to composite
	// scoring instead of failing.
	h := newTestHandler(t, true)

	rec := postJSON(t, h.RecommendHybrid, `{"user_id": "u1", "n": 5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result recommend.RecommendationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(result.Items) == 0 {
		t.Error("fallback returned no items")
	}
}

func TestRecommendHybridWithHistory(t *testing.T) {
	h := newTestHandler(t, true)
	var interactions []recommend.Interaction
	for u := 0; u < 6; u++ {
		for id := 1; id <= 6; id++ {
			interactions = append(interactions, recommend.Interaction{
				UserID:       fmt.Sprintf("user%d", u),
				RestaurantID: id,
				Rating:       float64(3 + (u+id)%3),
			})
		}
	}
	h.engine.SwapSnapshot(testSnapshot(30, interactions))

	rec := postJSON(t, h.RecommendHybrid, `{"user_id": "user0", "n": 5, "alpha": 0.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result recommend.RecommendationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if result.IsNewUser {
		t.Error("IsNewUser = true for user with history")
	}
	rated := map[int]bool{}
	for _, in := range interactions {
		if in.UserID == "user0" {
			rated[in.RestaurantID] = true
		}
	}
	for _, item := range result.Items {
		if rated[item.RestaurantID] {
			t.Errorf("already-rated restaurant %d recommended", item.RestaurantID)
		}
	}
}

func TestHybridValidation(t *testing.T) {
	h := newTestHandler(t, true)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"negative n", `{"user_id": "u1", "n": -1}`, http.StatusBadRequest},
		{"n too large", `{"user_id": "u1", "n": 101}`, http.StatusBadRequest},
		{"alpha above one", `{"user_id": "u1", "alpha": 1.5}`, http.StatusBadRequest},
		{"alpha negative", `{"user_id": "u1", "alpha": -0.5}`, http.StatusBadRequest},
		{"alpha zero", `{"user_id": "u1", "alpha": 0}`, http.StatusOK},
		{"missing user", `{"n": 5}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.RecommendHybrid, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHybridAlphaZeroIsExplicit(t *testing.T) {
	var explicit hybridRequest
	if err := json.Unmarshal([]byte(`{"user_id": "u1", "alpha": 0}`), &explicit); err != nil {
		t.Fatalf("decoding request: %v", err)
	}
	if explicit.Alpha == nil || *explicit.Alpha != 0 {
		t.Errorf("explicit alpha 0 decoded as %v, want pointer to 0", explicit.Alpha)
	}

	var absent hybridRequest
	if err := json.Unmarshal([]byte(`{"user_id": "u1"}`), &absent); err != nil {
		t.Fatalf("decoding request: %v", err)
	}
	if absent.Alpha != nil {
		t.Errorf("absent alpha decoded as %f, want nil", *absent.Alpha)
	}
}

func TestStatus(t *testing.T) {
	h := newTestHandler(t, true)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Model      recommend.Status `json:"model"`
		Rebuilding bool             `json:"rebuilding"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !body.Model.Ready {
		t.Error("model.ready = false with loaded snapshot")
	}
	if body.Model.Version != "snap-1" {
		t.Errorf("model.version = %q, want snap-1", body.Model.Version)
	}
}

func TestReloadRateLimited(t *testing.T) {
	h := newTestHandler(t, true)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	h.Reload(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first reload status = %d, want 202", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second reload status = %d, want 429", rec.Code)
	}
}

// flakyProvider fails every FetchRestaurants call, counting attempts.
type flakyProvider struct {
	stubProvider
	attempts atomic.Int32
}

func (p *flakyProvider) FetchRestaurants(ctx context.Context) ([]recommend.RestaurantRecord, error) {
	p.attempts.Add(1)
	return nil, errors.New("provider offline")
}

func TestReloadSurvivesRequestCancellation(t *testing.T) {
	engine, err := recommend.NewEngine(recommend.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	provider := &flakyProvider{}
	manager := tmsync.NewManager(provider, engine, config.SyncConfig{
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, zerolog.Nop())
	h := NewHandler(engine, manager, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Reload(rec, req)
	cancel() // net/http cancels the request context once the handler returns

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	// The background rebuild must keep retrying past the cancellation:
	// one initial attempt plus two retries.
	deadline := time.Now().Add(2 * time.Second)
	for provider.attempts.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("provider attempts = %d, want 3 (retry loop aborted)", provider.attempts.Load())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHealthEndpoints(t *testing.T) {
	notReady := newTestHandler(t, false)
	ready := newTestHandler(t, true)

	rec := httptest.NewRecorder()
	notReady.HealthLive(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	notReady.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503 before snapshot", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want %q", got, "30")
	}

	rec = httptest.NewRecorder()
	ready.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200 with snapshot", rec.Code)
	}
}

func TestRouterRoutes(t *testing.T) {
	h := newTestHandler(t, true)
	router := NewRouter(&config.ServerConfig{
		Timeout:         5 * time.Second,
		RateLimitReqs:   100,
		RateLimitWindow: time.Minute,
	}, h)

	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/health/live")
	if err != nil {
		t.Fatalf("GET /health/live error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("live status = %d, want 200", resp.StatusCode)
	}

	resp2, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", resp2.StatusCode)
	}
}
