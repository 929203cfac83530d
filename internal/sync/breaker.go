// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package sync

import (
	"context"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tastemap/tastemap/internal/logging"
	"github.com/tastemap/tastemap/internal/metrics"
	"github.com/tastemap/tastemap/internal/recommend"
	"github.com/tastemap/tastemap/internal/recommend/model"
)

// BreakerProvider wraps a DataProvider with a circuit breaker so a
// misbehaving data source cannot stall every rebuild cycle. The breaker
// uses real time for its interval and timeout calculations; tests should
// exercise the wrapped provider directly.
type BreakerProvider struct {
	inner DataProvider
	cb    *gobreaker.CircuitBreaker[any]
}

// NewBreakerProvider wraps inner with a breaker that opens at a 60%
// failure rate over at least 10 calls, resets its window every minute,
// and probes recovery after two minutes.
func NewBreakerProvider(inner DataProvider) *BreakerProvider {
	metrics.CircuitBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "data-provider",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("data provider circuit opening")
				return true
			}
			return false
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.Set(stateToFloat(to))
		},
	})

	return &BreakerProvider{inner: inner, cb: cb}
}

// castResult type-casts a breaker result, preserving the breaker error.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// FetchRestaurants fetches the restaurant table with breaker protection.
func (b *BreakerProvider) FetchRestaurants(ctx context.Context) ([]recommend.RestaurantRecord, error) {
	return castResult[[]recommend.RestaurantRecord](b.cb.Execute(func() (any, error) {
		return b.inner.FetchRestaurants(ctx)
	}))
}

// FetchProfiles fetches the profile table with breaker protection.
func (b *BreakerProvider) FetchProfiles(ctx context.Context) ([]recommend.UserProfile, error) {
	return castResult[[]recommend.UserProfile](b.cb.Execute(func() (any, error) {
		return b.inner.FetchProfiles(ctx)
	}))
}

// FetchInteractions fetches the rating history with breaker protection.
func (b *BreakerProvider) FetchInteractions(ctx context.Context) ([]recommend.Interaction, error) {
	return castResult[[]recommend.Interaction](b.cb.Execute(func() (any, error) {
		return b.inner.FetchInteractions(ctx)
	}))
}

// FetchModel fetches the trained artifacts with breaker protection.
func (b *BreakerProvider) FetchModel(ctx context.Context) (*model.Artifacts, error) {
	return castResult[*model.Artifacts](b.cb.Execute(func() (any, error) {
		return b.inner.FetchModel(ctx)
	}))
}

// stateToFloat converts circuit breaker state to a metric value.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to a log label.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
