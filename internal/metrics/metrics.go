// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

// Package metrics exposes Prometheus instrumentation for the
// recommendation service: request latency and outcomes, scoring-path
// selection, pipeline degradations, snapshot sync health, and the
// feedback store.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Recommendation Metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total recommendation requests by path and outcome",
		},
		[]string{"path", "outcome"}, // path: composite, hybrid; outcome: ok, degraded, error
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Recommendation generation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	ColdStartRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cold_start_requests_total",
			Help: "Requests routed to the cold-start path",
		},
	)

	PipelineDegradations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_degradations_total",
			Help: "Recoverable pipeline degradations by stage",
		},
		[]string{"stage"},
	)

	// Snapshot / Sync Metrics
	SnapshotBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_builds_total",
			Help: "Snapshot rebuild attempts by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	SnapshotBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapshot_build_duration_seconds",
			Help:    "Snapshot rebuild duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	SnapshotAge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_age_seconds",
			Help: "Age of the currently served snapshot in seconds",
		},
	)

	SnapshotRestaurants = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_restaurants",
			Help: "Restaurant rows in the current snapshot",
		},
	)

	SnapshotProfiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_profiles",
			Help: "User profile rows in the current snapshot",
		},
	)

	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "data_provider_circuit_breaker_state",
			Help: "Data provider circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Feedback Store Metrics
	FeedbackWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_writes_total",
			Help: "Feedback store writes by result",
		},
		[]string{"result"},
	)
)

// ObserveAPIRequest records one completed HTTP request.
func ObserveAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// ObserveRecommendation records one recommendation request.
func ObserveRecommendation(path, outcome string, duration time.Duration) {
	RecommendationsTotal.WithLabelValues(path, outcome).Inc()
	RecommendationDuration.WithLabelValues(path).Observe(duration.Seconds())
}
