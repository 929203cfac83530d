// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

// Package recommend implements the restaurant recommendation scoring engine.
//
// The engine blends a learned regression score with rule-based business
// adjustments, routes users to a personalized or cold-start path, and
// produces a ranked, deduplicated top-K list. It operates on an immutable
// Snapshot (reference tables plus trained predictor artifacts) that a
// background sync worker swaps atomically; request handling is stateless
// and lock-free given a snapshot.
//
// Pipeline stages, in order: feature assembly, predicted-score lookup,
// composite scoring, personalization or cold-start adjustment, sigmoid
// calibration, ranking and deduplication. Each stage reports OK or
// Degraded (with warnings) so partial data never aborts a request; only
// missing artifacts and an empty candidate set surface as errors.
//
// The hybrid collaborative/content path lives in the hybrid subpackage and
// is reached through Engine.GenerateHybrid.
package recommend
