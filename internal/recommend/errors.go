// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

import "errors"

// Sentinel errors for the caller-visible failure modes. Everything else
// degrades in place: missing columns become zero values, a profile miss
// routes to the cold-start path, and a failed bonus computation becomes a
// zero bonus with a logged warning.
var (
	// ErrNotReady indicates the engine has no usable snapshot: the
	// predictor, scaler, or feature list is missing. Surfaced to clients
	// as service-unavailable.
	ErrNotReady = errors.New("recommendation model not ready")

	// ErrNoCandidates indicates the candidate set is empty after
	// category and price filtering.
	ErrNoCandidates = errors.New("no candidates after filtering")

	// ErrNoInteractionData indicates the hybrid recommender has no
	// rating history to build matrices from. Callers fall back to the
	// composite scoring path.
	ErrNoInteractionData = errors.New("no interaction data for hybrid recommendation")

	// ErrUnknownCategory indicates a requested category name or ID is
	// outside the fixed 12-way category space.
	ErrUnknownCategory = errors.New("unknown restaurant category")
)
