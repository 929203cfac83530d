// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

// Package hybrid implements the collaborative/content hybrid recommender.
//
// A Model is built once per data snapshot from raw rating events and
// restaurant attribute vectors: a sparse user-restaurant rating matrix,
// precomputed user-user and item-item cosine similarities, and per-item
// popularity statistics. Content similarity between attribute vectors is
// computed on demand; the vectors are small.
//
// Recommendation blends user-based collaborative filtering with
// content-based scoring over the user's own rating history, falling back
// to item-based CF and finally to popularity when signal is missing.
// A user with no rating history degrades to the popularity ranking rather
// than failing.
package hybrid
