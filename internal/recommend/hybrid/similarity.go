// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package hybrid

import "math"

// cosineSparseInt computes cosine similarity between two sparse vectors
// keyed by item ID. Returns 0 when either vector has zero norm or the
// vectors share no dimensions.
func cosineSparseInt(a, b map[int]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	// Iterate the smaller map for the dot product.
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for k, av := range a {
		if bv, found := b[k]; found {
			dot += av * bv
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (normInt(a) * normInt(b))
}

// cosineSparseString computes cosine similarity between two sparse
// vectors keyed by user ID.
func cosineSparseString(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for k, av := range a {
		if bv, found := b[k]; found {
			dot += av * bv
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (normString(a) * normString(b))
}

func normInt(v map[int]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func normString(v map[string]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// contentSimilarity computes cosine similarity between two item content
// vectors. Items missing a content vector have similarity 0 to
// everything.
func (m *Model) contentSimilarity(a, b int) float64 {
	return cosineSparseString(m.content[a], m.content[b])
}
