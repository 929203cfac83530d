// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

import (
	"fmt"
	"math"
	"strings"
)

// Feature name prefixes understood by the assembler. The trained model's
// feature list mixes base columns, amenity indicator columns, and derived
// columns; anything it names that a record cannot supply is synthesized
// as zero rather than failing the request.
const (
	featureConvPrefix    = "conv_"
	featureCautionPrefix = "caution_"
)

// buildFeatureMatrix assembles the feature matrix the predictor expects:
// one row per candidate, columns in snapshot feature-list order. Unknown
// feature names degrade to zero columns with a single warning per name.
func buildFeatureMatrix(names []string, candidates []*RestaurantRecord) ([][]float64, StageResult) {
	if len(names) == 0 {
		return nil, fatal(fmt.Errorf("%w: empty feature list", ErrNotReady))
	}

	unknown := map[string]bool{}
	matrix := make([][]float64, len(candidates))
	for i, r := range candidates {
		row := make([]float64, len(names))
		for j, name := range names {
			v, known := featureValue(r, name)
			if !known {
				unknown[name] = true
			}
			row[j] = v
		}
		matrix[i] = row
	}

	if len(unknown) == 0 {
		return matrix, ok()
	}
	warnings := make([]string, 0, len(unknown))
	for name := range unknown {
		warnings = append(warnings, fmt.Sprintf("feature %q not derivable, synthesized as 0", name))
	}
	return matrix, degraded(warnings...)
}

// featureValue resolves one named feature for a record. The second return
// is false when the name is not derivable from the schema.
func featureValue(r *RestaurantRecord, name string) (float64, bool) {
	switch name {
	case "review":
		return float64(r.Review), true
	case "duration_hours":
		return r.DurationHours, true
	case "score":
		return r.Score, true
	case "price":
		return r.Price, true
	case "log_review":
		return math.Log1p(float64(r.Review)), true
	case "review_duration":
		return float64(r.Review) * r.DurationHours, true
	}

	if amenity, found := strings.CutPrefix(name, featureConvPrefix); found {
		if r.Conveniences[amenity] {
			return 1, true
		}
		return 0, true
	}

	if flag, found := strings.CutPrefix(name, featureCautionPrefix); found {
		return cautionFeature(r.Caution, flag)
	}

	return 0, false
}

// cautionFeature maps a caution feature suffix to the record's flags.
func cautionFeature(c Caution, flag string) (float64, bool) {
	var set bool
	switch flag {
	case "delivery_available":
		set = c.DeliveryAvailable
	case "reservation_available":
		set = c.ReservationAvailable
	case "takeout_available":
		set = c.TakeoutAvailable
	case "delivery_unavailable":
		set = c.DeliveryUnavailable
	case "reservation_unavailable":
		set = c.ReservationUnavailable
	case "takeout_unavailable":
		set = c.TakeoutUnavailable
	default:
		return 0, false
	}
	if set {
		return 1, true
	}
	return 0, true
}
