// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

// Package model loads trained predictor artifacts and exposes them as the
// engine's scaler/predictor capability.
//
// The training collaborator exports a JSON artifact file: the ordered
// feature-name list, standard-scaler statistics, and linear-model
// weights. This package only evaluates those artifacts; fitting them is
// the trainer's job.
package model

import (
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-json"
)

// Artifacts is a fitted standard scaler plus a trained linear model.
// It implements the engine's Predictor interface. Immutable after Load.
type Artifacts struct {
	// FeatureNames is the ordered feature list both methods expect.
	FeatureNames []string `json:"feature_names"`

	// Scaler holds per-feature standardization statistics.
	Scaler ScalerParams `json:"scaler"`

	// Model holds the linear model weights.
	Model LinearParams `json:"model"`
}

// ScalerParams holds per-feature mean and scale for standardization.
type ScalerParams struct {
	// Mean is subtracted per feature.
	Mean []float64 `json:"mean"`

	// Scale divides per feature. Zero entries pass the centered value
	// through unscaled.
	Scale []float64 `json:"scale"`
}

// LinearParams holds linear regression weights.
type LinearParams struct {
	// Coefficients is one weight per feature.
	Coefficients []float64 `json:"coefficients"`

	// Intercept is the bias term.
	Intercept float64 `json:"intercept"`
}

// Load reads and validates an artifact file.
func Load(path string) (*Artifacts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model artifacts: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates artifact JSON.
func Parse(data []byte) (*Artifacts, error) {
	var a Artifacts
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding model artifacts: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifacts: %w", err)
	}
	return &a, nil
}

// validate checks dimensional consistency between the feature list,
// scaler statistics, and model weights.
func (a *Artifacts) validate() error {
	n := len(a.FeatureNames)
	if n == 0 {
		return fmt.Errorf("empty feature list")
	}
	if len(a.Scaler.Mean) != n {
		return fmt.Errorf("scaler mean has %d entries for %d features", len(a.Scaler.Mean), n)
	}
	if len(a.Scaler.Scale) != n {
		return fmt.Errorf("scaler scale has %d entries for %d features", len(a.Scaler.Scale), n)
	}
	if len(a.Model.Coefficients) != n {
		return fmt.Errorf("model has %d coefficients for %d features", len(a.Model.Coefficients), n)
	}
	for i, v := range a.Scaler.Scale {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("scaler scale[%d] is not finite", i)
		}
	}
	for i, v := range a.Model.Coefficients {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("model coefficient[%d] is not finite", i)
		}
	}
	return nil
}

// Transform standardizes a feature matrix: (x - mean) / scale per column.
// Columns with zero scale are centered only.
func (a *Artifacts) Transform(features [][]float64) ([][]float64, error) {
	n := len(a.FeatureNames)
	out := make([][]float64, len(features))
	for i, row := range features {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d features, scaler expects %d", i, len(row), n)
		}
		scaled := make([]float64, n)
		for j, v := range row {
			centered := v - a.Scaler.Mean[j]
			if a.Scaler.Scale[j] != 0 {
				centered /= a.Scaler.Scale[j]
			}
			scaled[j] = centered
		}
		out[i] = scaled
	}
	return out, nil
}

// Predict evaluates the linear model per row.
func (a *Artifacts) Predict(scaled [][]float64) ([]float64, error) {
	n := len(a.FeatureNames)
	out := make([]float64, len(scaled))
	for i, row := range scaled {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(row), n)
		}
		score := a.Model.Intercept
		for j, v := range row {
			score += a.Model.Coefficients[j] * v
		}
		out[i] = score
	}
	return out, nil
}
