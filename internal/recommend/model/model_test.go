// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

const validArtifacts = `{
	"feature_names": ["score", "review", "log_review"],
	"scaler": {
		"mean": [3.5, 120.0, 4.0],
		"scale": [0.5, 80.0, 1.0]
	},
	"model": {
		"coefficients": [0.8, 0.001, 0.2],
		"intercept": 3.2
	}
}`

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"valid artifacts", validArtifacts, false},
		{"invalid json", `{"feature_names": [`, true},
		{"empty feature list", `{"feature_names": [], "scaler": {"mean": [], "scale": []}, "model": {"coefficients": []}}`, true},
		{
			"mean dimension mismatch",
			`{"feature_names": ["a", "b"], "scaler": {"mean": [1], "scale": [1, 1]}, "model": {"coefficients": [1, 1]}}`,
			true,
		},
		{
			"coefficient dimension mismatch",
			`{"feature_names": ["a", "b"], "scaler": {"mean": [1, 1], "scale": [1, 1]}, "model": {"coefficients": [1]}}`,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, []byte(validArtifacts), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	a, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(a.FeatureNames) != 3 {
		t.Errorf("FeatureNames = %v, want 3 entries", a.FeatureNames)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Load(missing) = nil error, want error")
	}
}

func TestTransform(t *testing.T) {
	a, err := Parse([]byte(validArtifacts))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	out, err := a.Transform([][]float64{{4.0, 200.0, 5.0}})
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	want := []float64{(4.0 - 3.5) / 0.5, (200.0 - 120.0) / 80.0, (5.0 - 4.0) / 1.0}
	for j := range want {
		if math.Abs(out[0][j]-want[j]) > 1e-9 {
			t.Errorf("out[0][%d] = %f, want %f", j, out[0][j], want[j])
		}
	}

	if _, err := a.Transform([][]float64{{1.0}}); err == nil {
		t.Error("Transform(short row) = nil error, want error")
	}
}

func TestTransformZeroScaleCentersOnly(t *testing.T) {
	a, err := Parse([]byte(`{
		"feature_names": ["constant"],
		"scaler": {"mean": [2.0], "scale": [0.0]},
		"model": {"coefficients": [1.0], "intercept": 0}
	}`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	out, err := a.Transform([][]float64{{5.0}})
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if out[0][0] != 3.0 {
		t.Errorf("zero-scale column = %f, want centered 3.0", out[0][0])
	}
}

func TestPredict(t *testing.T) {
	a, err := Parse([]byte(validArtifacts))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	preds, err := a.Predict([][]float64{{1.0, 2.0, 3.0}, {0, 0, 0}})
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	want0 := 3.2 + 0.8*1.0 + 0.001*2.0 + 0.2*3.0
	if math.Abs(preds[0]-want0) > 1e-9 {
		t.Errorf("preds[0] = %f, want %f", preds[0], want0)
	}
	if math.Abs(preds[1]-3.2) > 1e-9 {
		t.Errorf("preds[1] = %f, want intercept 3.2", preds[1])
	}

	if _, err := a.Predict([][]float64{{1.0}}); err == nil {
		t.Error("Predict(short row) = nil error, want error")
	}
}
