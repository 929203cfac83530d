// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tastemap/tastemap/internal/logging"
)

// errorResponse is the uniform error payload.
type errorResponse struct {
	// Error is a stable machine-readable error code.
	Error string `json:"error"`

	// Message is a human-readable description.
	Message string `json:"message,omitempty"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("encoding response failed")
	}
}

// writeError writes the uniform error payload.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
