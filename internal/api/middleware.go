// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tastemap/tastemap/internal/logging"
	"github.com/tastemap/tastemap/internal/metrics"
)

// requestIDHeader carries the per-request correlation ID.
const requestIDHeader = "X-Request-ID"

// RequestID assigns a correlation ID to every request, honoring one
// supplied by the client.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Instrument records request latency and outcome per endpoint.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		metrics.ObserveAPIRequest(r.Method, r.URL.Path, rec.status, duration)

		evt := logging.Debug()
		if rec.status >= 500 {
			evt = logging.Error()
		} else if rec.status >= 400 {
			evt = logging.Warn()
		}
		evt.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", duration).
			Str("request_id", w.Header().Get(requestIDHeader)).
			Msg("request handled")
	})
}
