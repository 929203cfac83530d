// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

// Package feedback persists served recommendation results to BadgerDB so
// the offline evaluation collaborator can join them against later user
// behavior. Writes happen off the request path; a write failure is
// logged and counted, never surfaced to the client.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tastemap/tastemap/internal/metrics"
	"github.com/tastemap/tastemap/internal/recommend"
)

// resultKeyPrefix namespaces served-result entries in BadgerDB.
const resultKeyPrefix = "result:"

// Entry is one persisted recommendation result with its serving context.
type Entry struct {
	// UserID identifies the served user.
	UserID string `json:"user_id"`

	// ServedAt is when the result was returned to the client.
	ServedAt time.Time `json:"served_at"`

	// Path is which pipeline produced the result (composite, hybrid).
	Path string `json:"path"`

	// SnapshotVersion identifies the snapshot that served the result.
	SnapshotVersion string `json:"snapshot_version"`

	// Result is the full served payload.
	Result *recommend.RecommendationResult `json:"result"`
}

// Store is a BadgerDB-backed feedback log.
type Store struct {
	db        *badger.DB
	retention time.Duration
	logger    zerolog.Logger
}

// Open opens (or creates) the feedback database at path. retentionDays
// bounds entry lifetime via Badger TTLs; zero keeps entries forever.
func Open(path string, retentionDays int, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening feedback store: %w", err)
	}
	var retention time.Duration
	if retentionDays > 0 {
		retention = time.Duration(retentionDays) * 24 * time.Hour
	}
	return &Store{
		db:        db,
		retention: retention,
		logger:    logger.With().Str("component", "feedback").Logger(),
	}, nil
}

// Record persists one served result. The key embeds user ID and serving
// time so per-user history iterates in chronological order.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ServedAt.IsZero() {
		e.ServedAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		metrics.FeedbackWrites.WithLabelValues("failure").Inc()
		return fmt.Errorf("marshal feedback entry: %w", err)
	}

	key := []byte(resultKeyPrefix + e.UserID + ":" + e.ServedAt.Format(time.RFC3339Nano))
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data)
		if s.retention > 0 {
			entry = entry.WithTTL(s.retention)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		metrics.FeedbackWrites.WithLabelValues("failure").Inc()
		return fmt.Errorf("write feedback entry: %w", err)
	}
	metrics.FeedbackWrites.WithLabelValues("success").Inc()
	return nil
}

// RecordAsync persists a served result on a background goroutine, logging
// failures instead of returning them. Used on the request path.
func (s *Store) RecordAsync(e *Entry) {
	go func() {
		if err := s.Record(context.Background(), e); err != nil {
			s.logger.Warn().Err(err).Str("user_id", e.UserID).Msg("feedback write failed")
		}
	}()
}

// History returns the user's persisted results, oldest first, capped at
// limit (0 means all).
func (s *Store) History(ctx context.Context, userID string, limit int) ([]*Entry, error) {
	var entries []*Entry
	prefix := []byte(resultKeyPrefix + userID + ":")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return fmt.Errorf("decode feedback entry: %w", err)
			}
			entries = append(entries, &e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, badger.ErrDBClosed) {
		return fmt.Errorf("closing feedback store: %w", err)
	}
	return nil
}
