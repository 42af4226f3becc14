// Package session holds the mutable state of one grading run: the ordered
// result set every pipeline stage appends to, the error log, and the
// session's workspace on disk.
package session

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ragmark/ragmark/pkg/types"
)

// MetadataKey is the results key the finalized session metadata is stored
// under.
const MetadataKey = "_metadata"

// Session is the root aggregate for one grading run. It is owned exclusively
// by the orchestrator; there are no concurrent writers.
type Session struct {
	GradingID string
	Workspace string
	StartTime time.Time
	EndTime   time.Time

	logger    zerolog.Logger
	keys      []string
	results   map[string]any
	errors    []types.SessionError
	finalized bool
}

// New creates a session stamped with the current time.
func New(gradingID, workspace string, logger zerolog.Logger) *Session {
	return &Session{
		GradingID: gradingID,
		Workspace: workspace,
		StartTime: time.Now(),
		logger:    logger,
		results:   make(map[string]any),
	}
}

// AddResult records a value under key. Insertion order is preserved;
// re-adding an existing key overwrites the value in place.
func (s *Session) AddResult(key string, value any) {
	if _, ok := s.results[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.results[key] = value
	s.logger.Info().Str("key", key).Interface("value", value).Msg("result added")
}

// AddResults records a structured result set for a category. Semantically
// identical to AddResult; kept as a separate name so call sites read as
// category-level appends.
func (s *Session) AddResults(category string, results any) {
	if _, ok := s.results[category]; !ok {
		s.keys = append(s.keys, category)
	}
	s.results[category] = results
	s.logger.Info().Str("category", category).Msg("category results added")
}

// AddError appends a timestamped message to the error log. The log is
// append-only and never cleared.
func (s *Session) AddError(msg string) {
	s.errors = append(s.errors, types.SessionError{
		Timestamp: time.Now().Format(time.RFC3339),
		Error:     msg,
	})
	s.logger.Error().Msg(msg)
}

// Results returns the underlying result map. Callers must treat it as
// read-only; the session remains the sole writer.
func (s *Session) Results() map[string]any {
	return s.results
}

// Keys returns the result keys in insertion order.
func (s *Session) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Errors returns a copy of the error log.
func (s *Session) Errors() []types.SessionError {
	return append([]types.SessionError(nil), s.errors...)
}

// Finalize stamps the end time and folds the session metadata (including
// the error log) into the result set. Finalize is a no-op after the first
// call: the end time, duration, and metadata are computed exactly once.
func (s *Session) Finalize() {
	if s.finalized {
		return
	}
	s.finalized = true
	s.EndTime = time.Now()

	s.AddResult(MetadataKey, types.SessionMetadata{
		GradingID:       s.GradingID,
		StartTime:       s.StartTime.Format(time.RFC3339),
		EndTime:         s.EndTime.Format(time.RFC3339),
		DurationSeconds: s.EndTime.Sub(s.StartTime).Seconds(),
		Errors:          s.Errors(),
	})
}

// Finalized reports whether Finalize has run.
func (s *Session) Finalized() bool { return s.finalized }

// Duration returns the session duration, or the elapsed time so far when
// the session has not finalized yet.
func (s *Session) Duration() time.Duration {
	if s.finalized {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}
