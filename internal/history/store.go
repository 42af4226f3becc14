// Package history is a SQLite-backed record of past grading runs, keyed by
// repository URL. It lets repeated submissions be compared across runs.
package history

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed store of finished grading sessions.
type Store struct {
	db *sql.DB
}

// Entry is one recorded grading run.
type Entry struct {
	GradingID       string
	RepoURL         string
	TotalScore      float64
	Grade           string
	DurationSeconds float64
	CreatedAt       time.Time
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	store, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New creates the grading_history table and index if they don't exist, then
// returns a Store backed by the provided *sql.DB.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS grading_history (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			grading_id       TEXT    NOT NULL,
			repo_url         TEXT    NOT NULL,
			total_score      REAL    NOT NULL,
			grade            TEXT    NOT NULL,
			duration_seconds REAL    NOT NULL,
			created_at       INTEGER NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("create grading_history table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_grading_history_url_ts
		ON grading_history (repo_url, created_at)
	`); err != nil {
		return nil, fmt.Errorf("create grading_history index: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts one finished grading run.
func (s *Store) Record(gradingID, repoURL string, totalScore float64, grade string, durationSeconds float64) error {
	_, err := s.db.Exec(
		`INSERT INTO grading_history (grading_id, repo_url, total_score, grade, duration_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		gradingID, repoURL, totalScore, grade, durationSeconds, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record grading history: %w", err)
	}
	return nil
}

// Recent returns the last limit runs for repoURL, most recent first.
func (s *Store) Recent(repoURL string, limit int) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT grading_id, repo_url, total_score, grade, duration_seconds, created_at
		 FROM grading_history
		 WHERE repo_url = ?
		 ORDER BY created_at DESC
		 LIMIT ?`,
		repoURL, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.GradingID, &e.RepoURL, &e.TotalScore, &e.Grade, &e.DurationSeconds, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent history rows: %w", err)
	}
	return entries, nil
}

// Stats computes the mean, population standard deviation, and count of all
// recorded total scores for repoURL. Returns zero values when no rows exist.
func (s *Store) Stats(repoURL string) (mean float64, stddev float64, count int, err error) {
	row := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(AVG(total_score), 0.0) FROM grading_history WHERE repo_url = ?`,
		repoURL,
	)
	if err = row.Scan(&count, &mean); err != nil {
		return 0, 0, 0, fmt.Errorf("history stats query: %w", err)
	}
	if count == 0 {
		return 0, 0, 0, nil
	}

	// Compute population stddev manually: SQLite lacks STDDEV_POP.
	rows, err := s.db.Query(
		`SELECT total_score FROM grading_history WHERE repo_url = ?`,
		repoURL,
	)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("history stddev query: %w", err)
	}
	defer rows.Close()

	var sumSqDiff float64
	for rows.Next() {
		var score float64
		if scanErr := rows.Scan(&score); scanErr != nil {
			return 0, 0, 0, fmt.Errorf("history stats scan: %w", scanErr)
		}
		diff := score - mean
		sumSqDiff += diff * diff
	}
	if rowErr := rows.Err(); rowErr != nil {
		return 0, 0, 0, fmt.Errorf("history stats rows: %w", rowErr)
	}

	stddev = math.Sqrt(sumSqDiff / float64(count))
	return mean, stddev, count, nil
}
