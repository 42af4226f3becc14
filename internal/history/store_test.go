package history_test

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/ragmark/ragmark/internal/history"
)

func newTestStore(t *testing.T) *history.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := history.New(db)
	if err != nil {
		t.Fatalf("history.New: %v", err)
	}
	return store
}

const repoURL = "https://example.com/student/rag-service.git"

func TestRecordAndRecent(t *testing.T) {
	store := newTestStore(t)

	runs := []struct {
		id    string
		score float64
		grade string
	}{
		{"grade_1", 55, "F"},
		{"grade_2", 72.5, "C"},
		{"grade_3", 91, "A"},
	}
	for _, r := range runs {
		if err := store.Record(r.id, repoURL, r.score, r.grade, 42.0); err != nil {
			t.Fatalf("Record(%s): %v", r.id, err)
		}
	}

	entries, err := store.Recent(repoURL, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	// Most recent first.
	if entries[0].GradingID != "grade_3" {
		t.Errorf("entries[0] = %s, want grade_3", entries[0].GradingID)
	}
	if entries[2].GradingID != "grade_1" {
		t.Errorf("entries[2] = %s, want grade_1", entries[2].GradingID)
	}
	if entries[0].TotalScore != 91 || entries[0].Grade != "A" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not recorded")
	}
}

func TestRecentRespectsLimit(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		if err := store.Record("grade_n", repoURL, 80, "B", 1); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.Recent(repoURL, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestRecentFiltersByRepo(t *testing.T) {
	store := newTestStore(t)
	if err := store.Record("grade_a", repoURL, 80, "B", 1); err != nil {
		t.Fatal(err)
	}
	if err := store.Record("grade_b", "https://example.com/other.git", 60, "D", 1); err != nil {
		t.Fatal(err)
	}

	entries, err := store.Recent(repoURL, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].GradingID != "grade_a" {
		t.Errorf("entries = %+v, want only grade_a", entries)
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	for _, score := range []float64{60, 70, 80} {
		if err := store.Record("grade_s", repoURL, score, "C", 1); err != nil {
			t.Fatal(err)
		}
	}

	mean, stddev, count, err := store.Stats(repoURL)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if mean != 70 {
		t.Errorf("mean = %v, want 70", mean)
	}
	want := math.Sqrt(200.0 / 3.0)
	if math.Abs(stddev-want) > 1e-9 {
		t.Errorf("stddev = %v, want %v", stddev, want)
	}
}

func TestStatsEmpty(t *testing.T) {
	store := newTestStore(t)
	mean, stddev, count, err := store.Stats(repoURL)
	if err != nil {
		t.Fatalf("Stats on empty store: %v", err)
	}
	if mean != 0 || stddev != 0 || count != 0 {
		t.Errorf("empty stats = (%v, %v, %d), want zeros", mean, stddev, count)
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if err := store.Record("grade_f", repoURL, 50, "F", 1); err != nil {
		t.Errorf("Record on file-backed store: %v", err)
	}
	entries, err := store.Recent(repoURL, 1)
	if err != nil || len(entries) != 1 {
		t.Errorf("Recent = (%v, %v), want one entry", entries, err)
	}
}
