package session_test

import (
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ragmark/ragmark/internal/session"
	"github.com/ragmark/ragmark/pkg/types"
)

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	return session.New("grade_test", t.TempDir(), zerolog.Nop())
}

func TestAddResultPreservesInsertionOrder(t *testing.T) {
	s := newTestSession(t)
	s.AddResult("first", 1)
	s.AddResult("second", 2)
	s.AddResult("third", 3)
	s.AddResult("second", 20) // overwrite must not reorder

	keys := s.Keys()
	want := []string{"first", "second", "third"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], k)
		}
	}
	if got := s.Results()["second"]; got != 20 {
		t.Errorf("overwritten value = %v, want 20", got)
	}
}

func TestAddErrorIsAppendOnly(t *testing.T) {
	s := newTestSession(t)
	s.AddError("first failure")
	s.AddError("second failure")

	errs := s.Errors()
	if len(errs) != 2 {
		t.Fatalf("len(Errors()) = %d, want 2", len(errs))
	}
	if errs[0].Error != "first failure" || errs[1].Error != "second failure" {
		t.Errorf("Errors() = %+v, order not preserved", errs)
	}
	if errs[0].Timestamp == "" {
		t.Error("error entry missing timestamp")
	}
}

func TestFinalizeFoldsMetadata(t *testing.T) {
	s := newTestSession(t)
	s.AddResult("repository_url", "https://example.com/repo.git")
	s.AddError("boom")
	s.Finalize()

	meta, ok := s.Results()[session.MetadataKey].(types.SessionMetadata)
	if !ok {
		t.Fatalf("results[%q] is %T, want SessionMetadata", session.MetadataKey, s.Results()[session.MetadataKey])
	}
	if meta.GradingID != "grade_test" {
		t.Errorf("metadata GradingID = %q", meta.GradingID)
	}
	if len(meta.Errors) != 1 || meta.Errors[0].Error != "boom" {
		t.Errorf("metadata Errors = %+v", meta.Errors)
	}
	if meta.StartTime == "" || meta.EndTime == "" {
		t.Error("metadata missing timestamps")
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	s := newTestSession(t)
	s.Finalize()
	first := s.Results()[session.MetadataKey].(types.SessionMetadata)

	s.AddError("late error")
	s.Finalize()
	second := s.Results()[session.MetadataKey].(types.SessionMetadata)

	if second.EndTime != first.EndTime {
		t.Error("second Finalize recomputed the end time")
	}
	if len(second.Errors) != len(first.Errors) {
		t.Error("second Finalize refolded the error log")
	}
	if !s.Finalized() {
		t.Error("Finalized() = false after Finalize")
	}
}

func TestNewGradingIDFormat(t *testing.T) {
	id := session.NewGradingID()
	if !strings.HasPrefix(id, "grade_") {
		t.Errorf("grading id %q lacks grade_ prefix", id)
	}
	// grade_ + YYYYMMDD_HHMMSS + _ + 8 hex chars
	if len(id) != len("grade_")+15+1+8 {
		t.Errorf("grading id %q has unexpected length %d", id, len(id))
	}
	if id == session.NewGradingID() {
		t.Error("two grading ids collided")
	}
}

func TestCreateAndCleanupWorkspace(t *testing.T) {
	root := t.TempDir()
	ws, err := session.CreateWorkspace(root, "grade_ws_test")
	if err != nil {
		t.Fatalf("CreateWorkspace: %v", err)
	}

	if !strings.HasPrefix(ws, root) {
		t.Errorf("workspace %q not under root %q", ws, root)
	}

	session.CleanupWorkspace(ws, zerolog.Nop())
	if _, err := os.Stat(ws); err == nil {
		t.Error("workspace still exists after cleanup")
	}
	// Cleaning an already-removed workspace must not panic or error.
	session.CleanupWorkspace(ws, zerolog.Nop())
}
