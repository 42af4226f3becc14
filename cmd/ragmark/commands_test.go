package main

import (
	"testing"

	"github.com/ragmark/ragmark/internal/config"
	"github.com/ragmark/ragmark/internal/grader"
	"github.com/ragmark/ragmark/pkg/types"
)

func outcomeWith(grade string, score float64) *grader.Outcome {
	return &grader.Outcome{
		Success: true,
		Scores:  types.ScoreBreakdown{TotalScore: score, Grade: grade},
	}
}

func TestBatchSummary(t *testing.T) {
	outcomes := []*grader.Outcome{
		outcomeWith("A", 95),
		outcomeWith("A", 91),
		outcomeWith("C", 72),
		outcomeWith("F", 30),
	}

	dist, average := batchSummary(outcomes)

	want := map[string]int{"A": 2, "C": 1, "F": 1}
	for grade, count := range want {
		if dist[grade] != count {
			t.Errorf("dist[%s] = %d, want %d", grade, dist[grade], count)
		}
	}
	if dist["B"] != 0 {
		t.Errorf("dist[B] = %d, want 0", dist["B"])
	}
	if average != 72 {
		t.Errorf("average = %v, want 72", average)
	}
}

func TestBatchSummaryEmpty(t *testing.T) {
	dist, average := batchSummary(nil)
	if len(dist) != 0 {
		t.Errorf("dist = %v, want empty", dist)
	}
	if average != 0 {
		t.Errorf("average = %v, want 0", average)
	}
}

func TestApplyReportDir(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	base := cfg.ReportsDir

	flagOutput = ""
	applyReportDir(cfg)
	if cfg.ReportsDir != base {
		t.Errorf("ReportsDir = %q, want %q without --output", cfg.ReportsDir, base)
	}

	flagOutput = "custom_reports"
	t.Cleanup(func() { flagOutput = "" })
	applyReportDir(cfg)
	if cfg.ReportsDir != "custom_reports" {
		t.Errorf("ReportsDir = %q, want custom_reports", cfg.ReportsDir)
	}
}

func TestOutputFlagRegistered(t *testing.T) {
	for _, cmd := range []string{"grade", "batch"} {
		sub, _, err := rootCmd.Find([]string{cmd})
		if err != nil {
			t.Fatalf("find %s: %v", cmd, err)
		}
		if sub.Flags().Lookup("output") == nil {
			t.Errorf("%s command has no --output flag", cmd)
		}
	}
}
