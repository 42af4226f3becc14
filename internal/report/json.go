package report

import (
	"fmt"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/ragmark/ragmark/pkg/types"
)

// JSONReport is the persisted machine-readable grading report.
type JSONReport struct {
	GradingID string               `json:"grading_id"`
	Timestamp string               `json:"timestamp"`
	Scores    types.ScoreBreakdown `json:"scores"`
	Results   map[string]any       `json:"results"`
}

// GenerateJSON renders the grading report as indented JSON.
func GenerateJSON(gradingID string, scores types.ScoreBreakdown, results map[string]any) ([]byte, error) {
	r := JSONReport{
		GradingID: gradingID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Scores:    scores,
		Results:   results,
	}

	output, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal JSON report: %w", err)
	}
	return output, nil
}
