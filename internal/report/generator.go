// Package report renders finished grading sessions into the persisted
// JSON and HTML reports.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ragmark/ragmark/pkg/types"
)

// Generator persists rendered reports into the reports directory, keyed by
// grading id.
type Generator struct {
	logger    zerolog.Logger
	outputDir string
}

// NewGenerator creates a Generator writing into outputDir.
func NewGenerator(logger zerolog.Logger, outputDir string) *Generator {
	return &Generator{logger: logger, outputDir: outputDir}
}

// Save writes data under the reports directory and returns the full path.
func (g *Generator) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	path := filepath.Join(g.outputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save report %s: %w", name, err)
	}
	g.logger.Info().Str("path", path).Msg("report saved")
	return path, nil
}

// Paths holds the locations of one session's persisted reports.
type Paths struct {
	JSON string
	HTML string
}

// WriteReports renders and persists both report formats for a session.
func (g *Generator) WriteReports(gradingID string, scores types.ScoreBreakdown, results map[string]any, weights map[string]float64, categoryOrder []string) (Paths, error) {
	jsonData, err := GenerateJSON(gradingID, scores, results)
	if err != nil {
		return Paths{}, err
	}
	jsonPath, err := g.Save(gradingID+".json", jsonData)
	if err != nil {
		return Paths{}, err
	}

	var htmlBuf bytes.Buffer
	if err := GenerateHTML(&htmlBuf, BuildHTMLReport(gradingID, scores, results, weights, categoryOrder)); err != nil {
		return Paths{}, err
	}
	htmlPath, err := g.Save(gradingID+".html", htmlBuf.Bytes())
	if err != nil {
		return Paths{}, err
	}

	return Paths{JSON: jsonPath, HTML: htmlPath}, nil
}
