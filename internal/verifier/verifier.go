// Package verifier performs the heuristic technical-requirement checks:
// marker-string scans over the repository's source files. Presence of a
// marker is evidence the technology is used, not proof that it works.
package verifier

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ragmark/ragmark/pkg/types"
)

// sourceExtensions are the file types scanned for markers.
var sourceExtensions = map[string]bool{
	".py":   true,
	".js":   true,
	".go":   true,
	".dart": true,
}

// excludedDirs are dependency and build directories skipped by the walk.
var excludedDirs = map[string]bool{
	"node_modules": true,
	"venv":         true,
	"__pycache__":  true,
	".git":         true,
	".dart_tool":   true,
}

// Rule is one declarative technical requirement: a name, the lowercase
// substrings whose presence satisfies it, and optional regex patterns for
// requirements that need more than substring matching. A rule passes as
// soon as any marker or pattern matches any scanned file.
type Rule struct {
	Name     string
	Markers  []string
	Patterns []*regexp.Regexp
}

var chunkConfigPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)CHUNK_LENGTH`),
	regexp.MustCompile(`(?i)chunk[_-]?length`),
	regexp.MustCompile(`(?i)chunk[_-]?size`),
}

// Rules returns the requirement list in report order. The embedding rule
// takes the configured model name so overridden models are still detected.
func Rules(embedModel string) []Rule {
	embedMarkers := []string{"all-minilm-l6-v2"}
	if m := strings.ToLower(embedModel); m != "" && m != embedMarkers[0] {
		embedMarkers = append(embedMarkers, m)
	}
	return []Rule{
		{Name: "semantic_chunking", Markers: []string{"chunk", "semantic", "split", "segment"}},
		{Name: "hf_embeddings", Markers: embedMarkers},
		{Name: "chromadb_integration", Markers: []string{"chroma", "chromadb", "vector", "collection"}},
		{Name: "gemini_integration", Markers: []string{"gemini", "google", "generativeai"}},
		{Name: "configurable_chunk", Patterns: chunkConfigPatterns},
	}
}

// Verifier scans a repository for the technical requirement markers.
type Verifier struct {
	logger zerolog.Logger
	rules  []Rule
}

// NewVerifier creates a Verifier with the standard rule list.
func NewVerifier(logger zerolog.Logger, embedModel string) *Verifier {
	return &Verifier{logger: logger, rules: Rules(embedModel)}
}

// Verify walks the repository's source files once and reports, per rule,
// whether any file matched. Each rule stops at its first matching file; a
// rule with no match anywhere yields false. Unreadable files are skipped.
func (v *Verifier) Verify(repoPath string) []types.TechCheck {
	v.logger.Info().Msg("verifying technical requirements")

	matched := make(map[string]bool, len(v.rules))
	remaining := len(v.rules)

	_ = filepath.WalkDir(repoPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if remaining == 0 {
			return filepath.SkipAll
		}
		if !sourceExtensions[filepath.Ext(d.Name())] {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		content := string(raw)
		lower := strings.ToLower(content)

		for _, rule := range v.rules {
			if matched[rule.Name] || !ruleMatches(rule, content, lower) {
				continue
			}
			matched[rule.Name] = true
			remaining--
			v.logger.Info().Str("requirement", rule.Name).
				Str("file", filepath.Base(path)).Msg("requirement marker found")
		}
		return nil
	})

	checks := make([]types.TechCheck, 0, len(v.rules))
	for _, rule := range v.rules {
		if !matched[rule.Name] {
			v.logger.Warn().Str("requirement", rule.Name).Msg("could not verify requirement")
		}
		checks = append(checks, types.TechCheck{Name: rule.Name, Passed: matched[rule.Name]})
	}
	return checks
}

func ruleMatches(rule Rule, content, lower string) bool {
	for _, marker := range rule.Markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	for _, pattern := range rule.Patterns {
		if pattern.MatchString(content) {
			return true
		}
	}
	return false
}
