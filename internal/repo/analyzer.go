// Package repo clones student repositories and inspects their structure:
// language detection from manifest files, entry-file lookup, and
// documentation checks.
package repo

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ragmark/ragmark/internal/config"
	"github.com/ragmark/ragmark/pkg/types"
)

// envTemplateNames are the candidate env-template filenames, checked in order.
var envTemplateNames = []string{".env.example", ".env.template", ".env.sample"}

// readmeNames are the candidate documentation filenames.
var readmeNames = []string{"README.md", "README.txt", "README"}

// Analyzer clones and inspects a single repository.
type Analyzer struct {
	logger zerolog.Logger
	cfg    *config.Config
}

// NewAnalyzer creates an Analyzer bound to a session logger and config.
func NewAnalyzer(logger zerolog.Logger, cfg *config.Config) *Analyzer {
	return &Analyzer{logger: logger, cfg: cfg}
}

// Clone runs a git clone of url into destination with a hard timeout.
// Non-zero exit or timeout yields a CloneError and no path.
func (a *Analyzer) Clone(ctx context.Context, url, destination string) (string, error) {
	a.logger.Info().Str("url", url).Msg("cloning repository")

	cloneCtx, cancel := context.WithTimeout(ctx, a.cfg.CloneTimeout)
	defer cancel()

	cmd := exec.CommandContext(cloneCtx, "git", "clone", url, destination)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(cloneCtx.Err(), context.DeadlineExceeded) {
			return "", types.NewCloneError("repository clone timeout", err)
		}
		msg := strings.TrimSpace(string(output))
		a.logger.Error().Str("output", msg).Msg("clone failed")
		return "", types.NewCloneError("clone failed: "+msg, err)
	}

	a.logger.Info().Msg("repository cloned successfully")
	return destination, nil
}

// DetectLanguage returns the first configured profile whose dependency
// manifest exists at the repository root. Profile order is the documented
// tie-break for repositories carrying more than one manifest.
func (a *Analyzer) DetectLanguage(repoPath string) (config.LanguageProfile, error) {
	for _, profile := range config.Profiles() {
		manifest := filepath.Join(repoPath, profile.DependencyFile)
		if _, err := os.Stat(manifest); err == nil {
			a.logger.Info().Str("language", string(profile.Language)).Msg("detected language")
			return profile, nil
		}
	}
	a.logger.Error().Msg("could not detect programming language")
	return config.LanguageProfile{}, types.NewDetectionError("no dependency manifest matched a known language")
}

// FindMainFile returns the first candidate entry filename that exists at
// the repository root, in profile-defined order. Subdirectories are not
// searched.
func (a *Analyzer) FindMainFile(repoPath string, profile config.LanguageProfile) (string, error) {
	for _, name := range profile.MainFiles {
		if _, err := os.Stat(filepath.Join(repoPath, name)); err == nil {
			a.logger.Info().Str("main_file", name).Msg("found main file")
			return name, nil
		}
	}
	a.logger.Error().Str("language", string(profile.Language)).Msg("main file not found")
	return "", types.NewNotFoundError("no entry file found among " + strings.Join(profile.MainFiles, ", "))
}

// FindEnvTemplate returns the path of the repository's env template, if any.
func (a *Analyzer) FindEnvTemplate(repoPath string) (string, bool) {
	for _, name := range envTemplateNames {
		path := filepath.Join(repoPath, name)
		if _, err := os.Stat(path); err == nil {
			a.logger.Info().Str("template", name).Msg("found env template")
			return path, true
		}
	}
	a.logger.Warn().Msg("no env template found")
	return "", false
}

// HasReadme reports whether any documentation file exists at the root.
func (a *Analyzer) HasReadme(repoPath string) bool {
	for _, name := range readmeNames {
		if _, err := os.Stat(filepath.Join(repoPath, name)); err == nil {
			return true
		}
	}
	return false
}
