package session

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// CreateWorkspace creates the isolated working directory for a grading run
// under root and returns its path.
func CreateWorkspace(root, gradingID string) (string, error) {
	workspace := filepath.Join(root, gradingID)
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return "", fmt.Errorf("create workspace %s: %w", workspace, err)
	}
	return workspace, nil
}

// CleanupWorkspace recursively deletes a workspace. Failures are logged,
// not returned: cleanup runs on every exit path and must never mask the
// run's actual outcome.
func CleanupWorkspace(workspace string, logger zerolog.Logger) {
	if workspace == "" {
		return
	}
	if _, err := os.Stat(workspace); os.IsNotExist(err) {
		return
	}
	if err := os.RemoveAll(workspace); err != nil {
		logger.Error().Err(err).Str("workspace", workspace).Msg("workspace cleanup failed")
	}
}
