package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// NewLogger builds the session-scoped logger: console output plus a
// per-session log file under logsDir. The returned closer releases the log
// file; callers defer it for the lifetime of the session.
//
// The logger is passed explicitly into every pipeline component — there is
// no process-global logger keyed by run id.
func NewLogger(logsDir, gradingID string, verbose bool) (zerolog.Logger, func() error, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("create logs dir: %w", err)
	}

	logPath := filepath.Join(logsDir, gradingID+".log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr}
	var sink io.Writer = zerolog.MultiLevelWriter(console, file)

	logger := zerolog.New(sink).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Str("grading_id", gradingID).
		Logger()
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	return logger, file.Close, nil
}
