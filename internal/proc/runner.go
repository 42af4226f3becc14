// Package proc owns the external-process and network-probe primitives the
// pipeline uses to boot and observe the graded application.
package proc

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ragmark/ragmark/pkg/types"
)

// gracePeriod is how long Stop waits for graceful shutdown before killing.
const gracePeriod = 10 * time.Second

// pollInterval is the port-wait polling cadence.
const pollInterval = time.Second

// dialTimeout bounds each individual port-connect attempt.
const dialTimeout = time.Second

// Handle wraps a started application process. It is owned exclusively by
// the orchestrator for the duration of the run.
type Handle struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer

	mu      sync.Mutex
	stopped bool
}

// PID returns the OS process id, or 0 for a handle with no live process.
func (h *Handle) PID() int {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Output returns whatever the process has written so far.
func (h *Handle) Output() (stdout, stderr string) {
	return h.stdout.String(), h.stderr.String()
}

// Runner starts and stops external programs and probes their network
// surface.
type Runner struct {
	logger zerolog.Logger
	client *http.Client
}

// NewRunner creates a Runner whose health-check requests time out after
// requestTimeout.
func NewRunner(logger zerolog.Logger, requestTimeout time.Duration) *Runner {
	return &Runner{
		logger: logger,
		client: &http.Client{Timeout: requestTimeout},
	}
}

// Start spawns command in dir with stdout/stderr captured. It returns as
// soon as the process is running; it never blocks waiting for output.
func (r *Runner) Start(command []string, dir string) (*Handle, error) {
	if len(command) == 0 {
		return nil, types.NewStartError("empty command", nil)
	}

	h := &Handle{}
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = dir
	cmd.Stdout = &h.stdout
	cmd.Stderr = &h.stderr
	h.cmd = cmd

	if err := cmd.Start(); err != nil {
		return nil, types.NewStartError("start "+command[0], err)
	}

	r.logger.Info().Int("pid", h.PID()).Strs("command", command).Msg("application process started")
	return h, nil
}

// WaitForPort polls TCP connect-ability once per second until the port
// accepts a connection or timeout elapses.
func (r *Runner) WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) bool {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, dialTimeout)
		if err == nil {
			conn.Close()
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pollInterval):
		}
	}
	return false
}

// CheckHealth performs a single GET against url. Success iff status 200;
// transport errors and non-200 statuses are non-fatal falses.
func (r *Runner) CheckHealth(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.logger.Error().Err(err).Str("url", url).Msg("health check request build failed")
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error().Err(err).Str("url", url).Msg("health check failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn().Int("status", resp.StatusCode).Msg("health check returned non-200")
		return false
	}
	r.logger.Info().Msg("health check passed")
	return true
}

// Stop requests graceful termination, escalates to a kill after the grace
// period, and always reaps the process so no zombie is left behind. It is
// idempotent: repeat calls and calls on already-exited handles are no-ops
// with errors logged, never raised.
func (r *Runner) Stop(h *Handle) {
	if h == nil || h.cmd == nil || h.cmd.Process == nil {
		return
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	r.logger.Info().Int("pid", h.PID()).Msg("stopping application")
	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		r.logger.Error().Err(err).Msg("terminate signal failed")
	}

	done := make(chan error, 1)
	go func() { done <- h.cmd.Wait() }()

	select {
	case <-done:
		r.logger.Info().Msg("application stopped gracefully")
	case <-time.After(gracePeriod):
		r.logger.Warn().Msg("force killing application")
		if err := h.cmd.Process.Kill(); err != nil {
			r.logger.Error().Err(err).Msg("kill failed")
		}
		<-done
	}
}
