package proc_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ragmark/ragmark/internal/proc"
	"github.com/ragmark/ragmark/pkg/types"
)

func newTestRunner(t *testing.T) *proc.Runner {
	t.Helper()
	return proc.NewRunner(zerolog.Nop(), 5*time.Second)
}

func TestStartCapturesOutput(t *testing.T) {
	r := newTestRunner(t)

	h, err := r.Start([]string{"sh", "-c", "echo out; echo err >&2"}, t.TempDir())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.PID() == 0 {
		t.Error("PID() = 0 for a started process")
	}

	r.Stop(h)
	stdout, stderr := h.Output()
	if stdout != "out\n" {
		t.Errorf("stdout = %q, want %q", stdout, "out\n")
	}
	if stderr != "err\n" {
		t.Errorf("stderr = %q, want %q", stderr, "err\n")
	}
}

func TestStartEmptyCommand(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Start(nil, t.TempDir())
	if err == nil {
		t.Fatal("Start(nil) succeeded, want error")
	}
	var ge *types.GradingError
	if !errors.As(err, &ge) || ge.Type != "START_ERROR" {
		t.Errorf("error = %v, want START_ERROR grading error", err)
	}
}

func TestStartMissingBinary(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Start([]string{"definitely-not-a-real-binary-52341"}, t.TempDir())
	if err == nil {
		t.Fatal("Start of a missing binary succeeded, want error")
	}
	var ge *types.GradingError
	if !errors.As(err, &ge) || ge.Type != "START_ERROR" {
		t.Errorf("error = %v, want START_ERROR grading error", err)
	}
}

func TestStopIsNilSafeAndIdempotent(t *testing.T) {
	r := newTestRunner(t)

	r.Stop(nil)            // nil handle
	r.Stop(&proc.Handle{}) // zero handle, no process

	h, err := r.Start([]string{"sleep", "60"}, t.TempDir())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop(h)
	r.Stop(h) // second stop is a no-op

	if h.PID() == 0 {
		t.Error("PID() should still report the original pid after stop")
	}
}

func TestWaitForPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	r := newTestRunner(t)
	if !r.WaitForPort(context.Background(), "127.0.0.1", port, 5*time.Second) {
		t.Error("WaitForPort = false for a listening port")
	}
}

func TestWaitForPortTimeout(t *testing.T) {
	// Reserve a port, then close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	r := newTestRunner(t)
	start := time.Now()
	if r.WaitForPort(context.Background(), "127.0.0.1", port, 1500*time.Millisecond) {
		t.Error("WaitForPort = true for a closed port")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("WaitForPort overshot its timeout: %v", elapsed)
	}
}

func TestWaitForPortContextCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	r := newTestRunner(t)
	start := time.Now()
	if r.WaitForPort(ctx, "127.0.0.1", port, time.Minute) {
		t.Error("WaitForPort = true after context cancel")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("WaitForPort ignored context cancellation: %v", elapsed)
	}
}

func TestCheckHealth(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   bool
	}{
		{"ok", http.StatusOK, true},
		{"service unavailable", http.StatusServiceUnavailable, false},
		{"not found", http.StatusNotFound, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			r := newTestRunner(t)
			if got := r.CheckHealth(context.Background(), srv.URL+"/health"); got != tc.want {
				t.Errorf("CheckHealth(status %d) = %v, want %v", tc.status, got, tc.want)
			}
		})
	}
}

func TestCheckHealthUnreachable(t *testing.T) {
	r := newTestRunner(t)
	if r.CheckHealth(context.Background(), "http://127.0.0.1:1/health") {
		t.Error("CheckHealth = true for an unreachable server")
	}
}
