// Package daemonctl orchestrates the daemon process from the CLI: launching
// it detached, waiting for its API to come up, and stopping it via signals
// with a force-kill fallback.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"inkwell/internal/apiclient"
)

// ErrDaemonNotRunning indicates the daemon API is unreachable and no live
// process was found.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	ForcedKill bool
	PID        int
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// Launch starts a detached inkwelld process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	var args []string
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForAPI polls the daemon API until it answers or the timeout elapses.
func WaitForAPI(ctx context.Context, client *apiclient.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if err := client.Ping(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon unless its API already answers.
func EnsureStarted(ctx context.Context, client *apiclient.Client, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if err := client.Ping(ctx); err == nil {
		return StartResult{State: StartStateAlreadyRunning}, nil
	}

	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if err := WaitForAPI(ctx, client, waitTimeout); err != nil {
		return StartResult{}, err
	}
	return StartResult{State: StartStateStarted, Launched: true}, nil
}

// ReadPID parses a daemon pid file. A missing file yields (0, nil).
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(value)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("daemon pid file %q holds %q, not a pid", pidPath, value)
	}
	return pid, nil
}

// ProcessAlive reports whether a process with the given pid exists.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// resolvePID prefers the API-reported pid, falling back to the pid file.
func resolvePID(ctx context.Context, client *apiclient.Client, pidPath string) int {
	if status, err := client.Status(ctx); err == nil && status.PID > 0 {
		return status.PID
	}
	pid, _ := ReadPID(pidPath)
	return pid
}

// StopAndTerminate signals the daemon to stop and force-kills it if the
// process is still alive after gracePeriod.
func StopAndTerminate(ctx context.Context, client *apiclient.Client, pidPath string, gracePeriod time.Duration) (StopResult, error) {
	pid := resolvePID(ctx, client, pidPath)
	if pid <= 0 || !ProcessAlive(pid) {
		return StopResult{}, ErrDaemonNotRunning
	}
	if pid == os.Getpid() {
		return StopResult{}, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return StopResult{}, fmt.Errorf("signal daemon process %d: %w", pid, err)
	}

	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if !ProcessAlive(pid) {
			return StopResult{PID: pid}, nil
		}
		select {
		case <-ctx.Done():
			return StopResult{PID: pid}, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}

	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
		return StopResult{PID: pid}, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	_ = os.Remove(pidPath)
	return StopResult{ForcedKill: true, PID: pid}, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(ctx context.Context, client *apiclient.Client, pidPath, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(ctx, client, pidPath, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(ctx, client, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}
