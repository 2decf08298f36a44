package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hazuki802/bukkaku/internal/api"
	"github.com/hazuki802/bukkaku/internal/client"
	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/store"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
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
	Message  string
}

// Launch starts a detached bukkaku daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"run"}
	if cfgPath := strings.TrimSpace(opts.ConfigPath); cfgPath != "" {
		args = append(args, "--config", cfgPath)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForAPI waits until the daemon API answers health probes and returns a
// connected client.
func WaitForAPI(bind, token string, timeout time.Duration) (*client.Client, error) {
	c, err := client.New(bind, token)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("daemon api address is not configured")
	}
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Health(ctx)
		cancel()
		if err == nil {
			return c, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon if needed and returns the resulting state.
func EnsureStarted(cfg *config.Config, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	if cfg == nil {
		return StartResult{}, errors.New("configuration not available")
	}
	c, err := client.New(cfg.Paths.APIBind, cfg.Paths.APIToken)
	if err != nil {
		return StartResult{}, err
	}
	if c == nil {
		return StartResult{}, errors.New("api_bind is not configured")
	}

	probeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	healthErr := c.Health(probeCtx)
	cancel()
	if healthErr == nil {
		return StartResult{State: StartStateAlreadyRunning}, nil
	}
	if !client.IsUnavailable(healthErr) {
		return StartResult{}, healthErr
	}

	if launchErr := Launch(executablePath, opts); launchErr != nil {
		return StartResult{}, launchErr
	}
	if _, waitErr := WaitForAPI(cfg.Paths.APIBind, cfg.Paths.APIToken, waitTimeout); waitErr != nil {
		return StartResult{}, waitErr
	}
	return StartResult{State: StartStateStarted, Launched: true}, nil
}

// WaitForShutdown waits for the daemon API to stop answering.
func WaitForShutdown(bind, token string, timeout time.Duration) error {
	c, err := client.New(bind, token)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Health(ctx)
		cancel()
		if err != nil {
			if client.IsUnavailable(err) {
				return nil
			}
			lastErr = err
		} else {
			lastErr = fmt.Errorf("daemon still running")
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for shutdown")
	}
	return fmt.Errorf("daemon did not stop: %w", lastErr)
}

// ProcessInfo reports whether the daemon API is reachable and the daemon PID
// when available.
func ProcessInfo(cfg *config.Config) (bool, int, error) {
	if cfg == nil {
		return false, 0, errors.New("configuration not available")
	}
	c, err := client.New(cfg.Paths.APIBind, cfg.Paths.APIToken)
	if err != nil {
		return false, 0, err
	}
	if c == nil {
		return false, 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	status, err := c.Status(ctx)
	if err != nil {
		if client.IsUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, status.PID, nil
}

// DeriveLogDir determines the daemon log directory from status and config hints.
func DeriveLogDir(lockPath, dbPath string, cfg *config.Config) string {
	if lockPath != "" {
		return filepath.Dir(lockPath)
	}
	if dbPath != "" {
		return filepath.Dir(dbPath)
	}
	if cfg != nil && strings.TrimSpace(cfg.Paths.LogDir) != "" {
		return cfg.Paths.LogDir
	}
	return ""
}

// ForceKillProcess sends SIGKILL to the daemon process and cleans pid/lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid := fallbackPID
	data, err := os.ReadFile(pidPath)
	if err == nil {
		pidStr := strings.TrimSpace(string(data))
		if pidStr != "" {
			if parsed, parseErr := strconv.Atoi(pidStr); parseErr == nil && parsed > 0 {
				pid = parsed
			}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// ErrDaemonNotRunning indicates the daemon API is unreachable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// StopAndTerminate signals the daemon to stop and force-kills the process if
// it is still alive after gracePeriod. Graceful shutdown rides SIGTERM; the
// daemon run loop traps it and unwinds its components in order.
func StopAndTerminate(cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	if cfg == nil {
		return StopResult{}, errors.New("configuration not available")
	}
	c, err := client.New(cfg.Paths.APIBind, cfg.Paths.APIToken)
	if err != nil {
		return StopResult{}, err
	}
	if c == nil {
		return StopResult{}, ErrDaemonNotRunning
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	status, statusErr := c.Status(ctx)
	cancel()
	if statusErr != nil {
		if client.IsUnavailable(statusErr) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, statusErr
	}

	lockPath := status.LockFilePath
	dbPath := status.StorePath
	pid := status.PID
	result := StopResult{PID: pid}
	if pid > 0 {
		if killErr := unix.Kill(pid, unix.SIGTERM); killErr == nil {
			result.StopAcknowledged = true
		}
	}

	_ = WaitForShutdown(cfg.Paths.APIBind, cfg.Paths.APIToken, gracePeriod)
	alive, livePID, aliveErr := ProcessInfo(cfg)
	if aliveErr != nil {
		alive = false
	}
	if !alive {
		return result, nil
	}

	currentPID := livePID
	if currentPID == 0 {
		currentPID = pid
	}
	logDir := DeriveLogDir(lockPath, dbPath, cfg)
	if logDir == "" {
		return result, fmt.Errorf("unable to determine daemon log directory")
	}
	pidPath := filepath.Join(logDir, "bukkakud.pid")
	lockFile := filepath.Join(logDir, "bukkakud.lock")
	killedPID, killErr := ForceKillProcess(pidPath, lockFile, currentPID)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(cfg, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// BuildStatusSnapshot collects daemon status and fills case, task, and
// inventory counts straight from the database when the daemon is offline.
func BuildStatusSnapshot(ctx context.Context, cfg *config.Config) (*api.DaemonStatus, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	status := &api.DaemonStatus{}

	c, err := client.New(cfg.Paths.APIBind, cfg.Paths.APIToken)
	if err == nil && c != nil {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if resp, statusErr := c.Status(queryCtx); statusErr == nil && resp != nil {
			status = resp
		}
		cancel()
	}

	if !status.Running {
		queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		st, openErr := store.Open(cfg)
		if openErr == nil {
			if stats, statsErr := st.CaseStats(queryCtx); statsErr == nil {
				caseStats := make(map[string]int, len(stats))
				for caseStatus, count := range stats {
					caseStats[string(caseStatus)] = count
				}
				status.Orchestrator.CaseStats = caseStats
			}
			if count, countErr := st.PendingEscalationCount(queryCtx); countErr == nil {
				status.PendingTasks = count
			}
			if summary, invErr := st.InventoryStats(queryCtx); invErr == nil {
				status.Inventory = api.FromInventorySummary(summary)
			}
			_ = st.Close()
		}
		if status.StorePath == "" {
			status.StorePath = cfg.DatabasePath()
		}
	}

	return status, nil
}
