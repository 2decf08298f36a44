package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hazuki802/bukkaku/internal/browser"
	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/daemon"
	"github.com/hazuki802/bukkaku/internal/deps"
	"github.com/hazuki802/bukkaku/internal/inventory"
	"github.com/hazuki802/bukkaku/internal/knowledge"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/match"
	"github.com/hazuki802/bukkaku/internal/notify"
	"github.com/hazuki802/bukkaku/internal/platform"
	"github.com/hazuki802/bukkaku/internal/portal"
	"github.com/hazuki802/bukkaku/internal/preflight"
	"github.com/hazuki802/bukkaku/internal/store"
	"github.com/hazuki802/bukkaku/internal/verify"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the bukkaku daemon runtime loop. It blocks until the context is
// cancelled or SIGINT/SIGTERM arrives, then unwinds the daemon.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("bukkaku-%s.log", runID))

	logLevel := strings.TrimSpace(opts.LogLevel)
	if logLevel == "" {
		logLevel = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            logLevel,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update bukkaku.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "bukkaku-*.log", Exclude: []string{logPath}},
	)

	logDependencySnapshot(logger, cfg)
	logPreflightResults(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, "bukkakud.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open case store", logging.Error(err))
		return err
	}
	defer st.Close()

	notifier := notify.NewService(cfg, logger)
	drivers := platform.Drivers(cfg, logger)
	sessions := browser.New(cfg, drivers, logger)
	verifier := verify.NewManager(cfg, st, verify.Deps{
		Fetcher:  portal.NewClient(cfg, logger),
		Matcher:  match.New(st, cfg, logger),
		Routes:   knowledge.New(st, logger),
		Checker:  platform.NewChecker(sessions, drivers, logger),
		Notifier: notifier,
	}, logger)
	scheduler := inventory.NewScheduler(cfg, st, logger)

	d, err := daemon.New(cfg, st, logger, verifier, sessions, scheduler)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed", logging.Error(err))
		return err
	}

	<-signalCtx.Done()
	logger.Info("bukkaku daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "bukkaku.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	chrome := deps.CheckChromeForWorker(cfg.Browser.Bin, cfg.Browser.DebuggerURL)
	crawlerBin := ""
	if fields := strings.Fields(cfg.Inventory.CrawlerCommand); len(fields) > 0 {
		crawlerBin = fields[0]
	}
	logger.Info("dependency snapshot",
		logging.Bool("chrome_available", chrome.Available),
		logging.String("chrome_binary", chrome.Command),
		logging.Bool("crawler_configured", crawlerBin != ""),
		logging.Bool("crawler_available", crawlerBin != "" && binaryAvailable(crawlerBin)),
		logging.Bool("line_configured", strings.TrimSpace(cfg.Notifications.LineChannelToken) != ""),
		logging.Bool("slack_configured", strings.TrimSpace(cfg.Notifications.SlackWebhookURL) != ""),
		logging.Bool("itandi_enabled", cfg.Platforms.Itandi.Enabled),
		logging.Bool("ielove_enabled", cfg.Platforms.Ielove.Enabled),
		logging.Bool("es_square_enabled", cfg.Platforms.EsSquare.Enabled),
	)
}

func logPreflightResults(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(ctx, cfg) {
		if result.Passed {
			continue
		}
		logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
