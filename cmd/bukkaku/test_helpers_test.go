package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazuki802/bukkaku/internal/browser"
	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/daemon"
	"github.com/hazuki802/bukkaku/internal/knowledge"
	"github.com/hazuki802/bukkaku/internal/listing"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/match"
	"github.com/hazuki802/bukkaku/internal/platform"
	"github.com/hazuki802/bukkaku/internal/store"
	"github.com/hazuki802/bukkaku/internal/testsupport"
	"github.com/hazuki802/bukkaku/internal/verify"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string, store.Portal) (*listing.Attributes, error) {
	return &listing.Attributes{
		Name:    "テストマンション",
		Unit:    "101",
		Address: "東京都新宿区西新宿1-1-1",
		Rent:    85000,
		Area:    25.5,
		Layout:  "1K",
	}, nil
}

type stubChecker struct{}

func (stubChecker) Configured(store.Platform) bool { return true }

func (stubChecker) Check(context.Context, store.Platform, string, string) (platform.Availability, error) {
	return platform.AvailabilityActive, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	daemon     *daemon.Daemon
	configPath string
	baseDir    string
	cancel     context.CancelFunc
}

// setupCLITestEnv boots a daemon on a kernel-chosen port and writes a config
// file pointing at it. Seed functions run before the daemon starts, so seeded
// cases are not raced by the verification lanes.
func setupCLITestEnv(t *testing.T, seeds ...func(*testing.T, *store.Store)) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	for _, seed := range seeds {
		seed(t, st)
	}

	logger := logging.NewNop()
	verifier := verify.NewManager(cfg, st, verify.Deps{
		Fetcher: stubFetcher{},
		Matcher: match.New(st, cfg, logger),
		Routes:  knowledge.New(st, logger),
		Checker: stubChecker{},
	}, logger)
	sessions := browser.New(cfg, nil, logger)

	d, err := daemon.New(cfg, st, logger, verifier, sessions, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	cfg.Paths.APIBind = d.APIAddr()

	configPath := filepath.Join(homeDir, ".config", "bukkaku", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		store:      st,
		daemon:     d,
		configPath: configPath,
		baseDir:    base,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = %q\napi_token = %q\n\n[workflow]\npoll_interval = %d\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Paths.APIToken,
		cfg.Workflow.PollInterval,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
