package daemonctl_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/daemonctl"
	"github.com/hazuki802/bukkaku/internal/store"
	"github.com/hazuki802/bukkaku/internal/testsupport"
)

func TestDeriveLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = "/var/log/bukkaku"

	if got := daemonctl.DeriveLogDir("/run/bukkaku/bukkakud.lock", "/data/bukkaku.db", &cfg); got != "/run/bukkaku" {
		t.Fatalf("lock path should win, got %q", got)
	}
	if got := daemonctl.DeriveLogDir("", "/data/bukkaku.db", &cfg); got != "/data" {
		t.Fatalf("db path should be second, got %q", got)
	}
	if got := daemonctl.DeriveLogDir("", "", &cfg); got != "/var/log/bukkaku" {
		t.Fatalf("config log dir should be last, got %q", got)
	}
	if got := daemonctl.DeriveLogDir("", "", nil); got != "" {
		t.Fatalf("expected empty result without hints, got %q", got)
	}
}

func TestForceKillProcessMissingPID(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "bukkakud.pid")

	if _, err := daemonctl.ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected error without pid file or fallback")
	}

	if err := os.WriteFile(pidPath, []byte("not-a-pid\n"), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	if _, err := daemonctl.ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected error for unparseable pid file")
	}
}

func TestForceKillProcessRefusesSelf(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "bukkakud.pid")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}

	_, err := daemonctl.ForceKillProcess(pidPath, "", 0)
	if err == nil || !strings.Contains(err.Error(), "refusing to kill current process") {
		t.Fatalf("expected self-kill refusal, got %v", err)
	}
}

func TestWaitForShutdownUnreachableDaemon(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	if err := daemonctl.WaitForShutdown(addr, "", time.Second); err != nil {
		t.Fatalf("unreachable daemon counts as stopped, got %v", err)
	}
}

func TestProcessInfoUnreachableDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	running, pid, err := daemonctl.ProcessInfo(cfg)
	if err != nil {
		t.Fatalf("ProcessInfo error: %v", err)
	}
	if running || pid != 0 {
		t.Fatalf("expected not running, got running=%v pid=%d", running, pid)
	}
}

func TestStopAndTerminateNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.StopAndTerminate(cfg, time.Second)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestBuildStatusSnapshotOfflineFallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	c := testsupport.NewCase(t, st, "https://suumo.jp/chintai/bc_100012345678/", store.PortalSuumo)
	if _, _, err := st.CreateEscalationTask(context.Background(), &store.EscalationTask{
		CaseID:  c.ID,
		Company: "株式会社コスモ不動産",
		Reason:  "自動確認エラー",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	status, err := daemonctl.BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot error: %v", err)
	}
	if status.Running {
		t.Fatal("daemon should be offline")
	}
	if got := status.Orchestrator.CaseStats["pending"]; got != 1 {
		t.Fatalf("expected 1 pending case, got %d (stats %v)", got, status.Orchestrator.CaseStats)
	}
	if status.PendingTasks != 1 {
		t.Fatalf("expected 1 pending task, got %d", status.PendingTasks)
	}
	if status.StorePath != cfg.DatabasePath() {
		t.Fatalf("expected store path fallback %q, got %q", cfg.DatabasePath(), status.StorePath)
	}
}
