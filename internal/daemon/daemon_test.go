package daemon_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazuki802/bukkaku/internal/browser"
	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/daemon"
	"github.com/hazuki802/bukkaku/internal/knowledge"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
	"github.com/hazuki802/bukkaku/internal/testsupport"
	"github.com/hazuki802/bukkaku/internal/verify"
)

func newDaemon(t *testing.T, cfg *config.Config, st *store.Store) *daemon.Daemon {
	t.Helper()
	verifier := verify.NewManager(cfg, st, verify.Deps{Routes: knowledge.New(st, nil)}, nil)
	sessions := browser.New(cfg, nil, nil)
	d, err := daemon.New(cfg, st, nil, verifier, sessions, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, st)
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if !status.Orchestrator.Running {
		t.Fatal("expected orchestrator to report running")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	first := newDaemon(t, cfg, st)
	t.Cleanup(func() {
		first.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop()

	other := testsupport.MustOpenStore(t, cfg)
	second := newDaemon(t, cfg, other)
	err := second.Start(ctx)
	if err == nil {
		second.Stop()
		t.Fatal("expected second instance to be rejected")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDaemonSubmitCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, st)
	ctx := context.Background()

	c, err := d.SubmitCheck(ctx, "https://suumo.jp/chintai/bc_100012345678/")
	if err != nil {
		t.Fatalf("SubmitCheck: %v", err)
	}
	if c.Status != store.StatusPending || c.Portal != store.PortalSuumo {
		t.Fatalf("unexpected case: %+v", c)
	}

	if _, err := d.SubmitCheck(ctx, ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty url, got %v", err)
	}
	if _, err := d.SubmitCheck(ctx, "https://example.com/room"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unsupported portal, got %v", err)
	}
}

func TestDaemonKnowledgeRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, st)
	ctx := context.Background()

	entry, err := d.SaveKnowledge(ctx, "株式会社コスモ不動産", "045-123-4567", store.PlatformItandi, false)
	if err != nil {
		t.Fatalf("SaveKnowledge: %v", err)
	}
	if entry.UseCount != 1 {
		t.Fatalf("expected use count 1, got %d", entry.UseCount)
	}

	entry, err = d.SaveKnowledge(ctx, "株式会社コスモ不動産", "", store.PlatformItandi, false)
	if err != nil {
		t.Fatalf("SaveKnowledge repeat: %v", err)
	}
	if entry.UseCount != 2 {
		t.Fatalf("expected use count 2, got %d", entry.UseCount)
	}
	if entry.Phone != "045-123-4567" {
		t.Fatalf("empty phone should not clobber the stored one, got %q", entry.Phone)
	}

	if _, err := d.SaveKnowledge(ctx, "  ", "", store.PlatformItandi, false); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank company, got %v", err)
	}

	revised, err := d.ReviseKnowledge(ctx, entry.ID, "株式会社コスモ不動産", "045-999-0000", store.PlatformIelove, true)
	if err != nil {
		t.Fatalf("ReviseKnowledge: %v", err)
	}
	if revised.Platform != store.PlatformIelove || !revised.RequiresManual {
		t.Fatalf("revision not applied: %+v", revised)
	}

	missing, err := d.ReviseKnowledge(ctx, 404, "x", "", store.PlatformItandi, false)
	if err != nil {
		t.Fatalf("ReviseKnowledge missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}

	ok, err := d.RemoveKnowledge(ctx, entry.ID)
	if err != nil || !ok {
		t.Fatalf("RemoveKnowledge: ok=%v err=%v", ok, err)
	}
	ok, err = d.RemoveKnowledge(ctx, entry.ID)
	if err != nil || ok {
		t.Fatalf("expected second delete to report missing, ok=%v err=%v", ok, err)
	}
}

func TestDaemonResolveTask(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, st)
	ctx := context.Background()

	c := testsupport.NewCase(t, st, "https://suumo.jp/chintai/bc_100012345682/", store.PortalSuumo)
	task, _, err := st.CreateEscalationTask(ctx, &store.EscalationTask{
		CaseID:  c.ID,
		Company: "青葉ハウジング株式会社",
		Phone:   "03-5555-0123",
		Reason:  "自動確認エラー",
	})
	if err != nil {
		t.Fatalf("CreateEscalationTask: %v", err)
	}

	resolved, err := d.ResolveTask(ctx, task.ID, store.TaskCompleted, "空室、先方確認済み")
	if err != nil {
		t.Fatalf("ResolveTask: %v", err)
	}
	if resolved.Status != store.TaskCompleted || resolved.CompletedAt == nil {
		t.Fatalf("task not completed: %+v", resolved)
	}
	manual, err := st.CompanyRequiresManual(ctx, "青葉ハウジング株式会社")
	if err != nil {
		t.Fatalf("CompanyRequiresManual: %v", err)
	}
	if !manual {
		t.Fatal("completed call should flag the company for manual checks")
	}

	missing, err := d.ResolveTask(ctx, 77, store.TaskCancelled, "")
	if err != nil {
		t.Fatalf("ResolveTask missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown task, got %+v", missing)
	}

	count, err := d.PendingTaskCount(ctx)
	if err != nil {
		t.Fatalf("PendingTaskCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no pending tasks, got %d", count)
	}
}

func TestDaemonCancelledTaskDoesNotFlagCompany(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, st)
	ctx := context.Background()

	c := testsupport.NewCase(t, st, "https://suumo.jp/chintai/bc_100012345683/", store.PortalSuumo)
	task, _, err := st.CreateEscalationTask(ctx, &store.EscalationTask{
		CaseID:  c.ID,
		Company: "株式会社みどり管理",
		Reason:  "プラットフォームに掲載なし",
	})
	if err != nil {
		t.Fatalf("CreateEscalationTask: %v", err)
	}

	if _, err := d.ResolveTask(ctx, task.ID, store.TaskCancelled, "重複"); err != nil {
		t.Fatalf("ResolveTask: %v", err)
	}
	manual, err := st.CompanyRequiresManual(ctx, "株式会社みどり管理")
	if err != nil {
		t.Fatalf("CompanyRequiresManual: %v", err)
	}
	if manual {
		t.Fatal("cancelled task must not flag the company")
	}
}

func TestDaemonTestNotificationUnconfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, st)

	ok, message, err := d.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if ok {
		t.Fatal("expected no delivery without configured channels")
	}
	if message != "no notification channel configured" {
		t.Fatalf("unexpected message %q", message)
	}
}
