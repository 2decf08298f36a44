package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/hazuki802/bukkaku/internal/browser"
	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/inventory"
	"github.com/hazuki802/bukkaku/internal/knowledge"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/notify"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
	"github.com/hazuki802/bukkaku/internal/verify"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	verifier  *verify.Manager
	sessions  *browser.Manager
	scheduler *inventory.Scheduler
	routes    *knowledge.Accessor

	api *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Orchestrator verify.StatusSummary
	Sessions     []browser.SessionInfo
	Inventory    store.InventorySummary
	PendingTasks int
	StorePath    string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies. The session
// manager and the inventory scheduler are optional; without them the
// daemon runs with manual platform choices and manual inventory loads
// only.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, verifier *verify.Manager, sessions *browser.Manager, scheduler *inventory.Scheduler) (*Daemon, error) {
	if cfg == nil || st == nil || verifier == nil {
		return nil, errors.New("daemon requires config, store, and verification manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "bukkakud.lock")
	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		verifier:  verifier,
		sessions:  sessions,
		scheduler: scheduler,
		routes:    knowledge.New(st, logger),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and brings up the browser worker, the
// verification lanes, the inventory scheduler, and the HTTP API, in that
// order.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bukkaku daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.sessions != nil {
		if err := d.sessions.Start(d.ctx); err != nil {
			d.abortStart()
			return fmt.Errorf("start browser worker: %w", err)
		}
	}
	if err := d.verifier.Start(d.ctx); err != nil {
		if d.sessions != nil {
			_ = d.sessions.Shutdown()
		}
		d.abortStart()
		return fmt.Errorf("start orchestrator: %w", err)
	}
	if d.scheduler != nil {
		if err := d.scheduler.Start(d.ctx); err != nil {
			d.verifier.Stop()
			if d.sessions != nil {
				_ = d.sessions.Shutdown()
			}
			d.abortStart()
			return fmt.Errorf("start inventory scheduler: %w", err)
		}
	}
	if err := d.api.start(d.ctx); err != nil {
		if d.scheduler != nil {
			d.scheduler.Stop()
		}
		d.verifier.Stop()
		if d.sessions != nil {
			_ = d.sessions.Shutdown()
		}
		d.abortStart()
		return err
	}

	d.running.Store(true)
	d.logger.Info("bukkaku daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop winds the services down in reverse order of Start: the API stops
// accepting work first, then the verification lanes drain, then the
// scheduler, and the browser worker last so an in-flight vacancy query
// can finish.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	d.verifier.Stop()
	if d.scheduler != nil {
		d.scheduler.Stop()
	}
	if d.sessions != nil {
		if err := d.sessions.Shutdown(); err != nil {
			d.logger.Warn("browser worker shutdown incomplete", logging.Error(err))
		}
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("bukkaku daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// SubmitCheck enqueues a portal listing URL for verification.
func (d *Daemon) SubmitCheck(ctx context.Context, rawURL string) (*store.Case, error) {
	if d.verifier == nil {
		return nil, errors.New("verification manager unavailable")
	}
	return d.verifier.Submit(ctx, rawURL)
}

// ChoosePlatform resumes an awaiting-choice case with a human-picked
// platform.
func (d *Daemon) ChoosePlatform(ctx context.Context, caseID int64, p store.Platform, remember bool) (*store.Case, error) {
	if d.verifier == nil {
		return nil, errors.New("verification manager unavailable")
	}
	return d.verifier.ChoosePlatform(ctx, caseID, p, remember)
}

// ListKnowledge returns the routing knowledge table.
func (d *Daemon) ListKnowledge(ctx context.Context) ([]*store.KnowledgeEntry, error) {
	if d.store == nil {
		return nil, errors.New("store unavailable")
	}
	return d.store.ListKnowledge(ctx)
}

// SaveKnowledge upserts a (company, platform) routing row, bumping its
// use counter when the pair already exists.
func (d *Daemon) SaveKnowledge(ctx context.Context, company, phone string, p store.Platform, requiresManual bool) (*store.KnowledgeEntry, error) {
	if d.store == nil {
		return nil, errors.New("store unavailable")
	}
	company = strings.TrimSpace(company)
	phone = strings.TrimSpace(phone)
	if company == "" {
		return nil, services.Wrap(services.ErrValidation, "daemon", "save knowledge", "company name is required", nil)
	}
	if err := d.store.RecordKnowledgeUsage(ctx, company, phone, p); err != nil {
		return nil, err
	}
	if requiresManual {
		if err := d.routes.MarkRequiresManual(ctx, company, phone); err != nil {
			return nil, err
		}
	}
	entries, err := d.store.KnowledgeByCompany(ctx, company)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.Platform == p {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("knowledge row for %q vanished after upsert", company)
}

// ReviseKnowledge rewrites every mutable field of a routing row. A nil
// return with nil error means the row does not exist.
func (d *Daemon) ReviseKnowledge(ctx context.Context, id int64, company, phone string, p store.Platform, requiresManual bool) (*store.KnowledgeEntry, error) {
	if d.store == nil {
		return nil, errors.New("store unavailable")
	}
	entry, err := d.store.GetKnowledge(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	entry.Company = strings.TrimSpace(company)
	entry.Phone = strings.TrimSpace(phone)
	entry.Platform = p
	entry.RequiresManual = requiresManual
	if entry.Company == "" {
		return nil, services.Wrap(services.ErrValidation, "daemon", "revise knowledge", "company name is required", nil)
	}
	if err := d.store.UpdateKnowledge(ctx, entry); err != nil {
		return nil, err
	}
	return d.store.GetKnowledge(ctx, id)
}

// RemoveKnowledge deletes a routing row. The boolean reports whether a
// row existed.
func (d *Daemon) RemoveKnowledge(ctx context.Context, id int64) (bool, error) {
	if d.store == nil {
		return false, errors.New("store unavailable")
	}
	return d.store.DeleteKnowledge(ctx, id)
}

// ListTasks returns phone tasks newest first, optionally filtered by
// status.
func (d *Daemon) ListTasks(ctx context.Context, status store.TaskStatus) ([]*store.EscalationTask, error) {
	if d.store == nil {
		return nil, errors.New("store unavailable")
	}
	return d.store.ListEscalationTasks(ctx, status)
}

// PendingTaskCount returns the number of open phone tasks.
func (d *Daemon) PendingTaskCount(ctx context.Context) (int, error) {
	if d.store == nil {
		return 0, errors.New("store unavailable")
	}
	return d.store.PendingEscalationCount(ctx)
}

// ResolveTask transitions a phone task. Completing a task teaches the
// routing knowledge that the company needs a phone call next time, so
// future cases for it escalate straight away. A nil return with nil
// error means the task does not exist.
func (d *Daemon) ResolveTask(ctx context.Context, id int64, status store.TaskStatus, note string) (*store.EscalationTask, error) {
	if d.store == nil {
		return nil, errors.New("store unavailable")
	}
	task, err := d.store.UpdateEscalationStatus(ctx, id, status, note)
	if err != nil || task == nil {
		return task, err
	}
	if status == store.TaskCompleted && task.Company != "" {
		if err := d.routes.MarkRequiresManual(ctx, task.Company, task.Phone); err != nil {
			d.logger.Warn("failed to flag company for manual verification",
				logging.String(logging.FieldCompany, task.Company),
				logging.Error(err))
		}
	}
	return task, nil
}

// DatabaseHealth returns detailed store diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (store.DatabaseHealth, error) {
	if d.store == nil {
		return store.DatabaseHealth{}, errors.New("store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// APIAddr reports the address the HTTP API is listening on, or an empty
// string while the daemon is stopped.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Ping verifies that the store answers queries.
func (d *Daemon) Ping(ctx context.Context) error {
	if d.store == nil {
		return errors.New("store unavailable")
	}
	return d.store.Ping(ctx)
}

// TestNotification sends a test message through the configured channels.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	line := strings.TrimSpace(d.cfg.Notifications.LineChannelToken) != "" &&
		strings.TrimSpace(d.cfg.Notifications.LineTo) != ""
	slack := strings.TrimSpace(d.cfg.Notifications.SlackWebhookURL) != ""
	if !line && !slack {
		return false, "no notification channel configured", nil
	}
	notifier := notify.NewService(d.cfg, d.logger)
	if err := notifier.Publish(ctx, notify.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status. The browser session snapshot
// rides on the worker queue, so it is taken under a short deadline and
// skipped entirely while the daemon is stopped.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Orchestrator: d.verifier.Status(ctx),
		StorePath:    d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if count, err := d.store.PendingEscalationCount(ctx); err != nil {
		d.logger.Warn("failed to count phone tasks", logging.Error(err))
	} else {
		status.PendingTasks = count
	}
	if summary, err := d.store.InventoryStats(ctx); err != nil {
		d.logger.Warn("failed to read inventory stats", logging.Error(err))
	} else {
		status.Inventory = summary
	}
	if d.sessions != nil && status.Running {
		snapCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		infos, err := d.sessions.Sessions(snapCtx)
		cancel()
		if err != nil {
			d.logger.Warn("failed to snapshot browser sessions", logging.Error(err))
		} else {
			status.Sessions = infos
		}
	}
	return status
}
