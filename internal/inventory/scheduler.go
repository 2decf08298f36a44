package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

const stderrExcerptLimit = 500

// commandRunner walls off process execution so tests can substitute canned
// crawler output.
type commandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// clockTime is a fire time within a day.
type clockTime struct {
	hour   int
	minute int
}

// Scheduler runs the configured crawler command at fixed times of day and
// feeds its stdout to the importer.
type Scheduler struct {
	importer *Importer
	logger   *slog.Logger

	command       string
	args          []string
	schedule      []clockTime
	scheduleLabel string
	runTimeout    time.Duration
	runner        commandRunner
	now           func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler builds a scheduler from the inventory configuration. Returns
// nil when no crawler command is configured; the daemon then runs without
// automatic refreshes and the inventory is fed by manual imports.
//
// The command line is split on whitespace; quoted arguments are not
// supported.
func NewScheduler(cfg *config.Config, st *store.Store, logger *slog.Logger) *Scheduler {
	fields := strings.Fields(cfg.Inventory.CrawlerCommand)
	if len(fields) == 0 {
		return nil
	}

	schedule := make([]clockTime, 0, len(cfg.Inventory.Schedule))
	labels := make([]string, 0, len(cfg.Inventory.Schedule))
	for _, at := range cfg.Inventory.Schedule {
		ct, ok := parseClockTime(at)
		if !ok {
			continue
		}
		schedule = append(schedule, ct)
		labels = append(labels, fmt.Sprintf("%02d:%02d", ct.hour, ct.minute))
	}
	if len(schedule) == 0 {
		return nil
	}

	return &Scheduler{
		importer:      NewImporter(cfg, st, logger),
		logger:        logging.NewComponentLogger(logger, "inventory"),
		command:       fields[0],
		args:          fields[1:],
		schedule:      schedule,
		scheduleLabel: strings.Join(labels, ", "),
		runTimeout:    time.Duration(cfg.Inventory.RunTimeout) * time.Second,
		runner:        execCommandRunner{},
		now:           time.Now,
	}
}

// Start launches the schedule loop. The loop runs until Stop is called or
// ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("inventory scheduler unavailable")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return services.Wrap(services.ErrValidation, "inventory", "start", "scheduler already running", nil)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.loop(runCtx)

	s.logger.Info("inventory scheduler started",
		logging.String("command", s.command),
		logging.String("schedule", s.scheduleLabel),
	)
	return nil
}

// Stop cancels the schedule loop and waits for an in-flight crawl to wind
// down.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := nextRunTime(s.now(), s.schedule)
		s.logger.Info("next inventory crawl scheduled",
			logging.String("at", next.Format("2006-01-02 15:04")),
		)

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.runOnce(ctx)
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	started := s.now()
	s.logger.Info("inventory crawl started", logging.String("command", s.command))

	out, err := s.runner.Output(runCtx, s.command, s.args...)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			s.logger.Error("inventory crawl timed out",
				logging.Duration("timeout", s.runTimeout),
			)
			return
		}
		s.logger.Error("inventory crawl failed",
			logging.Error(err),
			logging.String("stderr", stderrExcerpt(err)),
		)
		return
	}

	result, err := s.importer.Import(ctx, bytes.NewReader(out))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("inventory import failed", logging.Error(err))
		return
	}

	s.logger.Info("inventory crawl finished",
		logging.Int("imported", result.Imported),
		logging.Int64("ended", result.Ended),
		logging.Duration("duration", s.now().Sub(started).Round(time.Millisecond)),
	)
}

// nextRunTime picks the earliest scheduled fire strictly after now, looking
// at today's and tomorrow's occurrence of each configured time.
func nextRunTime(now time.Time, schedule []clockTime) time.Time {
	var next time.Time
	for _, at := range schedule {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), at.hour, at.minute, 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next
}

func parseClockTime(value string) (clockTime, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return clockTime{}, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return clockTime{}, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return clockTime{}, false
	}
	return clockTime{hour: hour, minute: minute}, true
}

// stderrExcerpt pulls captured stderr out of an exec failure, cut to a
// loggable length on a rune boundary.
func stderrExcerpt(err error) string {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return ""
	}
	text := strings.TrimSpace(string(exitErr.Stderr))
	if len(text) > stderrExcerptLimit {
		cut := stderrExcerptLimit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}
