// Package verify runs submitted listing URLs through the vacancy
// verification pipeline: parse the portal page, match it against the
// trade-exchange inventory, route to the management company's platform,
// and query the room through the browser worker.
//
// Two lanes poll the store. The pipeline lane owns pending, parsing and
// matching cases; the checking lane owns checking cases. The persisted
// status is the only state carried between steps, so a case interrupted
// by a crash is reclaimed at the step its status names. awaiting_choice
// belongs to neither lane; ChoosePlatform moves such cases onto the
// checking lane once a human has picked the platform.
package verify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/knowledge"
	"github.com/hazuki802/bukkaku/internal/listing"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/match"
	"github.com/hazuki802/bukkaku/internal/notify"
	"github.com/hazuki802/bukkaku/internal/platform"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

// Fetcher retrieves one portal listing page and extracts its attributes.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, portal store.Portal) (*listing.Attributes, error)
}

// Checker answers vacancy queries against a company's platform.
type Checker interface {
	Configured(p store.Platform) bool
	Check(ctx context.Context, p store.Platform, name, room string) (platform.Availability, error)
}

// Deps bundles the collaborators the orchestrator drives. Notifier may be
// nil, in which case one is built from configuration.
type Deps struct {
	Fetcher  Fetcher
	Matcher  *match.Matcher
	Routes   *knowledge.Accessor
	Checker  Checker
	Notifier notify.Service
}

// Manager owns the verification lanes and the operations that feed them.
type Manager struct {
	cfg      *config.Config
	store    *store.Store
	fetcher  Fetcher
	matcher  *match.Matcher
	routes   *knowledge.Accessor
	checker  Checker
	notifier notify.Service
	logger   *slog.Logger

	pollInterval time.Duration
	errorRetry   time.Duration
	lanes        []*laneState

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastCase *store.Case
}

// NewManager constructs the orchestrator without starting its lanes.
func NewManager(cfg *config.Config, st *store.Store, deps Deps, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewService(cfg, logger)
	}
	return &Manager{
		cfg:          cfg,
		store:        st,
		fetcher:      deps.Fetcher,
		matcher:      deps.Matcher,
		routes:       deps.Routes,
		checker:      deps.Checker,
		notifier:     notifier,
		logger:       logging.NewComponentLogger(logger, "verify"),
		pollInterval: time.Duration(cfg.Workflow.PollInterval) * time.Second,
		errorRetry:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		lanes: []*laneState{
			newLane("pipeline", store.StatusPending, store.StatusParsing, store.StatusMatching),
			newLane("checking", store.StatusChecking),
		},
	}
}

// Start launches one goroutine per lane. Starting a running manager is an
// error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return services.Wrap(services.ErrValidation, "verify", "start", "orchestrator already running", nil)
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	for _, lane := range m.lanes {
		lane.logger = m.logger.With(logging.FieldLane, lane.name)
	}
	m.wg.Add(len(m.lanes))
	m.mu.Unlock()

	for _, lane := range m.lanes {
		go m.runLane(runCtx, lane)
	}
	m.logger.Info("orchestrator started",
		logging.Int("lanes", len(m.lanes)),
		logging.Duration("poll_interval", m.pollInterval))
	return nil
}

// Stop halts the lanes and waits for the in-flight step to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("orchestrator stopped")
}

// StatusSummary is the orchestrator snapshot reported by the status API.
type StatusSummary struct {
	Running   bool
	Lanes     []string
	LastError string
	LastCase  *store.Case
	CaseStats map[store.Status]int
}

// Status reports the lane state together with live case counts.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastCase != nil {
		cp := *m.lastCase
		summary.LastCase = &cp
	}
	for _, lane := range m.lanes {
		summary.Lanes = append(summary.Lanes, lane.name)
	}
	m.mu.RUnlock()

	stats, err := m.store.CaseStats(ctx)
	if err != nil {
		m.logger.Warn("failed to read case stats", logging.Error(err))
	} else {
		summary.CaseStats = stats
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastCase(c *store.Case) {
	m.mu.Lock()
	if c != nil {
		cp := *c
		m.lastCase = &cp
	} else {
		m.lastCase = nil
	}
	m.mu.Unlock()
}
