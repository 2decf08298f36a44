// Package browser owns the headless Chrome instance used for platform
// automation. A single worker goroutine holds every Rod handle in the
// process; callers never touch browser state directly and instead submit
// work units that run on the worker with an authenticated page for their
// platform. Session upkeep happens in the background and its failures are
// logged, never surfaced to callers.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/stealth"

	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

// ErrSessionLost reports that a platform bounced an automated page back to
// its login screen mid task. The manager re-authenticates and retries the
// work unit once before giving up.
var ErrSessionLost = errors.New("platform session lost")

// Driver knows how one business platform authenticates. Implementations
// navigate a fresh page to the platform's login form and can tell from the
// current page whether the session is still signed in.
type Driver interface {
	Platform() store.Platform
	Login(ctx context.Context, page *rod.Page) error
	LoggedIn(ctx context.Context, page *rod.Page) (bool, error)
}

// PageFunc is a unit of automation work. It runs on the worker goroutine
// and must not retain the page beyond the call.
type PageFunc func(ctx context.Context, page *rod.Page) error

// pageFactory opens a fresh page on the shared browser. Tests stub it so
// the session machinery can run without Chrome.
type pageFactory func(ctx context.Context) (*rod.Page, error)

// Manager runs the automation worker and tracks one session per platform.
type Manager struct {
	cfg    config.Browser
	logger *slog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc

	tasks chan task
	done  chan struct{}

	// Worker-owned state. Only task functions running on the worker
	// goroutine may touch these fields.
	workerCtx context.Context
	launch    *launcher.Launcher
	browser   *rod.Browser
	sessions  map[store.Platform]*session
	lastID    uint64

	drivers map[store.Platform]Driver
	newPage pageFactory
}

// New builds a Manager for the given platform drivers. Call Start before
// submitting work.
func New(cfg *config.Config, drivers []Driver, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:      cfg.Browser,
		logger:   logging.NewComponentLogger(logger, "browser"),
		tasks:    make(chan task, 8),
		done:     make(chan struct{}),
		sessions: make(map[store.Platform]*session),
		drivers:  make(map[store.Platform]Driver, len(drivers)),
	}
	for _, d := range drivers {
		m.drivers[d.Platform()] = d
	}
	m.newPage = m.openPage
	return m
}

// Configured reports whether a driver is registered for p.
func (m *Manager) Configured(p store.Platform) bool {
	_, ok := m.drivers[p]
	return ok
}

// Start launches the automation worker and the session liveness monitor.
// Chrome itself is not started until the first work unit needs it.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return services.Wrap(services.ErrConfiguration, "browser", "start", "automation worker already started", nil)
	}
	wctx, cancel := context.WithCancel(ctx)
	m.started = true
	m.cancel = cancel
	m.workerCtx = wctx
	go m.run(wctx)
	go m.monitor(wctx)
	m.logger.Info("automation worker started", logging.Int("platforms", len(m.drivers)))
	return nil
}

// Shutdown stops the monitor, tears down every session and the browser,
// and waits for the worker to exit. It gives up after the configured
// shutdown timeout so a wedged Chrome cannot hang process exit.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	started := m.started
	cancel := m.cancel
	m.mu.Unlock()
	if !started {
		return nil
	}
	cancel()
	timeout := time.Duration(m.cfg.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	select {
	case <-m.done:
		return nil
	case <-time.After(timeout):
		return services.Wrap(services.ErrTimeout, "browser", "shutdown", "automation worker did not stop in time", nil)
	}
}

// ensureBrowser connects to Chrome on first use, launching a local binary
// unless a remote debugger URL is configured.
func (m *Manager) ensureBrowser() (*rod.Browser, error) {
	if m.browser != nil {
		return m.browser, nil
	}
	controlURL := m.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(m.cfg.Headless)
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}
		for _, raw := range m.cfg.LaunchFlags {
			name, value := splitLaunchFlag(raw)
			if name == "" {
				continue
			}
			if value == "" {
				l = l.Set(flags.Flag(name))
			} else {
				l = l.Set(flags.Flag(name), value)
			}
		}
		u, err := l.Launch()
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "browser", "launch", "failed to launch chrome", err)
		}
		m.launch = l
		controlURL = u
	}
	b := rod.New().ControlURL(controlURL).Context(m.workerCtx)
	if err := b.Connect(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "browser", "connect", "failed to connect to chrome", err)
	}
	m.browser = b
	m.logger.Info("browser connected",
		logging.Bool("headless", m.cfg.Headless),
		logging.Bool("remote", m.cfg.DebuggerURL != ""))
	return b, nil
}

// openPage creates a stealth-patched blank page on the shared browser.
func (m *Manager) openPage(ctx context.Context) (*rod.Page, error) {
	b, err := m.ensureBrowser()
	if err != nil {
		return nil, err
	}
	page, err := stealth.Page(b)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "browser", "open-page", "failed to open page", err)
	}
	return page, nil
}

// teardown releases all Rod state. Runs on the worker as its last act.
func (m *Manager) teardown() {
	for _, s := range m.sessions {
		m.closeSession(s)
	}
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.logger.Debug("browser close", logging.Error(err))
		}
		m.browser = nil
	}
	if m.launch != nil {
		m.launch.Cleanup()
		m.launch = nil
	}
	m.logger.Info("automation worker stopped")
}

// closeSession drops the session's page and resets it to uninitialized.
func (m *Manager) closeSession(s *session) {
	if s.page != nil && m.browser != nil {
		if err := s.page.Close(); err != nil {
			m.logger.Debug("session page close",
				logging.String(logging.FieldPlatform, string(s.platform)),
				logging.Error(err))
		}
	}
	s.page = nil
	s.state = stateUninitialized
}

// splitLaunchFlag turns "--disable-gpu" or "window-size=1280,900" into a
// flag name and optional value.
func splitLaunchFlag(raw string) (string, string) {
	raw = strings.TrimLeft(strings.TrimSpace(raw), "-")
	name, value, _ := strings.Cut(raw, "=")
	return strings.TrimSpace(name), strings.TrimSpace(value)
}
