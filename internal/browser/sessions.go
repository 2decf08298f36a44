package browser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

// sessionState tracks where a platform session is in its lifecycle.
type sessionState int

const (
	stateUninitialized sessionState = iota
	stateLoggingIn
	stateReady
	stateDegraded
)

func (s sessionState) String() string {
	switch s {
	case stateLoggingIn:
		return "logging_in"
	case stateReady:
		return "ready"
	case stateDegraded:
		return "degraded"
	default:
		return "uninitialized"
	}
}

// session is the worker-owned record of one platform's authenticated page.
type session struct {
	platform    store.Platform
	state       sessionState
	id          uint64
	page        *rod.Page
	loggedInAt  time.Time
	lastChecked time.Time
	failures    int
}

// SessionInfo is a point-in-time snapshot of one platform session.
type SessionInfo struct {
	Platform    store.Platform
	State       string
	LoggedInAt  time.Time
	LastChecked time.Time
	Failures    int
}

// WithSession runs fn on the automation worker with an authenticated page
// for p. When the platform bounced the page to its login screen mid task,
// the manager silently logs back in and retries fn once on the fresh
// session.
func (m *Manager) WithSession(ctx context.Context, p store.Platform, label string, fn PageFunc) error {
	return m.submit(ctx, label, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, m.queryTimeout())
		defer cancel()
		s, err := m.ensureSession(ctx, p)
		if err != nil {
			return err
		}
		err = fn(ctx, s.page)
		if !errors.Is(err, ErrSessionLost) {
			return err
		}
		m.logger.Info("session dropped mid task, re-authenticating",
			logging.String(logging.FieldPlatform, string(p)),
			logging.String("task", label))
		s.state = stateDegraded
		if s, err = m.ensureSession(ctx, p); err != nil {
			return err
		}
		return fn(ctx, s.page)
	})
}

// Login ensures an authenticated session for p and reports whether one is
// available. Already signed-in sessions are reused as is.
func (m *Manager) Login(ctx context.Context, p store.Platform) (bool, error) {
	err := m.submit(ctx, "login "+string(p), func(ctx context.Context) error {
		_, err := m.ensureSession(ctx, p)
		return err
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// LoggedIn reports whether p currently has a signed-in session. It probes
// the live page rather than trusting cached state, and downgrades the
// session when the platform says the login is gone.
func (m *Manager) LoggedIn(ctx context.Context, p store.Platform) (bool, error) {
	var live bool
	err := m.submit(ctx, "session probe "+string(p), func(ctx context.Context) error {
		s := m.sessions[p]
		d := m.drivers[p]
		if s == nil || d == nil || s.page == nil || s.state != stateReady {
			return nil
		}
		ok, err := d.LoggedIn(ctx, s.page)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "browser", "session-probe",
				fmt.Sprintf("session probe of %s failed", p), err)
		}
		live = ok
		if ok {
			s.lastChecked = time.Now()
		} else {
			s.state = stateDegraded
		}
		return nil
	})
	return live, err
}

// Sessions returns a snapshot of every platform session the worker has
// touched, ordered by platform name.
func (m *Manager) Sessions(ctx context.Context) ([]SessionInfo, error) {
	var infos []SessionInfo
	err := m.submit(ctx, "session snapshot", func(context.Context) error {
		for _, s := range m.sessions {
			infos = append(infos, SessionInfo{
				Platform:    s.platform,
				State:       s.state.String(),
				LoggedInAt:  s.loggedInAt,
				LastChecked: s.lastChecked,
				Failures:    s.failures,
			})
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].Platform < infos[j].Platform })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// ensureSession returns a Ready session for p, building the page and
// logging in when there is nothing to reuse. Runs on the worker.
func (m *Manager) ensureSession(ctx context.Context, p store.Platform) (*session, error) {
	d := m.drivers[p]
	if d == nil {
		return nil, services.Wrap(services.ErrConfiguration, "browser", "session",
			fmt.Sprintf("platform %s is not configured", p), nil)
	}
	s := m.sessions[p]
	if s == nil {
		s = &session{platform: p}
		m.sessions[p] = s
	}
	if s.state == stateReady {
		return s, nil
	}
	if err := m.openSession(ctx, s, d); err != nil {
		return nil, err
	}
	return s, nil
}

// openSession discards whatever page the session had and performs a fresh
// login on a new one.
func (m *Manager) openSession(ctx context.Context, s *session, d Driver) error {
	m.closeSession(s)
	s.state = stateLoggingIn
	page, err := m.newPage(ctx)
	if err != nil {
		s.state = stateDegraded
		s.failures++
		return err
	}
	s.page = page
	return m.loginSession(ctx, s, d)
}

// loginSession drives the platform's login flow on the session's current
// page and stamps a new session generation on success.
func (m *Manager) loginSession(ctx context.Context, s *session, d Driver) error {
	s.state = stateLoggingIn
	ctx, cancel := context.WithTimeout(ctx, m.loginTimeout())
	defer cancel()
	if err := d.Login(ctx, s.page); err != nil {
		s.state = stateDegraded
		s.failures++
		return services.Wrap(services.ErrExternalTool, "browser", "login",
			fmt.Sprintf("login to %s failed", s.platform), err)
	}
	m.lastID++
	s.id = m.lastID
	s.state = stateReady
	s.failures = 0
	now := time.Now()
	s.loggedInAt = now
	s.lastChecked = now
	m.logger.Info("platform session established",
		logging.String(logging.FieldPlatform, string(s.platform)),
		logging.Any("session", s.id))
	return nil
}

// monitor re-validates signed-in sessions in the background so a platform
// that silently expires a login is caught before the next check needs it.
func (m *Manager) monitor(ctx context.Context) {
	interval := time.Duration(m.cfg.SessionCheckInterval) * time.Second
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.post("session liveness", m.checkSessions)
		}
	}
}

// checkSessions probes every Ready session once. Dropped logins are
// re-authenticated in place; probe failures downgrade the session and are
// only logged.
func (m *Manager) checkSessions(ctx context.Context) error {
	for _, s := range m.sessions {
		if s.state == stateReady {
			m.checkSession(ctx, s)
		}
	}
	return nil
}

func (m *Manager) checkSession(ctx context.Context, s *session) {
	d := m.drivers[s.platform]
	if d == nil || s.page == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, m.loginTimeout())
	defer cancel()
	ok, err := d.LoggedIn(ctx, s.page)
	if err != nil {
		s.state = stateDegraded
		s.failures++
		m.logger.Warn("session liveness probe failed",
			logging.String(logging.FieldPlatform, string(s.platform)),
			logging.Error(err))
		return
	}
	if ok {
		s.lastChecked = time.Now()
		return
	}
	m.logger.Info("session dropped, re-authenticating", logging.String(logging.FieldPlatform, string(s.platform)))
	if err := m.loginSession(ctx, s, d); err != nil {
		m.logger.Warn("session re-authentication failed",
			logging.String(logging.FieldPlatform, string(s.platform)),
			logging.Error(err))
	}
}

func (m *Manager) loginTimeout() time.Duration {
	if m.cfg.LoginTimeout > 0 {
		return time.Duration(m.cfg.LoginTimeout) * time.Second
	}
	return time.Minute
}

func (m *Manager) queryTimeout() time.Duration {
	if m.cfg.QueryTimeout > 0 {
		return time.Duration(m.cfg.QueryTimeout) * time.Second
	}
	return 90 * time.Second
}
