package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/portal"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

// Submit validates a portal URL and enqueues a pending case for the
// pipeline lane. The lanes pick it up on their next poll, so submission
// works whether or not the manager is running.
func (m *Manager) Submit(ctx context.Context, rawURL string) (*store.Case, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, services.Wrap(services.ErrValidation, "verify", "submit", "url is required", nil)
	}
	source, ok := portal.Detect(trimmed)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "verify", "submit",
			fmt.Sprintf("unsupported portal URL %q", trimmed), nil)
	}

	c, err := m.store.NewCase(ctx, trimmed, source)
	if err != nil {
		return nil, err
	}
	m.logger.Info("case submitted",
		logging.Int64(logging.FieldCaseID, c.ID),
		logging.String("portal", string(source)),
		logging.String("url", trimmed))
	return c, nil
}

// ChoosePlatform resumes a parked case with the platform a human picked.
// remember teaches the routing knowledge so the next case for the same
// company routes automatically.
func (m *Manager) ChoosePlatform(ctx context.Context, caseID int64, p store.Platform, remember bool) (*store.Case, error) {
	if _, ok := store.ParsePlatform(string(p)); !ok {
		return nil, services.Wrap(services.ErrValidation, "verify", "choose platform",
			fmt.Sprintf("unknown platform %q", string(p)), nil)
	}

	c, err := m.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, services.Wrap(services.ErrNotFound, "verify", "choose platform",
			fmt.Sprintf("case %d not found", caseID), nil)
	}
	if c.Status != store.StatusAwaitingChoice {
		return nil, services.Wrap(services.ErrValidation, "verify", "choose platform",
			fmt.Sprintf("case %d is %s, not awaiting a platform choice", caseID, c.Status), nil)
	}

	c.Platform = p
	c.Routing = store.RoutingManual
	c.Status = store.StatusChecking
	if err := m.store.UpdateCase(ctx, c); err != nil {
		return nil, err
	}
	if remember {
		if err := m.routes.RecordUsage(ctx, c.CompanyName, c.CompanyPhone, p); err != nil {
			m.logger.Warn("failed to remember platform choice",
				logging.String(logging.FieldCompany, c.CompanyName),
				logging.Error(err))
		}
	}
	m.logger.Info("platform chosen",
		logging.Int64(logging.FieldCaseID, c.ID),
		logging.String(logging.FieldPlatform, string(p)),
		logging.Bool("remember", remember))
	return c, nil
}
