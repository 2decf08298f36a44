package verify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

// laneState is one polling loop over a fixed set of claimable statuses.
// Processing statuses are claimable on purpose: a case left in parsing by
// a crash is picked up again and the step reruns from its persisted input.
type laneState struct {
	name     string
	statuses []store.Status
	logger   *slog.Logger
}

func newLane(name string, statuses ...store.Status) *laneState {
	return &laneState{name: name, statuses: statuses}
}

// step ties a claimable status to the work that advances it. processing is
// persisted before run so an interrupted step is visible in the store.
type step struct {
	name       string
	processing store.Status
	run        func(*Manager, context.Context, *slog.Logger, *store.Case) error
}

func stepForStatus(status store.Status) (step, bool) {
	switch status {
	case store.StatusPending, store.StatusParsing:
		return step{name: "parse", processing: store.StatusParsing, run: (*Manager).stepParse}, true
	case store.StatusMatching:
		return step{name: "match", processing: store.StatusMatching, run: (*Manager).stepMatch}, true
	case store.StatusChecking:
		return step{name: "check", processing: store.StatusChecking, run: (*Manager).stepCheck}, true
	default:
		return step{}, false
	}
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	logger := lane.logger
	if logger == nil {
		logger = m.logger
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := m.store.NextCaseForStatuses(ctx, lane.statuses...)
		if err != nil {
			m.handleLaneError(ctx, logger, err)
			continue
		}
		if item == nil {
			m.waitForCaseOrShutdown(ctx)
			continue
		}

		if err := m.processCase(ctx, lane, logger, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleLaneError(ctx, logger, err)
		}
	}
}

// processCase claims one case by persisting its processing status, then
// executes the step for it. A returned error means store or infrastructure
// trouble: the case keeps its claimable status and the lane backs off.
// Terminal outcomes, including input failures, are persisted by the step.
func (m *Manager) processCase(ctx context.Context, lane *laneState, logger *slog.Logger, c *store.Case) error {
	st, ok := stepForStatus(c.Status)
	if !ok {
		logger.Warn("no step for status",
			logging.Int64(logging.FieldCaseID, c.ID),
			logging.String("status", string(c.Status)))
		m.waitForCaseOrShutdown(ctx)
		return nil
	}

	stepCtx := services.WithRequestID(ctx, uuid.NewString())
	stepCtx = services.WithCaseID(stepCtx, c.ID)
	stepCtx = services.WithLane(stepCtx, lane.name)
	stepCtx = services.WithStep(stepCtx, st.name)
	stepLogger := logging.WithContext(stepCtx, logger)

	if c.Status != st.processing {
		c.Status = st.processing
		if err := m.store.UpdateCase(stepCtx, c); err != nil {
			return err
		}
	}
	m.setLastCase(c)

	stepLogger.Info("step started", logging.String("url", c.SourceURL))
	start := time.Now()
	if err := st.run(m, stepCtx, stepLogger, c); err != nil {
		return err
	}
	stepLogger.Info("step finished",
		logging.String("status", string(c.Status)),
		logging.Duration("duration", time.Since(start).Round(time.Millisecond)))
	return nil
}

// handleLaneError logs the failure and holds the lane before the next
// claim attempt so a down store is not hammered.
func (m *Manager) handleLaneError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	details := services.Details(err)
	logger.Error("lane backing off after error",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, details.Kind),
		logging.String(logging.FieldErrorHint, details.Hint))
	select {
	case <-ctx.Done():
	case <-time.After(m.errorRetry):
	}
}

func (m *Manager) waitForCaseOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
