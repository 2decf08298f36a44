package browser

import (
	"context"
	"time"

	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/services"
)

// task is one unit of work queued for the automation worker. A nil result
// channel marks fire-and-forget work.
type task struct {
	label  string
	ctx    context.Context
	fn     func(ctx context.Context) error
	result chan error
}

// run is the automation worker loop. Every browser operation in the
// process funnels through here one task at a time, which is what lets the
// rest of the manager keep Rod state without locks.
func (m *Manager) run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			m.teardown()
			return
		case t := <-m.tasks:
			m.execute(ctx, t)
		}
	}
}

func (m *Manager) execute(workerCtx context.Context, t task) {
	ctx := t.ctx
	if ctx == nil {
		ctx = workerCtx
	}
	start := time.Now()
	err := t.fn(ctx)
	if t.result != nil {
		t.result <- err
	} else if err != nil {
		m.logger.Warn("background task failed", logging.String("task", t.label), logging.Error(err))
	}
	m.logger.Debug("task finished",
		logging.String("task", t.label),
		logging.Duration("duration", time.Since(start).Round(time.Millisecond)),
		logging.Bool("ok", err == nil))
}

// submit queues fn on the worker and waits for it to finish. fn receives
// the caller's context, so cancelling the caller also aborts the work.
func (m *Manager) submit(ctx context.Context, label string, fn func(context.Context) error) error {
	t := task{label: label, ctx: ctx, fn: fn, result: make(chan error, 1)}
	select {
	case m.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return services.Wrap(services.ErrTransient, "browser", label, "automation worker stopped", nil)
	}
	select {
	case err := <-t.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return services.Wrap(services.ErrTransient, "browser", label, "automation worker stopped", nil)
	}
}

// post queues fn without waiting for it. When the queue is full the unit
// is dropped; periodic upkeep tolerates missing a beat.
func (m *Manager) post(label string, fn func(context.Context) error) {
	t := task{label: label, fn: fn}
	select {
	case m.tasks <- t:
	default:
		m.logger.Debug("worker busy, dropping task", logging.String("task", t.label))
	}
}
