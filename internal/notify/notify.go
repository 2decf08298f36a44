// Package notify delivers case outcomes to the lead-screening staff over
// LINE and Slack. Delivery is best effort end to end. A lost notification
// costs a glance at the case list, so no caller ever fails a case over one.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/logging"
)

// Event identifies the kind of outcome being announced.
type Event string

const (
	EventCaseCompleted Event = "case_completed"
	EventCaseNotFound  Event = "case_not_found"
	EventEscalation    Event = "escalation_created"
	EventError         Event = "case_error"
	EventTest          Event = "test"
)

// Payload carries the pre-rendered field values for one event.
type Payload map[string]string

// Service is the notification surface the orchestrator publishes into.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// sink is one delivery channel.
type sink interface {
	name() string
	send(ctx context.Context, message string) error
}

// NewService builds the configured fanout. With neither LINE nor Slack
// configured a noop implementation is returned.
func NewService(cfg *config.Config, logger *slog.Logger) Service {
	if logger == nil {
		logger = logging.NewNop()
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var sinks []sink
	if token := strings.TrimSpace(cfg.Notifications.LineChannelToken); token != "" {
		if to := strings.TrimSpace(cfg.Notifications.LineTo); to != "" {
			sinks = append(sinks, &lineSink{endpoint: lineAPIURL, token: token, to: to, client: client})
		}
	}
	if webhook := strings.TrimSpace(cfg.Notifications.SlackWebhookURL); webhook != "" {
		sinks = append(sinks, &slackSink{webhook: webhook, client: client})
	}
	if len(sinks) == 0 {
		return noopService{}
	}

	return &fanout{
		sinks:  sinks,
		cfg:    cfg.Notifications,
		logger: logging.NewComponentLogger(logger, "notify"),
	}
}

type fanout struct {
	sinks  []sink
	cfg    config.Notifications
	logger *slog.Logger
}

// Publish renders the event and hands it to every sink. Sink failures are
// logged and joined into the return value; callers on the case path discard
// it, the notification test command surfaces it.
func (f *fanout) Publish(ctx context.Context, event Event, payload Payload) error {
	if !f.enabled(event) {
		return nil
	}
	message := Message(event, payload)
	if message == "" {
		return nil
	}

	var errs []error
	for _, s := range f.sinks {
		if err := s.send(ctx, message); err != nil {
			f.logger.Warn("notification delivery failed",
				logging.String("sink", s.name()),
				logging.String("event", string(event)),
				logging.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.name(), err))
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) enabled(event Event) bool {
	switch event {
	case EventCaseCompleted:
		return f.cfg.CaseCompleted
	case EventCaseNotFound:
		return f.cfg.CaseNotFound
	case EventEscalation:
		return f.cfg.Escalations
	case EventError:
		return f.cfg.Errors
	default:
		return true
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
