package logging

import (
	"context"
	"log/slog"

	"github.com/hazuki802/bukkaku/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldCaseID is the standardized structured logging key for verification case identifiers.
	FieldCaseID = "case_id"
	// FieldStep is the standardized structured logging key for pipeline step names.
	FieldStep = "step"
	// FieldLane is the standardized structured logging key for orchestrator lane names.
	FieldLane = "lane"
	// FieldPlatform is the standardized structured logging key for external platform names.
	FieldPlatform = "platform"
	// FieldCompany is the standardized structured logging key for management company names.
	FieldCompany = "company"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType tags log records with a stable machine-searchable event name.
	FieldEventType = "event_type"
	// FieldErrorKind carries the services.Details classification of a failure.
	FieldErrorKind = "error_kind"
	// FieldErrorHint carries the operator-facing next step for a failure.
	FieldErrorHint = "error_hint"
	// FieldDecisionType tags records describing a routing or matching decision.
	FieldDecisionType = "decision_type"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.CaseIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldCaseID, id))
	}
	if step, ok := services.StepFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStep, step))
	}
	if lane, ok := services.LaneFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLane, lane))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
