package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazuki802/bukkaku/internal/knowledge"
	"github.com/hazuki802/bukkaku/internal/listing"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/notify"
	"github.com/hazuki802/bukkaku/internal/platform"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

// Terminal result texts surfaced on the case record and in notifications.
// resultNoMatch keeps the wording the screening team has used since the
// manual workflow.
const (
	resultNoMatch        = "確認不可（専任物件の可能性）"
	resultPhoneRequired  = "要電話確認"
	resultPlatformMissed = "該当なし（要電話確認）"
	resultCheckFailed    = "確認エラー（要電話確認）"
)

// Escalation task reasons. Staff see these verbatim in the phone task list
// and in notifications.
const (
	reasonManualCompany = "電話確認指定の管理会社"
	reasonNotOnPlatform = "プラットフォームに掲載なし"
	reasonCheckFailed   = "自動確認エラー"
)

// stepParse fetches the portal page and persists the extracted listing
// attributes. Parse and fetch failures are input errors and terminate the
// case; only store failures bubble for retry.
func (m *Manager) stepParse(ctx context.Context, logger *slog.Logger, c *store.Case) error {
	attrs, err := m.fetcher.Fetch(ctx, c.SourceURL, c.Portal)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return m.failCase(ctx, logger, c, nil, fmt.Sprintf("URL解析エラー: %v", err))
	}
	attrs.Derive(time.Now())

	encoded, err := attrs.Encode()
	if err != nil {
		return m.failCase(ctx, logger, c, attrs, fmt.Sprintf("物件情報の保存エラー: %v", err))
	}
	c.ListingJSON = encoded
	c.Status = store.StatusMatching
	if err := m.store.UpdateCase(ctx, c); err != nil {
		return err
	}
	logger.Info("listing parsed",
		logging.String("name", attrs.Name),
		logging.String("unit", attrs.Unit),
		logging.String("address", attrs.Address),
		logging.Int64("rent", attrs.Rent))
	return nil
}

// stepMatch looks the listing up in the trade-exchange inventory and
// routes the case: no match closes it, a manual-verification company
// escalates immediately, a learned platform moves it to checking, and
// anything else parks it for a human platform choice.
func (m *Manager) stepMatch(ctx context.Context, logger *slog.Logger, c *store.Case) error {
	attrs, err := listing.Decode(c.ListingJSON)
	if err != nil {
		return m.failCase(ctx, logger, c, nil, fmt.Sprintf("物件情報の読み込みエラー: %v", err))
	}

	rec, err := m.matcher.Match(ctx, attrs)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if rec == nil {
		c.Status = store.StatusNotFound
		c.Result = resultNoMatch
		if err := m.store.UpdateCase(ctx, c); err != nil {
			return err
		}
		logger.Info("closed without inventory match", logging.String("name", attrs.Name))
		m.publish(ctx, notify.EventCaseNotFound, notify.Payload{
			"property": propertyLabel(attrs, c),
			"result":   resultNoMatch,
		})
		return nil
	}

	company, phone := knowledge.SplitContact(rec.Company)
	c.Company = rec.Company
	c.CompanyName = company
	c.CompanyPhone = phone

	manual, err := m.routes.RequiresManual(ctx, company)
	if err != nil {
		return err
	}
	if manual {
		logger.Info("company requires manual verification", logging.String(logging.FieldCompany, company))
		return m.escalateCase(ctx, logger, c, attrs, reasonManualCompany, resultPhoneRequired)
	}

	learned, ok, err := m.routes.LookupPlatform(ctx, company)
	if err != nil {
		return err
	}
	if ok {
		c.Platform = learned
		c.Routing = store.RoutingAuto
		c.Status = store.StatusChecking
		if err := m.store.UpdateCase(ctx, c); err != nil {
			return err
		}
		logger.Info("platform routed from knowledge",
			logging.String(logging.FieldCompany, company),
			logging.String(logging.FieldPlatform, string(learned)))
		return nil
	}

	c.Status = store.StatusAwaitingChoice
	if err := m.store.UpdateCase(ctx, c); err != nil {
		return err
	}
	logger.Info("awaiting platform choice", logging.String(logging.FieldCompany, company))
	return nil
}

// stepCheck queries the routed platform for the room. Every answer the
// platform actually produced records usage into the routing knowledge; a
// query failure records nothing. Both 該当なし and failures degrade to a
// phone task while the case itself completes.
func (m *Manager) stepCheck(ctx context.Context, logger *slog.Logger, c *store.Case) error {
	attrs, err := listing.Decode(c.ListingJSON)
	if err != nil {
		return m.failCase(ctx, logger, c, nil, fmt.Sprintf("物件情報の読み込みエラー: %v", err))
	}

	report, err := m.checker.Check(ctx, c.Platform, attrs.Name, attrs.Unit)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		details := services.Details(err)
		logger.Warn("availability query failed",
			logging.String(logging.FieldPlatform, string(c.Platform)),
			logging.Error(err),
			logging.String(logging.FieldErrorKind, details.Kind),
			logging.String(logging.FieldErrorHint, details.Hint))
		return m.escalateCase(ctx, logger, c, attrs, reasonCheckFailed, resultCheckFailed)
	}

	if err := m.routes.RecordUsage(ctx, c.CompanyName, c.CompanyPhone, c.Platform); err != nil {
		return err
	}

	if report == platform.AvailabilityNotFound {
		logger.Info("room not listed on platform", logging.String(logging.FieldPlatform, string(c.Platform)))
		return m.escalateCase(ctx, logger, c, attrs, reasonNotOnPlatform, resultPlatformMissed)
	}

	c.Status = store.StatusDone
	c.Result = string(report)
	if err := m.store.UpdateCase(ctx, c); err != nil {
		return err
	}
	logger.Info("vacancy verified",
		logging.String(logging.FieldPlatform, string(c.Platform)),
		logging.String("result", c.Result))
	m.publish(ctx, notify.EventCaseCompleted, notify.Payload{
		"property": propertyLabel(attrs, c),
		"result":   c.Result,
		"platform": notify.PlatformLabel(c.Platform),
	})
	return nil
}

// escalateCase records the phone follow-up and completes the case. The
// store enforces one task per case, so a step rerun after a crash cannot
// add a second task; only the run that inserted it announces it.
func (m *Manager) escalateCase(ctx context.Context, logger *slog.Logger, c *store.Case, attrs *listing.Attributes, reason, result string) error {
	task := &store.EscalationTask{
		CaseID:       c.ID,
		Company:      c.CompanyName,
		Phone:        c.CompanyPhone,
		PropertyName: propertyLabel(attrs, c),
		Reason:       reason,
	}
	if attrs != nil {
		task.Address = attrs.Address
	}
	task, created, err := m.store.CreateEscalationTask(ctx, task)
	if err != nil {
		return err
	}

	c.Status = store.StatusDone
	c.Result = result
	if err := m.store.UpdateCase(ctx, c); err != nil {
		return err
	}
	logger.Info("escalated to phone follow-up",
		logging.String(logging.FieldCompany, c.CompanyName),
		logging.Int64("task_id", task.ID),
		logging.String("reason", reason))
	if created {
		m.publish(ctx, notify.EventEscalation, notify.Payload{
			"property": task.PropertyName,
			"company":  c.CompanyName,
			"phone":    c.CompanyPhone,
			"reason":   reason,
		})
	}
	return nil
}

// failCase parks the case in the terminal error state. Only input problems
// land here; infrastructure trouble bubbles to the lane instead so the
// case stays claimable.
func (m *Manager) failCase(ctx context.Context, logger *slog.Logger, c *store.Case, attrs *listing.Attributes, message string) error {
	c.Status = store.StatusError
	c.ErrorMessage = message
	if err := m.store.UpdateCase(ctx, c); err != nil {
		return err
	}
	logger.Warn("case failed", logging.String("message", message))
	m.publish(ctx, notify.EventError, notify.Payload{
		"property": propertyLabel(attrs, c),
		"error":    message,
	})
	return nil
}

// publish is best effort; the notify package logs its own delivery
// failures, so the error is dropped here.
func (m *Manager) publish(ctx context.Context, event notify.Event, payload notify.Payload) {
	_ = m.notifier.Publish(ctx, event, payload)
}

// propertyLabel is the short heading used in notifications and phone
// tasks. Before a listing has been parsed only the URL identifies the
// case.
func propertyLabel(attrs *listing.Attributes, c *store.Case) string {
	if attrs != nil {
		name := strings.TrimSpace(attrs.Name)
		if name != "" {
			if unit := strings.TrimSpace(attrs.Unit); unit != "" {
				return name + " " + unit
			}
			return name
		}
	}
	return c.SourceURL
}
