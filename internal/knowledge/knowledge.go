// Package knowledge maintains the learned mapping from management companies
// to the platform that answers vacancy queries for them. Every resolved case
// reinforces the mapping; a company a human had to phone gets flagged so the
// next case skips the doomed automated attempt entirely.
package knowledge

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/store"
)

// lookupPrefixRunes bounds the prefix used for fuzzy company lookup. Four
// runes is enough to get past the 株式会社/有限会社 prefix drift without
// matching unrelated companies.
const lookupPrefixRunes = 4

type Accessor struct {
	store  *store.Store
	logger *slog.Logger
}

func New(st *store.Store, logger *slog.Logger) *Accessor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Accessor{
		store:  st,
		logger: logging.NewComponentLogger(logger, "knowledge"),
	}
}

// LookupPlatform returns the platform learned for a company, preferring the
// most used exact row and falling back to a prefix match that tolerates
// punctuation and spacing drift in scraped contact strings. Rows flagged
// requires-manual never resolve to a platform.
func (a *Accessor) LookupPlatform(ctx context.Context, company string) (store.Platform, bool, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return "", false, nil
	}

	entries, err := a.store.KnowledgeByCompany(ctx, company)
	if err != nil {
		return "", false, err
	}
	if platform, ok := usablePlatform(entries); ok {
		return platform, true, nil
	}

	prefix := runePrefix(company, lookupPrefixRunes)
	entries, err = a.store.KnowledgeByCompanyPrefix(ctx, prefix)
	if err != nil {
		return "", false, err
	}
	if platform, ok := usablePlatform(entries); ok {
		a.logger.Info("platform resolved by prefix",
			logging.String(logging.FieldCompany, company),
			logging.String("prefix", prefix),
			logging.String(logging.FieldPlatform, string(platform)))
		return platform, true, nil
	}
	return "", false, nil
}

// RecordUsage reinforces a (company, platform) pairing after a resolved
// check or an explicit manual choice.
func (a *Accessor) RecordUsage(ctx context.Context, company, phone string, platform store.Platform) error {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil
	}
	if err := a.store.RecordKnowledgeUsage(ctx, company, strings.TrimSpace(phone), platform); err != nil {
		return err
	}
	a.logger.Debug("recorded platform usage",
		logging.String(logging.FieldCompany, company),
		logging.String(logging.FieldPlatform, string(platform)))
	return nil
}

// MarkRequiresManual flags a company so future cases escalate straight to a
// phone task. Idempotent.
func (a *Accessor) MarkRequiresManual(ctx context.Context, company, phone string) error {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil
	}
	if err := a.store.SetKnowledgeRequiresManual(ctx, company, strings.TrimSpace(phone)); err != nil {
		return err
	}
	a.logger.Info("company flagged requires manual", logging.String(logging.FieldCompany, company))
	return nil
}

// RequiresManual reports whether the company has been learned to need a
// human phone call.
func (a *Accessor) RequiresManual(ctx context.Context, company string) (bool, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return false, nil
	}
	return a.store.CompanyRequiresManual(ctx, company)
}

// usablePlatform picks the first routable entry. Entries are already ordered
// most used first; placeholder and requires-manual rows are skipped.
func usablePlatform(entries []*store.KnowledgeEntry) (store.Platform, bool) {
	for _, entry := range entries {
		if entry.RequiresManual {
			continue
		}
		platform, ok := store.ParsePlatform(string(entry.Platform))
		if !ok {
			continue
		}
		return platform, true
	}
	return "", false
}

func runePrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
