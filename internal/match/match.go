// Package match links a listing parsed from a consumer portal to one row of
// the trade-exchange inventory. Both sides are noisy free text scraped from
// different systems, so matching runs priority-ordered strategies from most
// to least selective and stops at the first confident hit. A miss is a
// legitimate answer, not an error. A wrong match is far worse than no match,
// since the verdict would be reported for somebody else's unit.
package match

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/jptext"
	"github.com/hazuki802/bukkaku/internal/listing"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/store"
)

// Fallback scoring weights. The similar-district similarity floor lives here
// rather than in configuration because it only shapes a partial score, not an
// accept/reject decision.
const (
	weightName            = 50.0
	weightDistrictExact   = 25.0
	weightDistrictSimilar = 15.0
	weightArea            = 10.0
	weightBuildYear       = 10.0

	similarDistrictFloor = 0.8

	candidatePrefixRunes = 4
)

type Matcher struct {
	store  *store.Store
	cfg    config.Matcher
	logger *slog.Logger
}

func New(st *store.Store, cfg *config.Config, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Matcher{
		store:  st,
		cfg:    cfg.Matcher,
		logger: logging.NewComponentLogger(logger, "match"),
	}
}

// target holds the normalized comparison key of the listing being matched.
type target struct {
	rawName   string
	name      string
	district  string
	area      float64
	buildYear int
}

// indexed pairs an inventory row with its precomputed comparison key.
type indexed struct {
	rec       *store.InventoryRecord
	name      string
	district  string
	buildYear int
}

// Match returns the one active inventory row the listing refers to, or
// (nil, nil) when no strategy reaches its confidence threshold. Errors are
// store I/O only; malformed listing text never fails a match.
func (m *Matcher) Match(ctx context.Context, attrs *listing.Attributes) (*store.InventoryRecord, error) {
	if attrs == nil {
		return nil, nil
	}
	now := time.Now()
	tgt := newTarget(attrs, now)

	records, err := m.store.ActiveInventoryRecords(ctx)
	if err != nil {
		return nil, err
	}
	rows := indexRecords(records, now)

	if rec := m.matchByName(tgt, rows); rec != nil {
		m.logger.Info("matched by name",
			logging.Int64("record_id", rec.ID),
			logging.String("name", rec.Name))
		return rec, nil
	}
	if rec := m.matchByDistrict(tgt, rows); rec != nil {
		m.logger.Info("matched by district and area",
			logging.Int64("record_id", rec.ID),
			logging.String("name", rec.Name),
			logging.String("district", tgt.district))
		return rec, nil
	}
	rec, err := m.matchByScore(ctx, tgt, now)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		m.logger.Info("matched by fallback score",
			logging.Int64("record_id", rec.ID),
			logging.String("name", rec.Name))
		return rec, nil
	}
	m.logger.Info("no inventory match",
		logging.String("name", tgt.rawName),
		logging.String("district", tgt.district))
	return nil, nil
}

func newTarget(attrs *listing.Attributes, now time.Time) target {
	tgt := target{
		rawName:   strings.TrimSpace(attrs.Name),
		name:      NormalizeName(attrs.Name),
		district:  NormalizeDistrict(attrs.Address),
		area:      attrs.Area,
		buildYear: attrs.BuildYear,
	}
	if tgt.buildYear == 0 && attrs.BuiltText != "" {
		if year, ok := listing.ParseBuildYear(attrs.BuiltText, now); ok {
			tgt.buildYear = year
		}
	}
	return tgt
}

func indexRecords(records []*store.InventoryRecord, now time.Time) []indexed {
	rows := make([]indexed, 0, len(records))
	for _, rec := range records {
		row := indexed{
			rec:      rec,
			name:     NormalizeName(rec.Name),
			district: NormalizeDistrict(rec.Address),
		}
		if year, ok := listing.ParseBuildYear(rec.Built, now); ok {
			row.buildYear = year
		}
		rows = append(rows, row)
	}
	return rows
}

// matchByName runs the most selective strategy. An exact normalized name
// wins outright; otherwise bigram similarity, then a containment heuristic
// for names one source truncates or decorates.
func (m *Matcher) matchByName(tgt target, rows []indexed) *store.InventoryRecord {
	if tgt.name == "" {
		return nil
	}
	for _, row := range rows {
		if row.name != "" && row.name == tgt.name {
			return row.rec
		}
	}

	var best *store.InventoryRecord
	bestSim := 0.0
	for _, row := range rows {
		if row.name == "" {
			continue
		}
		sim := jptext.Similarity(tgt.name, row.name)
		if sim >= m.cfg.NameSimilarity && sim > bestSim {
			best = row.rec
			bestSim = sim
		}
	}
	if best != nil {
		return best
	}

	bestScore := 0.0
	for _, row := range rows {
		score := containmentScore(tgt.name, row.name)
		if score >= m.cfg.ContainmentScore && score > bestScore {
			best = row.rec
			bestScore = score
		}
	}
	return best
}

// containmentScore scores one name containing the other, scaled by length
// ratio so "コーポ青葉" inside "コーポ青葉第2ビル" counts more than inside a
// much longer string. Names shorter than four runes are too ambiguous to
// trust containment at all.
func containmentScore(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) < 4 || len(rb) < 4 {
		return 0
	}
	short, long := a, b
	if len(ra) > len(rb) {
		short, long = b, a
	}
	if !strings.Contains(long, short) {
		return 0
	}
	return float64(len([]rune(short))) / float64(len([]rune(long)))
}

// matchByDistrict accepts a row when district and area together pin down
// exactly one unit. Survivor ties fall back to build-year proximity, then
// closest area.
func (m *Matcher) matchByDistrict(tgt target, rows []indexed) *store.InventoryRecord {
	if tgt.district == "" || tgt.area <= 0 {
		return nil
	}
	var survivors []indexed
	for _, row := range rows {
		if row.district != tgt.district || row.rec.Area <= 0 {
			continue
		}
		if math.Abs(row.rec.Area-tgt.area) <= m.cfg.AreaTolerance {
			survivors = append(survivors, row)
		}
	}
	switch len(survivors) {
	case 0:
		return nil
	case 1:
		return survivors[0].rec
	}

	if tgt.buildYear > 0 {
		var close []indexed
		for _, row := range survivors {
			if row.buildYear > 0 && abs(row.buildYear-tgt.buildYear) <= m.cfg.BuildYearTolerance {
				close = append(close, row)
			}
		}
		if len(close) == 1 {
			return close[0].rec
		}
		if len(close) > 1 {
			survivors = close
		}
	}

	best := survivors[0]
	bestDiff := math.Abs(best.rec.Area - tgt.area)
	for _, row := range survivors[1:] {
		if diff := math.Abs(row.rec.Area - tgt.area); diff < bestDiff {
			best = row
			bestDiff = diff
		}
	}
	return best.rec
}

// matchByScore is the conservative weighted fallback. Candidates come from a
// name-prefix or district-substring filter in SQL, never a full table walk,
// and the top scorer is accepted only above the fallback threshold.
func (m *Matcher) matchByScore(ctx context.Context, tgt target, now time.Time) (*store.InventoryRecord, error) {
	prefix := runePrefix(tgt.rawName, candidatePrefixRunes)
	locality := districtLocality(tgt.district)
	records, err := m.store.CandidateInventoryRecords(ctx, prefix, locality)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	var best *store.InventoryRecord
	bestScore := 0.0
	for _, row := range indexRecords(records, now) {
		score := m.scoreCandidate(tgt, row)
		if score > bestScore {
			best = row.rec
			bestScore = score
		}
	}
	if bestScore < m.cfg.FallbackThreshold {
		return nil, nil
	}
	return best, nil
}

func (m *Matcher) scoreCandidate(tgt target, row indexed) float64 {
	score := 0.0
	if tgt.name != "" && row.name != "" {
		score += weightName * jptext.Similarity(tgt.name, row.name)
	}
	if tgt.district != "" && row.district != "" {
		switch {
		case tgt.district == row.district:
			score += weightDistrictExact
		case jptext.Similarity(tgt.district, row.district) >= similarDistrictFloor:
			score += weightDistrictSimilar
		}
	}
	if tgt.area > 0 && row.rec.Area > 0 && math.Abs(tgt.area-row.rec.Area) <= m.cfg.AreaTolerance {
		score += weightArea
	}
	if tgt.buildYear > 0 && row.buildYear > 0 && abs(tgt.buildYear-row.buildYear) <= m.cfg.BuildYearTolerance {
		score += weightBuildYear
	}
	return score
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
