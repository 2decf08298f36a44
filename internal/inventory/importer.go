// Package inventory keeps the trade-exchange snapshot that the matcher
// searches. An external crawler, configured as a command line, prints its
// results as a JSON array on stdout; the importer loads every record into
// the store and retires rows the run no longer mentions, so a full crawl
// doubles as the expiry sweep. The scheduler runs the crawler at fixed
// wall-clock times.
package inventory

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/listing"
	"github.com/hazuki802/bukkaku/internal/logging"
	"github.com/hazuki802/bukkaku/internal/services"
	"github.com/hazuki802/bukkaku/internal/store"
)

// crawlRecord mirrors one element of the crawler's JSON output. The keys are
// the crawl file's own; numeric fields arrive as display text ("7.8万円",
// "40.5m²") and are normalized here. Unknown keys are ignored.
type crawlRecord struct {
	Name    string `json:"名前"`
	Unit    string `json:"号室"`
	Rent    string `json:"賃料"`
	Layout  string `json:"間取り"`
	Area    string `json:"専有面積"`
	Address string `json:"所在地"`
	Built   string `json:"築年月"`
	Company string `json:"管理会社情報"`
	Region  string `json:"抽出県"`
}

// ImportResult reports what one crawl import did.
type ImportResult struct {
	Imported int
	Skipped  int
	Ended    int64
}

// Importer reconciles the inventory table with crawl output.
type Importer struct {
	store  *store.Store
	logger *slog.Logger
	region string
}

// NewImporter returns an importer writing to st. Records that carry no
// prefecture of their own are filed under the configured default region.
func NewImporter(cfg *config.Config, st *store.Store, logger *slog.Logger) *Importer {
	return &Importer{
		store:  st,
		logger: logging.NewComponentLogger(logger, "inventory"),
		region: cfg.Inventory.Region,
	}
}

// Import decodes one crawl result and reconciles the store with it: every
// decoded record is upserted under a shared sighting time, then active rows
// the run did not mention are marked ended. Records without a name are
// counted as skipped; they cannot be keyed or matched.
func (i *Importer) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var records []crawlRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return ImportResult{}, services.Wrap(services.ErrValidation, "inventory", "import", "decode crawl output", err)
	}

	seenAt := time.Now()
	result := ImportResult{}
	for idx := range records {
		rec := buildRecord(&records[idx], i.region)
		if rec == nil {
			result.Skipped++
			continue
		}
		if err := i.store.UpsertInventoryRecord(ctx, rec, seenAt); err != nil {
			return result, services.Wrap(services.ErrTransient, "inventory", "import", "upsert record", err)
		}
		result.Imported++
	}

	// Rows upserted this run carry last_seen_at == seenAt and survive the
	// cutoff; anything older was absent from the crawl and has left the
	// exchange.
	ended, err := i.store.MarkInventoryEndedBefore(ctx, seenAt)
	if err != nil {
		return result, services.Wrap(services.ErrTransient, "inventory", "import", "retire unseen records", err)
	}
	result.Ended = ended

	i.logger.Info("inventory imported",
		logging.Int("imported", result.Imported),
		logging.Int("skipped", result.Skipped),
		logging.Int64("ended", result.Ended),
	)
	return result, nil
}

// ImportFile loads a crawl result saved to disk, for manual refreshes.
func (i *Importer) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, services.Wrap(services.ErrValidation, "inventory", "import", "open crawl file", err)
	}
	defer f.Close()
	return i.Import(ctx, f)
}

func buildRecord(raw *crawlRecord, defaultRegion string) *store.InventoryRecord {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return nil
	}

	rec := &store.InventoryRecord{
		Name:    name,
		Unit:    strings.TrimSpace(raw.Unit),
		Address: strings.TrimSpace(raw.Address),
		Layout:  strings.TrimSpace(raw.Layout),
		Built:   strings.TrimSpace(raw.Built),
		Company: strings.TrimSpace(raw.Company),
		Region:  strings.TrimSpace(raw.Region),
	}
	if rec.Region == "" {
		rec.Region = defaultRegion
	}
	if rent, ok := listing.ParseRent(raw.Rent); ok {
		rec.Rent = rent
	}
	if area, ok := listing.ParseArea(raw.Area); ok {
		rec.Area = area
	}
	return rec
}
