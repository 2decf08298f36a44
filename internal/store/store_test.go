package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hazuki802/bukkaku/internal/store"
	"github.com/hazuki802/bukkaku/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := st.NewCase(ctx, "https://suumo.jp/chintai/jnc_000012345678/", store.PortalSuumo)
	if err != nil {
		t.Fatalf("NewCase failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected case ID to be assigned")
	}
	if item.Status != store.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}

	fetched, err := st.GetCase(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetCase failed: %v", err)
	}
	if fetched == nil || fetched.SourceURL != item.SourceURL || fetched.Portal != store.PortalSuumo {
		t.Fatalf("unexpected fetched case: %#v", fetched)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.NewCase(t, st, "https://suumo.jp/x", store.PortalSuumo)

	// Reopening the same database must not reapply migrations.
	reopened, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	items, err := reopened.ListCases(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListCases: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 case after reopen, got %d", len(items))
	}
}

func TestGetCaseMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	item, err := st.GetCase(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil for missing case, got %#v", item)
	}
}

func TestUpdateCasePersistsFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.NewCase(t, st, "https://www.homes.co.jp/chintai/b-1234560000123/", store.PortalHomes)
	item.Status = store.StatusChecking
	item.ListingJSON = `{"name":"グランメゾン青葉"}`
	item.Company = "青葉不動産株式会社 045-123-4567"
	item.CompanyName = "青葉不動産株式会社"
	item.CompanyPhone = "045-123-4567"
	item.Platform = store.PlatformItandi
	item.Routing = store.RoutingAuto
	if err := st.UpdateCase(ctx, item); err != nil {
		t.Fatalf("UpdateCase: %v", err)
	}

	fetched, err := st.GetCase(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetCase: %v", err)
	}
	if fetched.Status != store.StatusChecking {
		t.Fatalf("status = %s, want checking", fetched.Status)
	}
	if fetched.CompanyName != "青葉不動産株式会社" || fetched.CompanyPhone != "045-123-4567" {
		t.Fatalf("company fields not persisted: %#v", fetched)
	}
	if fetched.Platform != store.PlatformItandi || fetched.Routing != store.RoutingAuto {
		t.Fatalf("platform fields not persisted: %#v", fetched)
	}
	if fetched.UpdatedAt.Before(fetched.CreatedAt) {
		t.Fatal("updated_at should advance")
	}
}

func TestNextCaseForStatusesClaimsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.NewCase(t, st, "https://suumo.jp/a", store.PortalSuumo)
	second := testsupport.NewCase(t, st, "https://suumo.jp/b", store.PortalSuumo)
	second.Status = store.StatusChecking
	if err := st.UpdateCase(ctx, second); err != nil {
		t.Fatalf("UpdateCase: %v", err)
	}

	item, err := st.NextCaseForStatuses(ctx, store.StatusPending, store.StatusParsing, store.StatusMatching)
	if err != nil {
		t.Fatalf("NextCaseForStatuses: %v", err)
	}
	if item == nil || item.ID != first.ID {
		t.Fatalf("expected oldest pending case %d, got %#v", first.ID, item)
	}

	item, err = st.NextCaseForStatuses(ctx, store.StatusChecking)
	if err != nil {
		t.Fatalf("NextCaseForStatuses checking: %v", err)
	}
	if item == nil || item.ID != second.ID {
		t.Fatalf("expected checking case %d, got %#v", second.ID, item)
	}

	item, err = st.NextCaseForStatuses(ctx, store.StatusAwaitingChoice)
	if err != nil {
		t.Fatalf("NextCaseForStatuses awaiting: %v", err)
	}
	if item != nil {
		t.Fatalf("expected no awaiting_choice case, got %#v", item)
	}
}

func TestListCasesNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		item := testsupport.NewCase(t, st, fmt.Sprintf("https://suumo.jp/c%d", i), store.PortalSuumo)
		last = item.ID
	}

	items, err := st.ListCases(ctx, 3)
	if err != nil {
		t.Fatalf("ListCases: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 cases, got %d", len(items))
	}
	if items[0].ID != last {
		t.Fatalf("expected newest case first, got %d want %d", items[0].ID, last)
	}
}

func TestCaseStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	statuses := []store.Status{
		store.StatusPending,
		store.StatusMatching,
		store.StatusAwaitingChoice,
		store.StatusDone,
		store.StatusDone,
		store.StatusNotFound,
		store.StatusError,
	}
	for i, status := range statuses {
		item := testsupport.NewCase(t, st, fmt.Sprintf("https://suumo.jp/s%d", i), store.PortalSuumo)
		if status == store.StatusPending {
			continue
		}
		item.Status = status
		if err := st.UpdateCase(ctx, item); err != nil {
			t.Fatalf("UpdateCase: %v", err)
		}
	}

	stats, err := st.CaseStats(ctx)
	if err != nil {
		t.Fatalf("CaseStats: %v", err)
	}
	if stats[store.StatusDone] != 2 {
		t.Fatalf("expected 2 done, got %d", stats[store.StatusDone])
	}

	health, err := st.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != len(statuses) {
		t.Fatalf("total = %d, want %d", health.Total, len(statuses))
	}
	if health.Pending != 1 || health.Processing != 1 || health.AwaitingChoice != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.Done != 2 || health.NotFound != 1 || health.Errors != 1 {
		t.Fatalf("unexpected terminal counts: %+v", health)
	}
}

func TestCheckHealthReportsDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.NewCase(t, st, "https://suumo.jp/h", store.PortalSuumo)

	health, err := st.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable {
		t.Fatalf("expected readable database: %+v", health)
	}
	if !health.IntegrityCheck {
		t.Fatalf("expected integrity check ok: %+v", health)
	}
	if health.TotalCases != 1 {
		t.Fatalf("total cases = %d, want 1", health.TotalCases)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input string
		want  store.Status
		ok    bool
	}{
		{"pending", store.StatusPending, true},
		{" Checking ", store.StatusChecking, true},
		{"AWAITING_CHOICE", store.StatusAwaitingChoice, true},
		{"not_found", store.StatusNotFound, true},
		{"bogus", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := store.ParseStatus(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("ParseStatus(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStatusTerminality(t *testing.T) {
	terminal := []store.Status{store.StatusDone, store.StatusNotFound, store.StatusError}
	for _, status := range terminal {
		if !status.IsTerminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
	for _, status := range []store.Status{store.StatusPending, store.StatusParsing, store.StatusMatching, store.StatusAwaitingChoice, store.StatusChecking} {
		if status.IsTerminal() {
			t.Fatalf("%s should not be terminal", status)
		}
	}
	for _, status := range []store.Status{store.StatusParsing, store.StatusMatching, store.StatusChecking} {
		if !store.IsProcessingStatus(status) {
			t.Fatalf("%s should be a processing status", status)
		}
	}
	if store.IsProcessingStatus(store.StatusAwaitingChoice) {
		t.Fatal("awaiting_choice is parked, not processing")
	}
}

func TestParsePlatform(t *testing.T) {
	if got, ok := store.ParsePlatform(" Itandi "); !ok || got != store.PlatformItandi {
		t.Fatalf("ParsePlatform itandi = %q, %v", got, ok)
	}
	if got, ok := store.ParsePlatform("es_square"); !ok || got != store.PlatformEsSquare {
		t.Fatalf("ParsePlatform es_square = %q, %v", got, ok)
	}
	if _, ok := store.ParsePlatform("zillow"); ok {
		t.Fatal("unknown platform should not parse")
	}
}
