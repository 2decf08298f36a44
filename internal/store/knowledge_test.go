package store_test

import (
	"context"
	"testing"

	"github.com/hazuki802/bukkaku/internal/store"
	"github.com/hazuki802/bukkaku/internal/testsupport"
)

func TestRecordKnowledgeUsageUpserts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := st.RecordKnowledgeUsage(ctx, "青葉不動産株式会社", "045-123-4567", store.PlatformItandi); err != nil {
			t.Fatalf("RecordKnowledgeUsage: %v", err)
		}
	}

	entries, err := st.KnowledgeByCompany(ctx, "青葉不動産株式会社")
	if err != nil {
		t.Fatalf("KnowledgeByCompany: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected single upserted row, got %d", len(entries))
	}
	entry := entries[0]
	if entry.UseCount != 3 {
		t.Fatalf("use_count = %d, want 3", entry.UseCount)
	}
	if entry.Platform != store.PlatformItandi {
		t.Fatalf("platform = %s", entry.Platform)
	}
	if entry.LastUsedAt == nil {
		t.Fatal("last_used_at should be set")
	}
	if entry.RequiresManual {
		t.Fatal("usage rows start without the manual flag")
	}
}

func TestKnowledgeUsageKeepsPhoneWhenEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.RecordKnowledgeUsage(ctx, "桜ハウジング", "03-1111-2222", store.PlatformIelove); err != nil {
		t.Fatalf("first usage: %v", err)
	}
	if err := st.RecordKnowledgeUsage(ctx, "桜ハウジング", "", store.PlatformIelove); err != nil {
		t.Fatalf("second usage: %v", err)
	}

	entries, err := st.KnowledgeByCompany(ctx, "桜ハウジング")
	if err != nil {
		t.Fatalf("KnowledgeByCompany: %v", err)
	}
	if len(entries) != 1 || entries[0].Phone != "03-1111-2222" {
		t.Fatalf("expected phone preserved, got %#v", entries)
	}
}

func TestKnowledgeByCompanyOrdersByUsage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.RecordKnowledgeUsage(ctx, "港北エステート", "", store.PlatformIelove); err != nil {
		t.Fatalf("usage ielove: %v", err)
	}
	for i := 0; i < 4; i++ {
		if err := st.RecordKnowledgeUsage(ctx, "港北エステート", "", store.PlatformItandi); err != nil {
			t.Fatalf("usage itandi: %v", err)
		}
	}

	entries, err := st.KnowledgeByCompany(ctx, "港北エステート")
	if err != nil {
		t.Fatalf("KnowledgeByCompany: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 platform rows, got %d", len(entries))
	}
	if entries[0].Platform != store.PlatformItandi || entries[0].UseCount != 4 {
		t.Fatalf("expected most-used platform first, got %#v", entries[0])
	}
}

func TestKnowledgeByCompanyPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.RecordKnowledgeUsage(ctx, "青葉不動産株式会社", "", store.PlatformItandi); err != nil {
		t.Fatalf("usage: %v", err)
	}
	if err := st.RecordKnowledgeUsage(ctx, "青葉ハウス", "", store.PlatformEsSquare); err != nil {
		t.Fatalf("usage: %v", err)
	}
	if err := st.RecordKnowledgeUsage(ctx, "渋谷商事", "", store.PlatformIelove); err != nil {
		t.Fatalf("usage: %v", err)
	}

	entries, err := st.KnowledgeByCompanyPrefix(ctx, "青葉")
	if err != nil {
		t.Fatalf("KnowledgeByCompanyPrefix: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 prefix rows, got %d", len(entries))
	}

	none, err := st.KnowledgeByCompanyPrefix(ctx, "")
	if err != nil {
		t.Fatalf("empty prefix: %v", err)
	}
	if none != nil {
		t.Fatal("empty prefix must not scan")
	}
}

func TestSetKnowledgeRequiresManual(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	// Flags every existing platform row and survives repeats.
	if err := st.RecordKnowledgeUsage(ctx, "渋谷商事", "03-0000-9999", store.PlatformItandi); err != nil {
		t.Fatalf("usage: %v", err)
	}
	if err := st.RecordKnowledgeUsage(ctx, "渋谷商事", "", store.PlatformIelove); err != nil {
		t.Fatalf("usage: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := st.SetKnowledgeRequiresManual(ctx, "渋谷商事", "03-0000-9999"); err != nil {
			t.Fatalf("SetKnowledgeRequiresManual: %v", err)
		}
	}

	manual, err := st.CompanyRequiresManual(ctx, "渋谷商事")
	if err != nil {
		t.Fatalf("CompanyRequiresManual: %v", err)
	}
	if !manual {
		t.Fatal("expected requires_manual after flagging")
	}

	entries, err := st.KnowledgeByCompany(ctx, "渋谷商事")
	if err != nil {
		t.Fatalf("KnowledgeByCompany: %v", err)
	}
	for _, entry := range entries {
		if !entry.RequiresManual {
			t.Fatalf("row %s not flagged", entry.Platform)
		}
	}

	// A company with no prior rows gets a placeholder row.
	if err := st.SetKnowledgeRequiresManual(ctx, "無名商会", "03-5555-0000"); err != nil {
		t.Fatalf("flag unknown company: %v", err)
	}
	manual, err = st.CompanyRequiresManual(ctx, "無名商会")
	if err != nil {
		t.Fatalf("CompanyRequiresManual: %v", err)
	}
	if !manual {
		t.Fatal("expected placeholder row flagged")
	}

	manual, err = st.CompanyRequiresManual(ctx, "青葉不動産株式会社")
	if err != nil {
		t.Fatalf("CompanyRequiresManual other: %v", err)
	}
	if manual {
		t.Fatal("unrelated company must not be flagged")
	}
}

func TestKnowledgeCRUD(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	entry, err := st.AddKnowledge(ctx, &store.KnowledgeEntry{
		Company:  "港北エステート",
		Phone:    "045-987-6543",
		Platform: store.PlatformEsSquare,
	})
	if err != nil {
		t.Fatalf("AddKnowledge: %v", err)
	}
	if entry.ID == 0 {
		t.Fatal("expected id assigned")
	}

	entry.Platform = store.PlatformItandi
	entry.RequiresManual = true
	if err := st.UpdateKnowledge(ctx, entry); err != nil {
		t.Fatalf("UpdateKnowledge: %v", err)
	}

	fetched, err := st.GetKnowledge(ctx, entry.ID)
	if err != nil {
		t.Fatalf("GetKnowledge: %v", err)
	}
	if fetched.Platform != store.PlatformItandi || !fetched.RequiresManual {
		t.Fatalf("update not persisted: %#v", fetched)
	}

	all, err := st.ListKnowledge(ctx)
	if err != nil {
		t.Fatalf("ListKnowledge: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(all))
	}

	removed, err := st.DeleteKnowledge(ctx, entry.ID)
	if err != nil {
		t.Fatalf("DeleteKnowledge: %v", err)
	}
	if !removed {
		t.Fatal("expected delete to report removal")
	}
	if removed, _ := st.DeleteKnowledge(ctx, entry.ID); removed {
		t.Fatal("second delete should be a no-op")
	}
}
