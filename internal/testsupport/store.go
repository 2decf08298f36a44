package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewCase creates a pending verification case for tests.
func NewCase(t testing.TB, st *store.Store, url string, portal store.Portal) *store.Case {
	t.Helper()

	item, err := st.NewCase(context.Background(), url, portal)
	if err != nil {
		t.Fatalf("store.NewCase: %v", err)
	}
	return item
}

// SeedInventory upserts the provided records as seen now.
func SeedInventory(t testing.TB, st *store.Store, records ...*store.InventoryRecord) {
	t.Helper()

	now := time.Now().UTC()
	for _, rec := range records {
		if err := st.UpsertInventoryRecord(context.Background(), rec, now); err != nil {
			t.Fatalf("store.UpsertInventoryRecord(%s): %v", rec.Name, err)
		}
	}
}
