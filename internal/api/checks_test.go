package api

import (
	"context"
	"errors"
	"testing"

	"github.com/hazuki802/bukkaku/internal/store"
)

type mockCaseReader struct {
	cases     []*store.Case
	err       error
	lastLimit int
}

func (m *mockCaseReader) ListCases(_ context.Context, limit int) ([]*store.Case, error) {
	m.lastLimit = limit
	return m.cases, m.err
}

func (m *mockCaseReader) GetCase(_ context.Context, id int64) (*store.Case, error) {
	for _, c := range m.cases {
		if c.ID == id {
			return c, m.err
		}
	}
	return nil, m.err
}

func TestCheckService_List(t *testing.T) {
	reader := &mockCaseReader{cases: []*store.Case{
		{ID: 2, Portal: store.PortalSuumo, Status: store.StatusPending},
		{ID: 1, Portal: store.PortalHomes, Status: store.StatusDone, Result: "募集中"},
	}}
	svc := NewCheckService(reader)

	got, err := svc.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unexpected row count: %d", len(got))
	}
	if reader.lastLimit != defaultListLimit {
		t.Fatalf("default limit not applied: %d", reader.lastLimit)
	}
	if got[1].Result != "募集中" {
		t.Fatalf("unexpected result: %q", got[1].Result)
	}

	if _, err := svc.List(context.Background(), 5); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if reader.lastLimit != 5 {
		t.Fatalf("explicit limit not passed through: %d", reader.lastLimit)
	}
}

func TestCheckService_ListError(t *testing.T) {
	errSentinel := errors.New("boom")
	svc := NewCheckService(&mockCaseReader{err: errSentinel})
	if _, err := svc.List(context.Background(), 0); !errors.Is(err, errSentinel) {
		t.Fatalf("expected error %v, got %v", errSentinel, err)
	}
}

func TestCheckService_Describe(t *testing.T) {
	svc := NewCheckService(&mockCaseReader{cases: []*store.Case{{ID: 7, Status: store.StatusChecking}}})

	check, err := svc.Describe(context.Background(), 7)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if check == nil || check.ID != 7 {
		t.Fatalf("unexpected check: %+v", check)
	}

	missing, err := svc.Describe(context.Background(), 99)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown id, got %+v", missing)
	}
}

func TestCheckService_NilService(t *testing.T) {
	var svc *CheckService
	if got, err := svc.List(context.Background(), 0); got != nil || err != nil {
		t.Fatalf("nil service List = %v, %v", got, err)
	}
	if NewCheckService(nil) != nil {
		t.Fatal("NewCheckService(nil) should return nil")
	}
}
