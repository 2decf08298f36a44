package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hazuki802/bukkaku/internal/store"
	"github.com/hazuki802/bukkaku/internal/testsupport"
)

func TestCheckSubmitShowList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check", "submit", "https://suumo.jp/chintai/bc_100012345678/"}, env.configPath)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Check 1 queued (suumo)")
	requireContains(t, out, "bukkaku check show 1")

	// With an empty inventory the pipeline closes the case as not found.
	waitFor(t, 10*time.Second, func() bool {
		c, err := env.store.GetCase(context.Background(), 1)
		return err == nil && c != nil && c.Status == store.StatusNotFound
	})

	out, _, err = runCLI(t, []string{"check", "show", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Check 1")
	requireContains(t, out, "suumo.jp")
	requireContains(t, out, "Not Found")
	requireContains(t, out, "確認不可")

	out, _, err = runCLI(t, []string{"check", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "テストマンション")
	requireContains(t, out, "suumo")
}

func TestCheckSubmitRejectsUnsupportedURL(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"check", "submit", "https://example.com/room/1"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unsupported portal")
	}
	if !strings.Contains(err.Error(), "unsupported portal") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckShowMissing(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check", "show", "42"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Check 42 not found")
}

func TestCheckListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No checks yet")
}

func TestCheckPlatformChoice(t *testing.T) {
	env := setupCLITestEnv(t, func(t *testing.T, st *store.Store) {
		c := testsupport.NewCase(t, st, "https://suumo.jp/chintai/bc_100012345679/", store.PortalSuumo)
		c.Status = store.StatusAwaitingChoice
		c.CompanyName = "株式会社コスモ不動産"
		c.CompanyPhone = "045-123-4567"
		if err := st.UpdateCase(context.Background(), c); err != nil {
			t.Fatalf("UpdateCase: %v", err)
		}
	})

	out, _, err := runCLI(t, []string{"check", "platform", "1", "itandi"}, env.configPath)
	if err != nil {
		t.Fatalf("platform: %v", err)
	}
	requireContains(t, out, "Check 1 resumed on itandi")
	requireContains(t, out, "Remembered itandi for 株式会社コスモ不動産")

	_, _, err = runCLI(t, []string{"check", "platform", "1", "minikura"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestCheckPlatformForget(t *testing.T) {
	env := setupCLITestEnv(t, func(t *testing.T, st *store.Store) {
		c := testsupport.NewCase(t, st, "https://www.homes.co.jp/chintai/room/2f3a9c81d7/", store.PortalHomes)
		c.Status = store.StatusAwaitingChoice
		c.CompanyName = "有限会社みどり商事"
		if err := st.UpdateCase(context.Background(), c); err != nil {
			t.Fatalf("UpdateCase: %v", err)
		}
	})

	out, _, err := runCLI(t, []string{"check", "platform", "1", "ielove", "--forget"}, env.configPath)
	if err != nil {
		t.Fatalf("platform --forget: %v", err)
	}
	requireContains(t, out, "Check 1 resumed on ielove")
	if strings.Contains(out, "Remembered") {
		t.Fatalf("expected no remember line, got:\n%s", out)
	}

	entries, err := env.store.KnowledgeByCompany(context.Background(), "有限会社みどり商事")
	if err != nil {
		t.Fatalf("KnowledgeByCompany: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no remembered route, got %+v", entries)
	}
}
