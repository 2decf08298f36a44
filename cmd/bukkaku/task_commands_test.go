package main

import (
	"context"
	"testing"

	"github.com/hazuki802/bukkaku/internal/store"
	"github.com/hazuki802/bukkaku/internal/testsupport"
)

func seedPhoneTask(company, phone, reason string) func(*testing.T, *store.Store) {
	return func(t *testing.T, st *store.Store) {
		ctx := context.Background()
		c := testsupport.NewCase(t, st, "https://suumo.jp/chintai/bc_100012345678/", store.PortalSuumo)
		c.Status = store.StatusError
		c.CompanyName = company
		c.CompanyPhone = phone
		if err := st.UpdateCase(ctx, c); err != nil {
			t.Fatalf("UpdateCase: %v", err)
		}
		if _, _, err := st.CreateEscalationTask(ctx, &store.EscalationTask{
			CaseID:  c.ID,
			Company: company,
			Phone:   phone,
			Reason:  reason,
		}); err != nil {
			t.Fatalf("CreateEscalationTask: %v", err)
		}
	}
}

func TestTasksListAndCount(t *testing.T) {
	env := setupCLITestEnv(t, seedPhoneTask("有限会社みどり商事", "06-9876-5432", "担当プラットフォーム不明"))

	out, _, err := runCLI(t, []string{"tasks", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("tasks list: %v", err)
	}
	requireContains(t, out, "有限会社みどり商事")
	requireContains(t, out, "担当プラットフォーム不明")
	requireContains(t, out, "Pending")

	out, _, err = runCLI(t, []string{"tasks", "count"}, env.configPath)
	if err != nil {
		t.Fatalf("tasks count: %v", err)
	}
	requireContains(t, out, "1 pending phone tasks")
}

func TestTasksListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"tasks", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("tasks list: %v", err)
	}
	requireContains(t, out, "No phone tasks")
}

func TestTasksCompleteTeachesRouting(t *testing.T) {
	env := setupCLITestEnv(t, seedPhoneTask("株式会社コスモ不動産", "045-123-4567", "プラットフォームに掲載なし"))

	out, _, err := runCLI(t, []string{"tasks", "complete", "1", "--note", "電話確認済み"}, env.configPath)
	if err != nil {
		t.Fatalf("tasks complete: %v", err)
	}
	requireContains(t, out, "Task 1 completed")
	requireContains(t, out, "株式会社コスモ不動産 will escalate to a phone call on future checks")

	manual, err := env.store.CompanyRequiresManual(context.Background(), "株式会社コスモ不動産")
	if err != nil {
		t.Fatalf("CompanyRequiresManual: %v", err)
	}
	if !manual {
		t.Fatal("expected completed task to flag the company for manual verification")
	}
}

func TestTasksCancel(t *testing.T) {
	env := setupCLITestEnv(t, seedPhoneTask("有限会社みどり商事", "06-9876-5432", "自動確認エラー"))

	out, _, err := runCLI(t, []string{"tasks", "cancel", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("tasks cancel: %v", err)
	}
	requireContains(t, out, "Task 1 cancelled")

	out, _, err = runCLI(t, []string{"tasks", "count"}, env.configPath)
	if err != nil {
		t.Fatalf("tasks count: %v", err)
	}
	requireContains(t, out, "0 pending phone tasks")
}

func TestTasksResolveMissing(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"tasks", "complete", "77"}, env.configPath)
	if err != nil {
		t.Fatalf("tasks complete: %v", err)
	}
	requireContains(t, out, "Task 77 not found")
}
