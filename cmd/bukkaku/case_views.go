package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hazuki802/bukkaku/internal/api"
)

func buildCaseStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildCheckListRows(checks []api.CheckSummary) [][]string {
	if len(checks) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(checks))
	for _, check := range checks {
		name := strings.TrimSpace(check.PropertyName)
		if name == "" {
			name = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", check.ID),
			name,
			check.Portal,
			formatStatusLabel(check.Status),
			check.Result,
			formatStatusLabel(check.Platform),
			formatDisplayTime(check.CreatedAt),
		})
	}
	return rows
}

func buildKnowledgeRows(entries []api.KnowledgeItem) [][]string {
	if len(entries) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", entry.ID),
			entry.Company,
			entry.Phone,
			formatStatusLabel(entry.Platform),
			fmt.Sprintf("%d", entry.UseCount),
			yesNo(entry.RequiresManual),
			formatDisplayTime(entry.LastUsedAt),
		})
	}
	return rows
}

func buildTaskRows(tasks []api.PhoneTask) [][]string {
	if len(tasks) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, []string{
			fmt.Sprintf("%d", task.ID),
			fmt.Sprintf("%d", task.CaseID),
			task.Company,
			task.Phone,
			task.Reason,
			formatStatusLabel(task.Status),
			formatDisplayTime(task.CreatedAt),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}
