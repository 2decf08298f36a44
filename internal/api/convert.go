package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hazuki802/bukkaku/internal/browser"
	"github.com/hazuki802/bukkaku/internal/listing"
	"github.com/hazuki802/bukkaku/internal/store"
	"github.com/hazuki802/bukkaku/internal/verify"
)

// FromCase converts a persisted case to its API representation.
func FromCase(c *store.Case) Check {
	if c == nil {
		return Check{}
	}

	dto := Check{
		ID:           c.ID,
		SourceURL:    c.SourceURL,
		Portal:       string(c.Portal),
		Status:       string(c.Status),
		Result:       c.Result,
		ErrorMessage: c.ErrorMessage,
		Company:      c.Company,
		CompanyName:  c.CompanyName,
		CompanyPhone: c.CompanyPhone,
		Platform:     string(c.Platform),
		Routing:      string(c.Routing),
		CreatedAt:    formatTime(c.CreatedAt),
		UpdatedAt:    formatTime(c.UpdatedAt),
	}
	if raw := c.ListingJSON; raw != "" {
		dto.Listing = json.RawMessage(raw)
		dto.PropertyName = propertyName(raw)
	}
	return dto
}

// FromCases converts case records into compact list rows.
func FromCases(cases []*store.Case) []CheckSummary {
	if len(cases) == 0 {
		return nil
	}
	out := make([]CheckSummary, 0, len(cases))
	for _, c := range cases {
		out = append(out, CheckSummary{
			ID:           c.ID,
			PropertyName: propertyName(c.ListingJSON),
			Portal:       string(c.Portal),
			Status:       string(c.Status),
			Result:       c.Result,
			Platform:     string(c.Platform),
			CreatedAt:    formatTime(c.CreatedAt),
		})
	}
	return out
}

// FromKnowledgeEntry converts a routing knowledge row to its API payload.
func FromKnowledgeEntry(entry *store.KnowledgeEntry) KnowledgeItem {
	if entry == nil {
		return KnowledgeItem{}
	}
	return KnowledgeItem{
		ID:             entry.ID,
		Company:        entry.Company,
		Phone:          entry.Phone,
		Platform:       string(entry.Platform),
		UseCount:       entry.UseCount,
		RequiresManual: entry.RequiresManual,
		LastUsedAt:     formatTimePtr(entry.LastUsedAt),
		CreatedAt:      formatTime(entry.CreatedAt),
	}
}

// FromKnowledgeEntries converts a slice of knowledge rows into API DTOs.
func FromKnowledgeEntries(entries []*store.KnowledgeEntry) []KnowledgeItem {
	if len(entries) == 0 {
		return nil
	}
	out := make([]KnowledgeItem, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromKnowledgeEntry(entry))
	}
	return out
}

// FromEscalationTask converts a phone task to its API payload.
func FromEscalationTask(task *store.EscalationTask) PhoneTask {
	if task == nil {
		return PhoneTask{}
	}
	return PhoneTask{
		ID:           task.ID,
		CaseID:       task.CaseID,
		Company:      task.Company,
		Phone:        task.Phone,
		PropertyName: task.PropertyName,
		Address:      task.Address,
		Reason:       task.Reason,
		Status:       string(task.Status),
		Note:         task.Note,
		CompletedAt:  formatTimePtr(task.CompletedAt),
		CreatedAt:    formatTime(task.CreatedAt),
	}
}

// FromEscalationTasks converts a slice of phone tasks into API DTOs.
func FromEscalationTasks(tasks []*store.EscalationTask) []PhoneTask {
	if len(tasks) == 0 {
		return nil
	}
	out := make([]PhoneTask, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, FromEscalationTask(task))
	}
	return out
}

// FromOrchestratorSummary converts an orchestrator summary to API payload.
func FromOrchestratorSummary(summary verify.StatusSummary) OrchestratorStatus {
	stats := make(map[string]int, len(summary.CaseStats))
	for status, count := range summary.CaseStats {
		stats[string(status)] = count
	}

	out := OrchestratorStatus{
		Running:   summary.Running,
		Lanes:     summary.Lanes,
		CaseStats: stats,
	}
	if summary.LastError != "" {
		out.LastError = summary.LastError
	}
	if summary.LastCase != nil {
		last := FromCase(summary.LastCase)
		out.LastCase = &last
	}
	return out
}

// FromSessionInfos converts browser session snapshots into API DTOs.
func FromSessionInfos(infos []browser.SessionInfo) []SessionStatus {
	if len(infos) == 0 {
		return nil
	}
	out := make([]SessionStatus, 0, len(infos))
	for _, info := range infos {
		out = append(out, SessionStatus{
			Platform:    string(info.Platform),
			State:       info.State,
			LoggedInAt:  formatTime(info.LoggedInAt),
			LastChecked: formatTime(info.LastChecked),
			Failures:    info.Failures,
		})
	}
	return out
}

// FromInventorySummary converts inventory counts to API payload.
func FromInventorySummary(summary store.InventorySummary) InventoryStatus {
	return InventoryStatus{
		Total:      summary.Total,
		Active:     summary.Active,
		Ended:      summary.Ended,
		LastSeenAt: formatTimePtr(summary.LastSeenAt),
	}
}

// propertyName extracts a display label from persisted listing attributes.
func propertyName(raw string) string {
	attrs, err := listing.Decode(raw)
	if err != nil {
		return ""
	}
	name := strings.TrimSpace(attrs.Name)
	if name == "" {
		return ""
	}
	if unit := strings.TrimSpace(attrs.Unit); unit != "" {
		name += " " + unit
	}
	return name
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
