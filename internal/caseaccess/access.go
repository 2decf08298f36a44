package caseaccess

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hazuki802/bukkaku/internal/api"
	"github.com/hazuki802/bukkaku/internal/client"
	"github.com/hazuki802/bukkaku/internal/store"
)

// Access provides case, knowledge, and phone-task reads and updates
// regardless of daemon API or direct store backing. Operations that need
// the orchestrator or the browser worker (submitting checks, choosing
// platforms) are daemon-only and live on the API client instead.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	ListChecks(ctx context.Context, limit int) ([]api.CheckSummary, error)
	Describe(ctx context.Context, id int64) (*api.Check, error)
	ListKnowledge(ctx context.Context) ([]api.KnowledgeItem, error)
	SaveKnowledge(ctx context.Context, company, phone string, platform store.Platform, requiresManual bool) (*api.KnowledgeItem, error)
	DeleteKnowledge(ctx context.Context, id int64) (bool, error)
	ListTasks(ctx context.Context, status string) ([]api.PhoneTask, error)
	PendingTaskCount(ctx context.Context) (int, error)
	UpdateTask(ctx context.Context, id int64, status store.TaskStatus, note string) (*api.PhoneTask, error)
	InventoryStats(ctx context.Context) (api.InventoryStatus, error)
}

// NewClientAccess returns an Access backed by the daemon HTTP API.
func NewClientAccess(c *client.Client) Access {
	return &clientAccess{client: c}
}

// NewStoreAccess returns an Access backed by direct DB access.
func NewStoreAccess(st *store.Store) Access {
	return &storeAccess{store: st, checks: api.NewCheckService(st)}
}

type clientAccess struct {
	client *client.Client
}

func (a *clientAccess) Stats(ctx context.Context) (map[string]int, error) {
	status, err := a.client.Status(ctx)
	if err != nil {
		return nil, err
	}
	return status.Orchestrator.CaseStats, nil
}

func (a *clientAccess) ListChecks(ctx context.Context, limit int) ([]api.CheckSummary, error) {
	return a.client.ListChecks(ctx, limit)
}

func (a *clientAccess) Describe(ctx context.Context, id int64) (*api.Check, error) {
	check, err := a.client.GetCheck(ctx, id)
	if isNotFound(err) {
		return nil, nil
	}
	return check, err
}

func (a *clientAccess) ListKnowledge(ctx context.Context) ([]api.KnowledgeItem, error) {
	return a.client.ListKnowledge(ctx)
}

func (a *clientAccess) SaveKnowledge(ctx context.Context, company, phone string, platform store.Platform, requiresManual bool) (*api.KnowledgeItem, error) {
	return a.client.SaveKnowledge(ctx, company, phone, string(platform), requiresManual)
}

func (a *clientAccess) DeleteKnowledge(ctx context.Context, id int64) (bool, error) {
	err := a.client.DeleteKnowledge(ctx, id)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (a *clientAccess) ListTasks(ctx context.Context, status string) ([]api.PhoneTask, error) {
	return a.client.ListTasks(ctx, status)
}

func (a *clientAccess) PendingTaskCount(ctx context.Context) (int, error) {
	return a.client.TaskCount(ctx)
}

func (a *clientAccess) UpdateTask(ctx context.Context, id int64, status store.TaskStatus, note string) (*api.PhoneTask, error) {
	task, err := a.client.UpdateTask(ctx, id, string(status), note)
	if isNotFound(err) {
		return nil, nil
	}
	return task, err
}

func (a *clientAccess) InventoryStats(ctx context.Context) (api.InventoryStatus, error) {
	status, err := a.client.Status(ctx)
	if err != nil {
		return api.InventoryStatus{}, err
	}
	return status.Inventory, nil
}

func isNotFound(err error) bool {
	var statusErr *client.StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}

type storeAccess struct {
	store  *store.Store
	checks *api.CheckService
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := a.store.CaseStats(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out, nil
}

func (a *storeAccess) ListChecks(ctx context.Context, limit int) ([]api.CheckSummary, error) {
	return a.checks.List(ctx, limit)
}

func (a *storeAccess) Describe(ctx context.Context, id int64) (*api.Check, error) {
	return a.checks.Describe(ctx, id)
}

func (a *storeAccess) ListKnowledge(ctx context.Context) ([]api.KnowledgeItem, error) {
	entries, err := a.store.ListKnowledge(ctx)
	if err != nil {
		return nil, err
	}
	return api.FromKnowledgeEntries(entries), nil
}

func (a *storeAccess) SaveKnowledge(ctx context.Context, company, phone string, platform store.Platform, requiresManual bool) (*api.KnowledgeItem, error) {
	company = strings.TrimSpace(company)
	phone = strings.TrimSpace(phone)
	if company == "" {
		return nil, errors.New("company name is required")
	}
	if err := a.store.RecordKnowledgeUsage(ctx, company, phone, platform); err != nil {
		return nil, err
	}
	if requiresManual {
		if err := a.store.SetKnowledgeRequiresManual(ctx, company, phone); err != nil {
			return nil, err
		}
	}
	entries, err := a.store.KnowledgeByCompany(ctx, company)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.Platform == platform {
			item := api.FromKnowledgeEntry(entry)
			return &item, nil
		}
	}
	return nil, errors.New("knowledge row vanished after upsert")
}

func (a *storeAccess) DeleteKnowledge(ctx context.Context, id int64) (bool, error) {
	return a.store.DeleteKnowledge(ctx, id)
}

func (a *storeAccess) ListTasks(ctx context.Context, status string) ([]api.PhoneTask, error) {
	var filter store.TaskStatus
	if trimmed := strings.TrimSpace(status); trimmed != "" {
		parsed, ok := store.ParseTaskStatus(trimmed)
		if !ok {
			return nil, errors.New("unknown task status " + trimmed)
		}
		filter = parsed
	}
	tasks, err := a.store.ListEscalationTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	return api.FromEscalationTasks(tasks), nil
}

func (a *storeAccess) PendingTaskCount(ctx context.Context) (int, error) {
	return a.store.PendingEscalationCount(ctx)
}

func (a *storeAccess) UpdateTask(ctx context.Context, id int64, status store.TaskStatus, note string) (*api.PhoneTask, error) {
	task, err := a.store.UpdateEscalationStatus(ctx, id, status, note)
	if err != nil || task == nil {
		return nil, err
	}
	// Completed phone calls teach the routing knowledge that the company
	// needs manual verification, same as the daemon's task resolution.
	if status == store.TaskCompleted && task.Company != "" {
		if err := a.store.SetKnowledgeRequiresManual(ctx, task.Company, task.Phone); err != nil {
			return nil, err
		}
	}
	item := api.FromEscalationTask(task)
	return &item, nil
}

func (a *storeAccess) InventoryStats(ctx context.Context) (api.InventoryStatus, error) {
	summary, err := a.store.InventoryStats(ctx)
	if err != nil {
		return api.InventoryStatus{}, err
	}
	return api.FromInventorySummary(summary), nil
}
