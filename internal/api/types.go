package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Check describes a verification case in a transport-friendly format.
type Check struct {
	ID           int64           `json:"id"`
	SourceURL    string          `json:"sourceUrl"`
	Portal       string          `json:"portal"`
	Status       string          `json:"status"`
	Result       string          `json:"result,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	Company      string          `json:"company,omitempty"`
	CompanyName  string          `json:"companyName,omitempty"`
	CompanyPhone string          `json:"companyPhone,omitempty"`
	Platform     string          `json:"platform,omitempty"`
	Routing      string          `json:"routing,omitempty"`
	Listing      json.RawMessage `json:"listing,omitempty"`
	PropertyName string          `json:"propertyName,omitempty"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
}

// CheckSummary is the compact row used by list endpoints.
type CheckSummary struct {
	ID           int64  `json:"id"`
	PropertyName string `json:"propertyName,omitempty"`
	Portal       string `json:"portal"`
	Status       string `json:"status"`
	Result       string `json:"result,omitempty"`
	Platform     string `json:"platform,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// KnowledgeItem is one learned company-to-platform routing row.
type KnowledgeItem struct {
	ID             int64  `json:"id"`
	Company        string `json:"company"`
	Phone          string `json:"phone,omitempty"`
	Platform       string `json:"platform,omitempty"`
	UseCount       int64  `json:"useCount"`
	RequiresManual bool   `json:"requiresManual"`
	LastUsedAt     string `json:"lastUsedAt,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

// PhoneTask is one escalated phone-verification task.
type PhoneTask struct {
	ID           int64  `json:"id"`
	CaseID       int64  `json:"caseId"`
	Company      string `json:"company,omitempty"`
	Phone        string `json:"phone,omitempty"`
	PropertyName string `json:"propertyName,omitempty"`
	Address      string `json:"address,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Status       string `json:"status"`
	Note         string `json:"note,omitempty"`
	CompletedAt  string `json:"completedAt,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// OrchestratorStatus summarizes verification pipeline state.
type OrchestratorStatus struct {
	Running   bool           `json:"running"`
	Lanes     []string       `json:"lanes"`
	CaseStats map[string]int `json:"caseStats"`
	LastError string         `json:"lastError,omitempty"`
	LastCase  *Check         `json:"lastCase,omitempty"`
}

// SessionStatus is a point-in-time snapshot of one platform session.
type SessionStatus struct {
	Platform    string `json:"platform"`
	State       string `json:"state"`
	LoggedInAt  string `json:"loggedInAt,omitempty"`
	LastChecked string `json:"lastChecked,omitempty"`
	Failures    int    `json:"failures,omitempty"`
}

// InventoryStatus summarizes the trade-exchange snapshot.
type InventoryStatus struct {
	Total      int    `json:"total"`
	Active     int    `json:"active"`
	Ended      int    `json:"ended"`
	LastSeenAt string `json:"lastSeenAt,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StorePath    string             `json:"storePath"`
	LockFilePath string             `json:"lockFilePath"`
	Orchestrator OrchestratorStatus `json:"orchestrator"`
	Sessions     []SessionStatus    `json:"sessions"`
	Inventory    InventoryStatus    `json:"inventory"`
	PendingTasks int                `json:"pendingTasks"`
}

// SubmitCheckRequest asks the daemon to verify one portal listing URL.
type SubmitCheckRequest struct {
	URL string `json:"url"`
}

// PlatformChoiceRequest resolves an awaiting_choice case. Remember defaults
// to true when omitted.
type PlatformChoiceRequest struct {
	Platform string `json:"platform"`
	Remember *bool  `json:"remember,omitempty"`
}

// KnowledgeUpsertRequest creates or replaces a routing knowledge row.
type KnowledgeUpsertRequest struct {
	Company        string `json:"company"`
	Phone          string `json:"phone,omitempty"`
	Platform       string `json:"platform,omitempty"`
	RequiresManual bool   `json:"requiresManual,omitempty"`
}

// TaskUpdateRequest completes or cancels a phone task.
type TaskUpdateRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

// CheckListResponse wraps a collection of checks for API responses.
type CheckListResponse struct {
	Checks []CheckSummary `json:"checks"`
}

// CheckResponse wraps a single check.
type CheckResponse struct {
	Check Check `json:"check"`
}

// KnowledgeListResponse wraps the routing knowledge table.
type KnowledgeListResponse struct {
	Entries []KnowledgeItem `json:"entries"`
}

// KnowledgeItemResponse wraps a single knowledge row.
type KnowledgeItemResponse struct {
	Entry KnowledgeItem `json:"entry"`
}

// TaskListResponse wraps a collection of phone tasks.
type TaskListResponse struct {
	Tasks []PhoneTask `json:"tasks"`
}

// TaskResponse wraps a single phone task.
type TaskResponse struct {
	Task PhoneTask `json:"task"`
}

// TaskCountResponse carries the pending phone-task count.
type TaskCountResponse struct {
	Count int `json:"count"`
}

// NotifyTestResponse reports the outcome of a test notification.
type NotifyTestResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message,omitempty"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status string `json:"status"`
}
