package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a verification case.
type Status string

const (
	StatusPending        Status = "pending"
	StatusParsing        Status = "parsing"
	StatusMatching       Status = "matching"
	StatusAwaitingChoice Status = "awaiting_choice"
	StatusChecking       Status = "checking"
	StatusDone           Status = "done"
	StatusNotFound       Status = "not_found"
	StatusError          Status = "error"
)

var allStatuses = []Status{
	StatusPending,
	StatusParsing,
	StatusMatching,
	StatusAwaitingChoice,
	StatusChecking,
	StatusDone,
	StatusNotFound,
	StatusError,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusParsing:  {},
	StatusMatching: {},
	StatusChecking: {},
}

// AllStatuses returns the ordered list of known case statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the case lifecycle.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusNotFound, StatusError:
		return true
	default:
		return false
	}
}

// IsProcessingStatus reports whether a status reflects an in-flight step.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// Portal identifies the consumer listing site a URL came from.
type Portal string

const (
	PortalSuumo Portal = "suumo"
	PortalHomes Portal = "homes"
)

// Platform identifies a trade verification site.
type Platform string

const (
	PlatformItandi   Platform = "itandi"
	PlatformIelove   Platform = "ielove"
	PlatformEsSquare Platform = "es_square"
)

var allPlatforms = []Platform{PlatformItandi, PlatformIelove, PlatformEsSquare}

// AllPlatforms returns the known verification platforms.
func AllPlatforms() []Platform {
	cp := make([]Platform, len(allPlatforms))
	copy(cp, allPlatforms)
	return cp
}

// ParsePlatform converts a string into a known Platform.
func ParsePlatform(value string) (Platform, bool) {
	normalized := Platform(strings.ToLower(strings.TrimSpace(value)))
	for _, platform := range allPlatforms {
		if normalized == platform {
			return platform, true
		}
	}
	return "", false
}

// Routing records how a case's platform was chosen.
type Routing string

const (
	RoutingAuto   Routing = "auto"
	RoutingManual Routing = "manual"
)

// TaskStatus represents the lifecycle of an escalation phone task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskCancelled TaskStatus = "cancelled"
)

// ParseTaskStatus converts a string into a known TaskStatus.
func ParseTaskStatus(value string) (TaskStatus, bool) {
	normalized := TaskStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case TaskPending, TaskCompleted, TaskCancelled:
		return normalized, true
	default:
		return "", false
	}
}

// RecordStatus marks an inventory record as live or withdrawn.
type RecordStatus string

const (
	RecordActive RecordStatus = "active"
	RecordEnded  RecordStatus = "ended"
)

// Case is one verification request persisted in SQLite.
type Case struct {
	ID           int64
	SourceURL    string
	Portal       Portal
	ListingJSON  string
	Company      string
	CompanyName  string
	CompanyPhone string
	Platform     Platform
	Routing      Routing
	Status       Status
	Result       string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsProcessing returns true when the case is inside an orchestrator step.
func (c Case) IsProcessing() bool {
	_, ok := processingStatuses[c.Status]
	return ok
}

// InventoryRecord is one scraped trade-exchange listing.
type InventoryRecord struct {
	ID          int64
	Name        string
	Unit        string
	Address     string
	Rent        int64
	Area        float64
	Layout      string
	Built       string
	Company     string
	Region      string
	Status      RecordStatus
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// KnowledgeEntry is one learned company-to-platform routing row.
type KnowledgeEntry struct {
	ID             int64
	Company        string
	Phone          string
	Platform       Platform
	UseCount       int64
	RequiresManual bool
	LastUsedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EscalationTask is one human phone-verification task.
type EscalationTask struct {
	ID           int64
	CaseID       int64
	Company      string
	Phone        string
	PropertyName string
	Address      string
	Reason       string
	Status       TaskStatus
	Note         string
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HealthSummary aggregates case counts per key lifecycle states.
type HealthSummary struct {
	Total          int
	Pending        int
	Processing     int
	AwaitingChoice int
	Done           int
	NotFound       int
	Errors         int
}

// InventorySummary aggregates inventory record counts.
type InventorySummary struct {
	Total      int
	Active     int
	Ended      int
	LastSeenAt *time.Time
}
