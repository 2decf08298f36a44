package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const caseColumns = "id, source_url, portal, listing_json, company, company_name, company_phone, platform, routing, status, result, error_message, created_at, updated_at"

// NewCase inserts a pending verification case for a portal URL.
func (s *Store) NewCase(ctx context.Context, sourceURL string, portal Portal) (*Case, error) {
	timestamp := timestampNow()

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO verification_cases (source_url, portal, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		sourceURL,
		string(portal),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert case: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetCase(ctx, id)
}

// GetCase fetches a verification case by identifier. Missing cases return nil.
func (s *Store) GetCase(ctx context.Context, id int64) (*Case, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+caseColumns+` FROM verification_cases WHERE id = ?`, id)
	item, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get case: %w", err)
	}
	return item, nil
}

// UpdateCase persists all mutable fields of an existing case.
func (s *Store) UpdateCase(ctx context.Context, item *Case) error {
	if item == nil {
		return errors.New("case is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE verification_cases
         SET source_url = ?, portal = ?, listing_json = ?, company = ?,
             company_name = ?, company_phone = ?, platform = ?, routing = ?,
             status = ?, result = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		item.SourceURL,
		string(item.Portal),
		nullableString(item.ListingJSON),
		nullableString(item.Company),
		nullableString(item.CompanyName),
		nullableString(item.CompanyPhone),
		nullableString(string(item.Platform)),
		nullableString(string(item.Routing)),
		item.Status,
		nullableString(item.Result),
		nullableString(item.ErrorMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	return nil
}

// CasesByStatus returns cases matching a status ordered by creation time.
func (s *Store) CasesByStatus(ctx context.Context, status Status) ([]*Case, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+caseColumns+` FROM verification_cases WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query cases by status: %w", err)
	}
	defer rows.Close()
	return collectCases(rows)
}

// NextCaseForStatuses returns the oldest case matching any of the provided statuses.
func (s *Store) NextCaseForStatuses(ctx context.Context, statuses ...Status) (*Case, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + caseColumns + ` FROM verification_cases WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ensureContext(ctx), query, args...)
	item, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListCases returns recent cases newest first, capped at limit (20 when <= 0).
func (s *Store) ListCases(ctx context.Context, limit int) ([]*Case, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+caseColumns+` FROM verification_cases ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()
	return collectCases(rows)
}

// CaseStats returns a count of cases grouped by status.
func (s *Store) CaseStats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM verification_cases GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("case stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates case state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.CaseStats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusAwaitingChoice:
			health.AwaitingChoice += count
		case StatusDone:
			health.Done += count
		case StatusNotFound:
			health.NotFound += count
		case StatusError:
			health.Errors += count
		default:
			if _, ok := processingStatuses[status]; ok {
				health.Processing += count
			}
		}
	}
	return health, nil
}

func collectCases(rows *sql.Rows) ([]*Case, error) {
	var items []*Case
	for rows.Next() {
		item, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanCase(scanner interface{ Scan(dest ...any) error }) (*Case, error) {
	var (
		id           int64
		sourceURL    string
		portal       sql.NullString
		listingJSON  sql.NullString
		company      sql.NullString
		companyName  sql.NullString
		companyPhone sql.NullString
		platform     sql.NullString
		routing      sql.NullString
		statusStr    string
		result       sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceURL,
		&portal,
		&listingJSON,
		&company,
		&companyName,
		&companyPhone,
		&platform,
		&routing,
		&statusStr,
		&result,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	item := &Case{
		ID:           id,
		SourceURL:    sourceURL,
		Portal:       Portal(portal.String),
		ListingJSON:  listingJSON.String,
		Company:      company.String,
		CompanyName:  companyName.String,
		CompanyPhone: companyPhone.String,
		Platform:     Platform(platform.String),
		Routing:      Routing(routing.String),
		Status:       Status(statusStr),
		Result:       result.String,
		ErrorMessage: errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}
