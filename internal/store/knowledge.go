package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const knowledgeColumns = "id, company, phone, platform, use_count, requires_manual, last_used_at, created_at, updated_at"

// AddKnowledge inserts a routing row. Duplicate (company, platform) pairs fail.
func (s *Store) AddKnowledge(ctx context.Context, entry *KnowledgeEntry) (*KnowledgeEntry, error) {
	if entry == nil {
		return nil, errors.New("knowledge entry is nil")
	}
	timestamp := timestampNow()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO routing_knowledge (company, phone, platform, use_count, requires_manual, last_used_at, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Company,
		entry.Phone,
		string(entry.Platform),
		entry.UseCount,
		boolToInt(entry.RequiresManual),
		nullableTime(entry.LastUsedAt),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert knowledge: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetKnowledge(ctx, id)
}

// GetKnowledge fetches one routing row by identifier. Missing rows return nil.
func (s *Store) GetKnowledge(ctx context.Context, id int64) (*KnowledgeEntry, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+knowledgeColumns+` FROM routing_knowledge WHERE id = ?`, id)
	entry, err := scanKnowledgeEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get knowledge: %w", err)
	}
	return entry, nil
}

// UpdateKnowledge persists all mutable fields of a routing row.
func (s *Store) UpdateKnowledge(ctx context.Context, entry *KnowledgeEntry) error {
	if entry == nil {
		return errors.New("knowledge entry is nil")
	}
	entry.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE routing_knowledge
         SET company = ?, phone = ?, platform = ?, use_count = ?,
             requires_manual = ?, last_used_at = ?, updated_at = ?
         WHERE id = ?`,
		entry.Company,
		entry.Phone,
		string(entry.Platform),
		entry.UseCount,
		boolToInt(entry.RequiresManual),
		nullableTime(entry.LastUsedAt),
		entry.UpdatedAt.Format(time.RFC3339Nano),
		entry.ID,
	)
	if err != nil {
		return fmt.Errorf("update knowledge: %w", err)
	}
	return nil
}

// DeleteKnowledge removes a routing row by identifier.
func (s *Store) DeleteKnowledge(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM routing_knowledge WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete knowledge: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListKnowledge returns all routing rows ordered by company then usage.
func (s *Store) ListKnowledge(ctx context.Context) ([]*KnowledgeEntry, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+knowledgeColumns+` FROM routing_knowledge ORDER BY company, use_count DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list knowledge: %w", err)
	}
	defer rows.Close()
	return collectKnowledgeEntries(rows)
}

// KnowledgeByCompany returns rows for an exact company name, most used first.
func (s *Store) KnowledgeByCompany(ctx context.Context, company string) ([]*KnowledgeEntry, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+knowledgeColumns+` FROM routing_knowledge WHERE company = ? ORDER BY use_count DESC, id`,
		company,
	)
	if err != nil {
		return nil, fmt.Errorf("knowledge by company: %w", err)
	}
	defer rows.Close()
	return collectKnowledgeEntries(rows)
}

// KnowledgeByCompanyPrefix returns rows whose company starts with prefix,
// most used first.
func (s *Store) KnowledgeByCompanyPrefix(ctx context.Context, prefix string) ([]*KnowledgeEntry, error) {
	if prefix == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+knowledgeColumns+` FROM routing_knowledge WHERE company LIKE ? ESCAPE '\' ORDER BY use_count DESC, id`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("knowledge by prefix: %w", err)
	}
	defer rows.Close()
	return collectKnowledgeEntries(rows)
}

// RecordKnowledgeUsage upserts a (company, platform) row, incrementing its
// use counter and refreshing last_used_at. A non-empty phone replaces a
// previously empty one.
func (s *Store) RecordKnowledgeUsage(ctx context.Context, company, phone string, platform Platform) error {
	timestamp := timestampNow()
	err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO routing_knowledge (company, phone, platform, use_count, requires_manual, last_used_at, created_at, updated_at)
         VALUES (?, ?, ?, 1, 0, ?, ?, ?)
         ON CONFLICT (company, platform) DO UPDATE SET
             use_count = use_count + 1,
             last_used_at = excluded.last_used_at,
             updated_at = excluded.updated_at,
             phone = CASE WHEN excluded.phone != '' THEN excluded.phone ELSE routing_knowledge.phone END`,
		company,
		phone,
		string(platform),
		timestamp,
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("record knowledge usage: %w", err)
	}
	return nil
}

// SetKnowledgeRequiresManual flags every routing row for a company as
// requiring human verification, creating a placeholder row when none exists.
// Safe to call repeatedly.
func (s *Store) SetKnowledgeRequiresManual(ctx context.Context, company, phone string) error {
	timestamp := timestampNow()
	err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO routing_knowledge (company, phone, platform, use_count, requires_manual, created_at, updated_at)
         VALUES (?, ?, '', 0, 1, ?, ?)
         ON CONFLICT (company, platform) DO UPDATE SET
             requires_manual = 1,
             updated_at = excluded.updated_at`,
		company,
		phone,
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("flag knowledge manual: %w", err)
	}
	err = s.execWithoutResultRetry(
		ctx,
		`UPDATE routing_knowledge SET requires_manual = 1, updated_at = ? WHERE company = ?`,
		timestamp,
		company,
	)
	if err != nil {
		return fmt.Errorf("flag knowledge manual rows: %w", err)
	}
	return nil
}

// CompanyRequiresManual reports whether any routing row for the company
// carries the requires_manual flag.
func (s *Store) CompanyRequiresManual(ctx context.Context, company string) (bool, error) {
	var count int
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COUNT(1) FROM routing_knowledge WHERE company = ? AND requires_manual = 1`,
		company,
	)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("requires manual check: %w", err)
	}
	return count > 0, nil
}

func collectKnowledgeEntries(rows *sql.Rows) ([]*KnowledgeEntry, error) {
	var entries []*KnowledgeEntry
	for rows.Next() {
		entry, err := scanKnowledgeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanKnowledgeEntry(scanner interface{ Scan(dest ...any) error }) (*KnowledgeEntry, error) {
	var (
		id             int64
		company        string
		phone          sql.NullString
		platform       sql.NullString
		useCount       sql.NullInt64
		requiresManual sql.NullInt64
		lastUsedRaw    sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&company,
		&phone,
		&platform,
		&useCount,
		&requiresManual,
		&lastUsedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	entry := &KnowledgeEntry{
		ID:       id,
		Company:  company,
		Phone:    phone.String,
		Platform: Platform(platform.String),
		UseCount: useCount.Int64,
	}
	if requiresManual.Valid {
		entry.RequiresManual = requiresManual.Int64 != 0
	}
	if lastUsedRaw.Valid {
		if used, err := parseTimeString(lastUsedRaw.String); err == nil {
			entry.LastUsedAt = &used
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		entry.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		entry.UpdatedAt = updated
	}
	return entry, nil
}
