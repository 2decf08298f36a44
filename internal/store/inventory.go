package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const inventoryColumns = "id, name, unit, address, rent, area, layout, built, company, region, status, first_seen_at, last_seen_at"

// UpsertInventoryRecord inserts or refreshes a scraped listing keyed by
// (name, unit, address). An existing row is reactivated and its scraped
// fields replaced; last_seen_at always advances to seenAt.
func (s *Store) UpsertInventoryRecord(ctx context.Context, rec *InventoryRecord, seenAt time.Time) error {
	if rec == nil {
		return errors.New("inventory record is nil")
	}
	seen := seenAt.UTC().Format(time.RFC3339Nano)
	err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO inventory_records (
            name, unit, address, rent, area, layout, built, company, region,
            status, first_seen_at, last_seen_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (name, unit, address) DO UPDATE SET
            rent = excluded.rent,
            area = excluded.area,
            layout = excluded.layout,
            built = excluded.built,
            company = excluded.company,
            region = excluded.region,
            status = excluded.status,
            last_seen_at = excluded.last_seen_at`,
		rec.Name,
		rec.Unit,
		rec.Address,
		rec.Rent,
		rec.Area,
		rec.Layout,
		rec.Built,
		rec.Company,
		rec.Region,
		string(RecordActive),
		seen,
		seen,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory record: %w", err)
	}
	return nil
}

// MarkInventoryEndedBefore flips active records last seen before the cutoff
// to ended. Returns the number of records withdrawn.
func (s *Store) MarkInventoryEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE inventory_records SET status = ? WHERE status = ? AND last_seen_at < ?`,
		string(RecordEnded),
		string(RecordActive),
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("mark inventory ended: %w", err)
	}
	return res.RowsAffected()
}

// GetInventoryRecord fetches one record by identifier. Missing rows return nil.
func (s *Store) GetInventoryRecord(ctx context.Context, id int64) (*InventoryRecord, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+inventoryColumns+` FROM inventory_records WHERE id = ?`, id)
	rec, err := scanInventoryRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory record: %w", err)
	}
	return rec, nil
}

// ActiveInventoryRecords returns every live record ordered by name.
func (s *Store) ActiveInventoryRecords(ctx context.Context) ([]*InventoryRecord, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+inventoryColumns+` FROM inventory_records WHERE status = ? ORDER BY name, unit`,
		string(RecordActive),
	)
	if err != nil {
		return nil, fmt.Errorf("query active inventory: %w", err)
	}
	defer rows.Close()
	return collectInventoryRecords(rows)
}

// CandidateInventoryRecords returns live records whose name starts with
// namePrefix or whose address contains district. Either filter may be empty;
// both empty yields no rows rather than a full scan.
func (s *Store) CandidateInventoryRecords(ctx context.Context, namePrefix, district string) ([]*InventoryRecord, error) {
	namePrefix = strings.TrimSpace(namePrefix)
	district = strings.TrimSpace(district)
	if namePrefix == "" && district == "" {
		return nil, nil
	}

	clauses := make([]string, 0, 2)
	args := []any{string(RecordActive)}
	if namePrefix != "" {
		clauses = append(clauses, "name LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(namePrefix)+"%")
	}
	if district != "" {
		clauses = append(clauses, "address LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(district)+"%")
	}

	query := `SELECT ` + inventoryColumns + ` FROM inventory_records WHERE status = ? AND (` + strings.Join(clauses, " OR ") + `) ORDER BY name, unit`
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidate inventory: %w", err)
	}
	defer rows.Close()
	return collectInventoryRecords(rows)
}

// InventoryStats summarizes record counts and the most recent crawl sighting.
func (s *Store) InventoryStats(ctx context.Context) (InventorySummary, error) {
	summary := InventorySummary{}
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM inventory_records GROUP BY status`)
	if err != nil {
		return summary, fmt.Errorf("inventory stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return summary, err
		}
		summary.Total += count
		switch RecordStatus(status) {
		case RecordActive:
			summary.Active += count
		case RecordEnded:
			summary.Ended += count
		}
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}

	var lastSeenRaw sql.NullString
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT MAX(last_seen_at) FROM inventory_records`)
	if err := row.Scan(&lastSeenRaw); err != nil {
		return summary, fmt.Errorf("inventory last seen: %w", err)
	}
	if lastSeenRaw.Valid {
		if seen, err := parseTimeString(lastSeenRaw.String); err == nil {
			summary.LastSeenAt = &seen
		}
	}
	return summary, nil
}

func escapeLike(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, "%", `\%`)
	value = strings.ReplaceAll(value, "_", `\_`)
	return value
}

func collectInventoryRecords(rows *sql.Rows) ([]*InventoryRecord, error) {
	var records []*InventoryRecord
	for rows.Next() {
		rec, err := scanInventoryRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanInventoryRecord(scanner interface{ Scan(dest ...any) error }) (*InventoryRecord, error) {
	var (
		id           int64
		name         string
		unit         sql.NullString
		address      sql.NullString
		rent         sql.NullInt64
		area         sql.NullFloat64
		layout       sql.NullString
		built        sql.NullString
		company      sql.NullString
		region       sql.NullString
		statusStr    string
		firstSeenRaw sql.NullString
		lastSeenRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&name,
		&unit,
		&address,
		&rent,
		&area,
		&layout,
		&built,
		&company,
		&region,
		&statusStr,
		&firstSeenRaw,
		&lastSeenRaw,
	); err != nil {
		return nil, err
	}

	rec := &InventoryRecord{
		ID:      id,
		Name:    name,
		Unit:    unit.String,
		Address: address.String,
		Rent:    rent.Int64,
		Area:    area.Float64,
		Layout:  layout.String,
		Built:   built.String,
		Company: company.String,
		Region:  region.String,
		Status:  RecordStatus(statusStr),
	}

	if first, err := parseTimeString(firstSeenRaw.String); err == nil {
		rec.FirstSeenAt = first
	}
	if last, err := parseTimeString(lastSeenRaw.String); err == nil {
		rec.LastSeenAt = last
	}
	return rec, nil
}
