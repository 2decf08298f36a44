package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const taskColumns = "id, case_id, company, phone, property_name, address, reason, status, note, completed_at, created_at, updated_at"

// CreateEscalationTask records a phone task for a case. The UNIQUE(case_id)
// constraint makes this exactly-once: a second call for the same case is a
// no-op and reports created=false.
func (s *Store) CreateEscalationTask(ctx context.Context, task *EscalationTask) (*EscalationTask, bool, error) {
	if task == nil {
		return nil, false, errors.New("escalation task is nil")
	}
	timestamp := timestampNow()
	res, err := s.execWithRetry(
		ctx,
		`INSERT OR IGNORE INTO escalation_tasks (
            case_id, company, phone, property_name, address, reason, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.CaseID,
		task.Company,
		task.Phone,
		task.PropertyName,
		task.Address,
		task.Reason,
		TaskPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert escalation task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	existing, err := s.EscalationTaskByCase(ctx, task.CaseID)
	if err != nil {
		return nil, false, err
	}
	return existing, affected > 0, nil
}

// GetEscalationTask fetches one task by identifier. Missing tasks return nil.
func (s *Store) GetEscalationTask(ctx context.Context, id int64) (*EscalationTask, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+taskColumns+` FROM escalation_tasks WHERE id = ?`, id)
	task, err := scanEscalationTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get escalation task: %w", err)
	}
	return task, nil
}

// EscalationTaskByCase fetches the task belonging to a case, or nil.
func (s *Store) EscalationTaskByCase(ctx context.Context, caseID int64) (*EscalationTask, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+taskColumns+` FROM escalation_tasks WHERE case_id = ?`, caseID)
	task, err := scanEscalationTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("task by case: %w", err)
	}
	return task, nil
}

// ListEscalationTasks returns tasks newest first, optionally filtered by status.
func (s *Store) ListEscalationTasks(ctx context.Context, status TaskStatus) ([]*EscalationTask, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = s.db.QueryContext(
			ensureContext(ctx),
			`SELECT `+taskColumns+` FROM escalation_tasks ORDER BY created_at DESC, id DESC`,
		)
	} else {
		rows, err = s.db.QueryContext(
			ensureContext(ctx),
			`SELECT `+taskColumns+` FROM escalation_tasks WHERE status = ? ORDER BY created_at DESC, id DESC`,
			status,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list escalation tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*EscalationTask
	for rows.Next() {
		task, err := scanEscalationTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// PendingEscalationCount returns the number of open phone tasks.
func (s *Store) PendingEscalationCount(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM escalation_tasks WHERE status = ?`, TaskPending)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("pending escalation count: %w", err)
	}
	return count, nil
}

// UpdateEscalationStatus transitions a task and optionally appends a note.
// Completed and cancelled tasks record a completion timestamp.
func (s *Store) UpdateEscalationStatus(ctx context.Context, id int64, status TaskStatus, note string) (*EscalationTask, error) {
	now := time.Now().UTC()
	var completedAt any
	if status == TaskCompleted || status == TaskCancelled {
		completedAt = now.Format(time.RFC3339Nano)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE escalation_tasks
         SET status = ?, note = COALESCE(NULLIF(?, ''), note), completed_at = ?, updated_at = ?
         WHERE id = ?`,
		status,
		note,
		completedAt,
		now.Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("update escalation task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetEscalationTask(ctx, id)
}

func scanEscalationTask(scanner interface{ Scan(dest ...any) error }) (*EscalationTask, error) {
	var (
		id           int64
		caseID       int64
		company      sql.NullString
		phone        sql.NullString
		propertyName sql.NullString
		address      sql.NullString
		reason       sql.NullString
		statusStr    string
		note         sql.NullString
		completedRaw sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&caseID,
		&company,
		&phone,
		&propertyName,
		&address,
		&reason,
		&statusStr,
		&note,
		&completedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	task := &EscalationTask{
		ID:           id,
		CaseID:       caseID,
		Company:      company.String,
		Phone:        phone.String,
		PropertyName: propertyName.String,
		Address:      address.String,
		Reason:       reason.String,
		Status:       TaskStatus(statusStr),
		Note:         note.String,
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			task.CompletedAt = &completed
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = updated
	}
	return task, nil
}
