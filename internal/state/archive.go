package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/genesis/pkg/models"
)

// WorkflowRecord is a finished workflow together with its project.
type WorkflowRecord struct {
	Workflow   models.WorkflowSnapshot `json:"workflow"`
	Project    models.ProjectSnapshot  `json:"project"`
	ArchivedAt time.Time               `json:"archived_at"`
}

// Archiver persists finished workflows beyond the in-memory store.
type Archiver interface {
	// ArchiveWorkflow inserts or replaces rec.
	ArchiveWorkflow(rec WorkflowRecord) error
	// GetArchivedWorkflow returns nil, nil when id is not archived.
	GetArchivedWorkflow(id string) (*WorkflowRecord, error)
	// ListArchivedWorkflows returns the most recently archived first.
	// A limit <= 0 returns everything.
	ListArchivedWorkflows(limit int) ([]WorkflowRecord, error)
	// PurgeArchivedWorkflows deletes records archived before now-olderThan
	// and returns how many were removed.
	PurgeArchivedWorkflows(olderThan time.Duration) (int64, error)
}

var _ Archiver = (*DB)(nil)

// ArchiveWorkflow stores rec, replacing an earlier record for the same
// workflow.
func (db *DB) ArchiveWorkflow(rec WorkflowRecord) error {
	if rec.Workflow.WorkflowID == "" {
		return fmt.Errorf("archive workflow: missing workflow id")
	}
	if rec.ArchivedAt.IsZero() {
		rec.ArchivedAt = time.Now()
	}

	components, err := json.Marshal(orEmptySlice(rec.Project.Components))
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}
	features, err := json.Marshal(orEmptySlice(rec.Project.Features))
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	var completedAt sql.NullString
	if rec.Workflow.CompletedAt != nil {
		completedAt = sql.NullString{String: formatTime(*rec.Workflow.CompletedAt), Valid: true}
	}

	err = db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO projects (workflow_id, name, template, output_path, components, features, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(workflow_id) DO UPDATE SET
				name = excluded.name,
				template = excluded.template,
				output_path = excluded.output_path,
				components = excluded.components,
				features = excluded.features,
				created_at = excluded.created_at
		`, rec.Workflow.WorkflowID, rec.Project.Name, string(rec.Project.Template), rec.Project.OutputPath,
			string(components), string(features), formatTime(rec.Project.CreatedAt)); err != nil {
			return fmt.Errorf("upsert project: %w", err)
		}

		if _, err := tx.Exec(`
			INSERT INTO workflows (id, status, started_at, completed_at, progress, error, archived_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				status = excluded.status,
				started_at = excluded.started_at,
				completed_at = excluded.completed_at,
				progress = excluded.progress,
				error = excluded.error,
				archived_at = excluded.archived_at
		`, rec.Workflow.WorkflowID, string(rec.Workflow.Status), formatTime(rec.Workflow.StartedAt), completedAt,
			rec.Workflow.Progress, rec.Workflow.Error, formatTime(rec.ArchivedAt)); err != nil {
			return fmt.Errorf("upsert workflow: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("archive workflow %s: %w", rec.Workflow.WorkflowID, err)
	}
	return nil
}

const selectRecord = `
	SELECT w.id, w.status, w.started_at, w.completed_at, w.progress, w.error, w.archived_at,
		p.name, p.template, p.output_path, p.components, p.features, p.created_at
	FROM workflows w JOIN projects p ON p.workflow_id = w.id
`

// GetArchivedWorkflow retrieves a record by workflow id.
func (db *DB) GetArchivedWorkflow(id string) (*WorkflowRecord, error) {
	row := db.QueryRow(selectRecord+" WHERE w.id = ?", id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archived workflow: %w", err)
	}
	return rec, nil
}

// ListArchivedWorkflows lists records, newest archive first.
func (db *DB) ListArchivedWorkflows(limit int) ([]WorkflowRecord, error) {
	query := selectRecord + " ORDER BY w.archived_at DESC, w.id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list archived workflows: %w", err)
	}
	defer rows.Close()

	var records []WorkflowRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archived workflow: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// PurgeArchivedWorkflows deletes records archived more than olderThan ago.
func (db *DB) PurgeArchivedWorkflows(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	var count int64
	err := db.Transaction(func(tx *sql.Tx) error {
		result, err := tx.Exec(`DELETE FROM workflows WHERE archived_at < ?`, cutoff)
		if err != nil {
			return err
		}
		if count, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		_, err = tx.Exec(`DELETE FROM projects WHERE workflow_id NOT IN (SELECT id FROM workflows)`)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("purge archived workflows: %w", err)
	}
	return count, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*WorkflowRecord, error) {
	var (
		rec                              WorkflowRecord
		status, template                 string
		startedAt, archivedAt, createdAt string
		completedAt                      sql.NullString
		components, features             string
	)
	err := s.Scan(&rec.Workflow.WorkflowID, &status, &startedAt, &completedAt, &rec.Workflow.Progress,
		&rec.Workflow.Error, &archivedAt, &rec.Project.Name, &template, &rec.Project.OutputPath,
		&components, &features, &createdAt)
	if err != nil {
		return nil, err
	}

	rec.Workflow.Status = models.WorkflowStatus(status)
	rec.Workflow.ProjectName = rec.Project.Name
	rec.Project.Template = models.Template(template)
	if rec.Workflow.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("decode started_at: %w", err)
	}
	if rec.Workflow.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return nil, fmt.Errorf("decode completed_at: %w", err)
	}
	if rec.ArchivedAt, err = parseTime(archivedAt); err != nil {
		return nil, fmt.Errorf("decode archived_at: %w", err)
	}
	if rec.Project.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}

	if err := json.Unmarshal([]byte(components), &rec.Project.Components); err != nil {
		return nil, fmt.Errorf("decode components: %w", err)
	}
	if err := json.Unmarshal([]byte(features), &rec.Project.Features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	return &rec, nil
}

func orEmptySlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
