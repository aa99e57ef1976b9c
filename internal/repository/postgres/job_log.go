package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/auditai/insight-engine/internal/service/jobledger"
	"github.com/google/uuid"
)

// JobLogRepo implements jobledger.Repository against PostgreSQL.
type JobLogRepo struct{ db *sql.DB }

// NewJobLogRepo creates a Postgres-backed job ledger repository.
func NewJobLogRepo(db *sql.DB) *JobLogRepo { return &JobLogRepo{db: db} }

func (r *JobLogRepo) AppendJobLog(ctx context.Context, e *domain.JobLogEntry) error {
	meta, err := nullableJSON(e.Meta)
	if err != nil {
		return fmt.Errorf("encode job meta: %w", err)
	}
	message := sql.NullString{String: e.Message, Valid: e.Message != ""}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO job_logs (id, workspace_id, job_id, status, message, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.ID, e.WorkspaceID, e.JobID, string(e.Status), message, meta, e.CreatedAt)
	if err != nil {
		return classifyAs("append job log", err, jobledger.ErrMalformedRecord)
	}
	return nil
}

func (r *JobLogRepo) ListJobLogs(ctx context.Context, workspaceID uuid.UUID, jobID string) ([]domain.JobLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, job_id, status, COALESCE(message, ''), meta, created_at
		FROM job_logs
		WHERE workspace_id = $1 AND job_id = $2
		ORDER BY created_at, id
	`, workspaceID, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job logs: %w", err)
	}
	defer rows.Close()

	out := []domain.JobLogEntry{}
	for rows.Next() {
		var (
			e    domain.JobLogEntry
			meta []byte
		)
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.JobID, &e.Status, &e.Message, &meta, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan job log: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("decode job meta %s: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list job logs: %w", err)
	}
	return out, nil
}
