package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/auditai/insight-engine/internal/service/ingest"
	"github.com/google/uuid"
)

// IngestRepo implements ingest.Repository against PostgreSQL.
type IngestRepo struct{ db *sql.DB }

// NewIngestRepo creates a Postgres-backed ingest repository.
func NewIngestRepo(db *sql.DB) *IngestRepo { return &IngestRepo{db: db} }

func (r *IngestRepo) WithTx(ctx context.Context, fn func(ingest.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer tx.Rollback()

	if err := fn(&ingestTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

type ingestTx struct{ tx *sql.Tx }

// UpsertSuggestion relies on xmax being zero only for a row version created
// by this statement's INSERT, which tells a fresh insert from a conflict
// update without a second round trip.
func (t *ingestTx) UpsertSuggestion(ctx context.Context, s *domain.Suggestion) (bool, error) {
	payload, err := json.Marshal(s.Content)
	if err != nil {
		return false, fmt.Errorf("encode suggestion payload: %w", err)
	}

	var inserted bool
	err = t.tx.QueryRowContext(ctx, `
		INSERT INTO suggestions (id, workspace_id, unique_key, source, title, payload, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (workspace_id, unique_key) DO UPDATE
		SET source = EXCLUDED.source,
		    title = EXCLUDED.title,
		    payload = EXCLUDED.payload,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, state, created_at, (xmax = 0) AS inserted
	`, s.ID, s.WorkspaceID, s.UniqueKey, s.Source, s.Content.Title, string(payload), string(s.State), s.UpdatedAt,
	).Scan(&s.ID, &s.State, &s.CreatedAt, &inserted)
	if err != nil {
		return false, classify("upsert suggestion", err)
	}
	return inserted, nil
}

func (t *ingestTx) UpsertCampaignMetric(ctx context.Context, m *domain.CampaignMetric) error {
	meta, err := nullableJSON(m.Meta)
	if err != nil {
		return fmt.Errorf("encode metric metadata: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO campaign_metrics (id, workspace_id, source, ts, metric, value, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (workspace_id, source, ts, metric) DO UPDATE
		SET value = EXCLUDED.value,
		    metadata = EXCLUDED.metadata,
		    updated_at = EXCLUDED.updated_at
	`, m.ID, m.WorkspaceID, m.Source, m.TS, m.Metric, m.Value, meta, m.UpdatedAt)
	if err != nil {
		return classify("upsert campaign metric", err)
	}
	return nil
}

const suggestionColumns = `id, workspace_id, unique_key, COALESCE(source, ''), payload, state, created_at, updated_at`

func (r *IngestRepo) ListSuggestions(ctx context.Context, workspaceID uuid.UUID, f domain.SuggestionFilter) ([]domain.Suggestion, int, error) {
	where := ` WHERE workspace_id = $1`
	args := []interface{}{workspaceID}
	if f.State != "" {
		where += ` AND state = $2`
		args = append(args, string(f.State))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM suggestions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count suggestions: %w", err)
	}

	q := `SELECT ` + suggestionColumns + ` FROM suggestions` + where +
		fmt.Sprintf(` ORDER BY updated_at DESC, unique_key LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, q, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	out := []domain.Suggestion{}
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list suggestions: %w", err)
	}
	return out, total, nil
}

func (r *IngestRepo) SetSuggestionState(ctx context.Context, workspaceID uuid.UUID, uniqueKey string, state domain.SuggestionState, at time.Time) (*domain.Suggestion, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE suggestions SET state = $3, updated_at = $4
		WHERE workspace_id = $1 AND unique_key = $2
		RETURNING `+suggestionColumns,
		workspaceID, uniqueKey, string(state), at)
	s, err := scanSuggestion(row)
	if err == sql.ErrNoRows {
		return nil, ingest.ErrNotFound
	}
	if err != nil {
		return nil, classify("set suggestion state", err)
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSuggestion(row scanner) (*domain.Suggestion, error) {
	var (
		s       domain.Suggestion
		payload []byte
	)
	if err := row.Scan(&s.ID, &s.WorkspaceID, &s.UniqueKey, &s.Source, &payload, &s.State, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan suggestion: %w", err)
	}
	if err := json.Unmarshal(payload, &s.Content); err != nil {
		return nil, fmt.Errorf("decode suggestion payload %s: %w", s.ID, err)
	}
	return &s, nil
}

// nullableJSON encodes v as text for a JSONB parameter, or returns nil for
// SQL NULL when v is empty. lib/pq sends []byte as bytea, which JSONB rejects.
func nullableJSON(v map[string]interface{}) (interface{}, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
