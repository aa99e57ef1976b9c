package ingest

import (
	"context"
	"time"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/google/uuid"
)

// Repository defines the data access contract for ingested records.
// Implementations must be safe for concurrent use.
type Repository interface {
	// WithTx runs fn in one transaction. It commits when fn returns nil and
	// rolls back otherwise, leaving no partial writes visible.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// ListSuggestions returns one page of a workspace's suggestions, newest
	// update first, and the total number matching the filter.
	ListSuggestions(ctx context.Context, workspaceID uuid.UUID, f domain.SuggestionFilter) ([]domain.Suggestion, int, error)

	// SetSuggestionState changes only state and updated_at. Returns
	// ErrNotFound when the key does not exist in the workspace.
	SetSuggestionState(ctx context.Context, workspaceID uuid.UUID, uniqueKey string, state domain.SuggestionState, at time.Time) (*domain.Suggestion, error)
}

// Tx is the write side available inside WithTx.
type Tx interface {
	// UpsertSuggestion inserts s or, when (WorkspaceID, UniqueKey) exists,
	// overwrites its title, source, content and updated_at. On return s
	// holds the stored id, state and created_at. created is true only for
	// a fresh insert.
	UpsertSuggestion(ctx context.Context, s *domain.Suggestion) (created bool, err error)

	// UpsertCampaignMetric inserts m or replaces value, meta and updated_at
	// of the row with the same (WorkspaceID, Source, TS, Metric).
	UpsertCampaignMetric(ctx context.Context, m *domain.CampaignMetric) error
}
