package ingest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/auditai/insight-engine/internal/pkg/logger"
	"github.com/google/uuid"
)

const (
	defaultMaxBatchSize = 1000
	defaultListLimit    = 50
	maxListLimit        = 500
)

// ImportResult counts how a suggestion batch was applied.
type ImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// UpsertResult counts the metric rows written.
type UpsertResult struct {
	Upserts int `json:"upserts"`
}

// Service implements the ingestion core. All public methods are safe for
// concurrent use if the underlying repository is.
type Service struct {
	repo         Repository
	maxBatchSize int
	now          func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithMaxBatchSize caps how many items one call may carry.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an ingest service backed by the given repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, maxBatchSize: defaultMaxBatchSize, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp is the write time for a batch, at the precision the store keeps.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) checkBatch(workspaceID uuid.UUID, n int) error {
	if workspaceID == uuid.Nil {
		return &RecordError{Index: -1, Field: "workspaceId", Reason: "is required"}
	}
	if n > s.maxBatchSize {
		return &RecordError{Index: -1, Field: "items", Reason: fmt.Sprintf("batch of %d exceeds the limit of %d", n, s.maxBatchSize)}
	}
	return nil
}

// ImportSuggestions upserts items into the workspace. The whole batch is
// validated before anything is written and then applied in one
// transaction; on any error nothing is written. Items sharing a key within
// one batch count as one create followed by updates.
func (s *Service) ImportSuggestions(ctx context.Context, workspaceID uuid.UUID, items []domain.SuggestionRecord) (ImportResult, error) {
	var res ImportResult
	if err := s.checkBatch(workspaceID, len(items)); err != nil {
		return res, err
	}
	if len(items) == 0 {
		return res, nil
	}

	now := s.timestamp()
	rows := make([]*domain.Suggestion, 0, len(items))
	for i, rec := range items {
		content, key, source, err := normalizeSuggestion(i, rec)
		if err != nil {
			return res, err
		}
		rows = append(rows, &domain.Suggestion{
			ID:          uuid.New(),
			WorkspaceID: workspaceID,
			UniqueKey:   key,
			Source:      source,
			Content:     content,
			State:       domain.StateNew,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	err := s.repo.WithTx(ctx, func(tx Tx) error {
		var created, updated int
		for _, i := range suggestionLockOrder(rows) {
			isNew, err := tx.UpsertSuggestion(ctx, rows[i])
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			if isNew {
				created++
			} else {
				updated++
			}
		}
		res = ImportResult{Created: created, Updated: updated}
		return nil
	})
	if err != nil {
		logger.Warn("ingest: suggestion import rolled back", "workspace_id", workspaceID, "items", len(rows), "error", err)
		return ImportResult{}, storeError("import suggestions", err)
	}

	logger.Info("ingest: suggestions imported", "workspace_id", workspaceID, "created", res.Created, "updated", res.Updated)
	return res, nil
}

// UpsertCampaignMetrics writes rows keyed by (workspace, source, ts, metric),
// last write wins. Like ImportSuggestions it is all-or-nothing.
func (s *Service) UpsertCampaignMetrics(ctx context.Context, workspaceID uuid.UUID, rows []domain.CampaignMetricRow) (UpsertResult, error) {
	if err := s.checkBatch(workspaceID, len(rows)); err != nil {
		return UpsertResult{}, err
	}
	if len(rows) == 0 {
		return UpsertResult{}, nil
	}

	now := s.timestamp()
	metrics := make([]*domain.CampaignMetric, 0, len(rows))
	for i, row := range rows {
		valid, err := validateMetric(i, row)
		if err != nil {
			return UpsertResult{}, err
		}
		metrics = append(metrics, &domain.CampaignMetric{
			ID:                uuid.New(),
			WorkspaceID:       workspaceID,
			CampaignMetricRow: valid,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	err := s.repo.WithTx(ctx, func(tx Tx) error {
		for _, i := range metricLockOrder(metrics) {
			if err := tx.UpsertCampaignMetric(ctx, metrics[i]); err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.Warn("ingest: metric upsert rolled back", "workspace_id", workspaceID, "rows", len(metrics), "error", err)
		return UpsertResult{}, storeError("upsert campaign metrics", err)
	}

	logger.Info("ingest: campaign metrics upserted", "workspace_id", workspaceID, "upserts", len(metrics))
	return UpsertResult{Upserts: len(metrics)}, nil
}

// suggestionLockOrder returns batch indexes sorted by unique key so that
// concurrent overlapping batches take row locks in the same order. Items
// sharing a key keep their batch order, so the last one still wins.
func suggestionLockOrder(rows []*domain.Suggestion) []int {
	order := batchOrder(len(rows))
	sort.SliceStable(order, func(a, b int) bool {
		return rows[order[a]].UniqueKey < rows[order[b]].UniqueKey
	})
	return order
}

// metricLockOrder is suggestionLockOrder for (source, ts, metric).
func metricLockOrder(metrics []*domain.CampaignMetric) []int {
	order := batchOrder(len(metrics))
	sort.SliceStable(order, func(a, b int) bool {
		x, y := metrics[order[a]], metrics[order[b]]
		if x.Source != y.Source {
			return x.Source < y.Source
		}
		if !x.TS.Equal(y.TS) {
			return x.TS.Before(y.TS)
		}
		return x.Metric < y.Metric
	})
	return order
}

func batchOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// ListSuggestions returns a page of the workspace's suggestions.
func (s *Service) ListSuggestions(ctx context.Context, workspaceID uuid.UUID, f domain.SuggestionFilter) ([]domain.Suggestion, int, error) {
	if f.State != "" && !f.State.Valid() {
		return nil, 0, &RecordError{Index: -1, Field: "state", Reason: "unknown state " + string(f.State)}
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	list, total, err := s.repo.ListSuggestions(ctx, workspaceID, f)
	if err != nil {
		return nil, 0, storeError("list suggestions", err)
	}
	return list, total, nil
}

// SetSuggestionState moves a suggestion through review. Imports never
// change state; this is the only writer.
func (s *Service) SetSuggestionState(ctx context.Context, workspaceID uuid.UUID, uniqueKey string, state domain.SuggestionState) (*domain.Suggestion, error) {
	uniqueKey = strings.TrimSpace(uniqueKey)
	if uniqueKey == "" {
		return nil, &RecordError{Index: -1, Field: "uniqueKey", Reason: "is required"}
	}
	if !state.Valid() {
		return nil, &RecordError{Index: -1, Field: "state", Reason: "must be one of NEW, ACCEPTED, REJECTED, SNOOZED, RESOLVED"}
	}

	sug, err := s.repo.SetSuggestionState(ctx, workspaceID, uniqueKey, state, s.timestamp())
	if err != nil {
		return nil, storeError("set suggestion state", err)
	}
	logger.Info("ingest: suggestion state changed", "workspace_id", workspaceID, "unique_key", uniqueKey, "state", string(state))
	return sug, nil
}
