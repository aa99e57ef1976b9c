// Package memory is an in-process implementation of the ingest and job
// ledger repositories. It backs tests and local runs without PostgreSQL;
// data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/auditai/insight-engine/internal/service/ingest"
	"github.com/google/uuid"
)

type suggestionKey struct {
	workspace uuid.UUID
	uniqueKey string
}

type metricKey struct {
	workspace uuid.UUID
	source    string
	tsNanos   int64
	metric    string
}

// Store holds all records behind one mutex. Transactions take the mutex for
// their whole duration and write to a staged copy, so they are serialized
// and atomic.
type Store struct {
	mu          sync.Mutex
	suggestions map[suggestionKey]domain.Suggestion
	metrics     map[metricKey]domain.CampaignMetric
	jobLogs     []domain.JobLogEntry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		suggestions: make(map[suggestionKey]domain.Suggestion),
		metrics:     make(map[metricKey]domain.CampaignMetric),
	}
}

type tx struct {
	suggestions map[suggestionKey]domain.Suggestion
	metrics     map[metricKey]domain.CampaignMetric
}

func (s *Store) WithTx(ctx context.Context, fn func(ingest.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t := &tx{
		suggestions: make(map[suggestionKey]domain.Suggestion, len(s.suggestions)),
		metrics:     make(map[metricKey]domain.CampaignMetric, len(s.metrics)),
	}
	for k, v := range s.suggestions {
		t.suggestions[k] = v
	}
	for k, v := range s.metrics {
		t.metrics[k] = v
	}

	if err := fn(t); err != nil {
		return err
	}
	s.suggestions = t.suggestions
	s.metrics = t.metrics
	return nil
}

func (t *tx) UpsertSuggestion(_ context.Context, sug *domain.Suggestion) (bool, error) {
	k := suggestionKey{workspace: sug.WorkspaceID, uniqueKey: sug.UniqueKey}
	existing, ok := t.suggestions[k]
	if !ok {
		t.suggestions[k] = *sug
		return true, nil
	}

	existing.Source = sug.Source
	existing.Content = sug.Content
	existing.UpdatedAt = sug.UpdatedAt
	t.suggestions[k] = existing

	sug.ID = existing.ID
	sug.State = existing.State
	sug.CreatedAt = existing.CreatedAt
	return false, nil
}

func (t *tx) UpsertCampaignMetric(_ context.Context, m *domain.CampaignMetric) error {
	k := metricKey{workspace: m.WorkspaceID, source: m.Source, tsNanos: m.TS.UnixNano(), metric: m.Metric}
	if existing, ok := t.metrics[k]; ok {
		existing.Value = m.Value
		existing.Meta = m.Meta
		existing.UpdatedAt = m.UpdatedAt
		t.metrics[k] = existing
		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
		return nil
	}
	t.metrics[k] = *m
	return nil
}

func (s *Store) ListSuggestions(_ context.Context, workspaceID uuid.UUID, f domain.SuggestionFilter) ([]domain.Suggestion, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Suggestion
	for k, v := range s.suggestions {
		if k.workspace != workspaceID {
			continue
		}
		if f.State != "" && v.State != f.State {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].UniqueKey < out[j].UniqueKey
	})

	total := len(out)
	if f.Offset >= total {
		return []domain.Suggestion{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total || f.Limit <= 0 {
		end = total
	}
	return out[f.Offset:end], total, nil
}

func (s *Store) SetSuggestionState(_ context.Context, workspaceID uuid.UUID, uniqueKey string, state domain.SuggestionState, at time.Time) (*domain.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := suggestionKey{workspace: workspaceID, uniqueKey: uniqueKey}
	sug, ok := s.suggestions[k]
	if !ok {
		return nil, ingest.ErrNotFound
	}
	sug.State = state
	sug.UpdatedAt = at
	s.suggestions[k] = sug
	return &sug, nil
}

// Suggestion returns a stored suggestion, for assertions.
func (s *Store) Suggestion(workspaceID uuid.UUID, uniqueKey string) (domain.Suggestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sug, ok := s.suggestions[suggestionKey{workspace: workspaceID, uniqueKey: uniqueKey}]
	return sug, ok
}

// Metrics returns a workspace's stored metrics ordered by ts.
func (s *Store) Metrics(workspaceID uuid.UUID) []domain.CampaignMetric {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CampaignMetric
	for k, v := range s.metrics {
		if k.workspace == workspaceID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	return out
}

// Counts reports how many suggestions, metrics and job log rows exist.
func (s *Store) Counts() (suggestions, metrics, jobLogs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.suggestions), len(s.metrics), len(s.jobLogs)
}

func (s *Store) AppendJobLog(_ context.Context, e *domain.JobLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobLogs = append(s.jobLogs, *e)
	return nil
}

func (s *Store) ListJobLogs(_ context.Context, workspaceID uuid.UUID, jobID string) ([]domain.JobLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.JobLogEntry{}
	for _, e := range s.jobLogs {
		if e.WorkspaceID == workspaceID && e.JobID == jobID {
			out = append(out, e)
		}
	}
	return out, nil
}
