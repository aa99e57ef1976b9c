package ingest_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/auditai/insight-engine/internal/repository/memory"
	"github.com/auditai/insight-engine/internal/service/ingest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	wsA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	wsB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	t0  = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

// clock advances by one second per call.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newService(repo ingest.Repository, opts ...ingest.Option) *ingest.Service {
	c := &clock{now: t0}
	return ingest.NewService(repo, append([]ingest.Option{ingest.WithClock(c.Now)}, opts...)...)
}

func rec(title, key string) domain.SuggestionRecord {
	return domain.SuggestionRecord{
		SuggestionContent: domain.SuggestionContent{Title: title, Priority: domain.PriorityHigh, Category: domain.CategoryMarketing},
		UniqueKey:         key,
	}
}

func TestImportSuggestions_CreatesThenUpdates(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	batch := []domain.SuggestionRecord{rec("Add urgency to CTA", "cta-1"), rec("Show reviews", "")}

	res, err := svc.ImportSuggestions(ctx, wsA, batch)
	require.NoError(t, err)
	assert.Equal(t, ingest.ImportResult{Created: 2, Updated: 0}, res)

	first, ok := store.Suggestion(wsA, "cta-1")
	require.True(t, ok)
	assert.Equal(t, domain.StateNew, first.State)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	res, err = svc.ImportSuggestions(ctx, wsA, batch)
	require.NoError(t, err)
	assert.Equal(t, ingest.ImportResult{Created: 0, Updated: 2}, res)

	second, ok := store.Suggestion(wsA, "cta-1")
	require.True(t, ok)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.Equal(t, first.Content, second.Content)

	n, _, _ := store.Counts()
	assert.Equal(t, 2, n)
}

func TestImportSuggestions_ReplayLeavesIdenticalState(t *testing.T) {
	store := memory.NewStore()
	fixed := func() time.Time { return t0 }
	svc := ingest.NewService(store, ingest.WithClock(fixed))
	ctx := context.Background()

	batch := []domain.SuggestionRecord{rec("Add urgency to CTA", "cta-1")}
	_, err := svc.ImportSuggestions(ctx, wsA, batch)
	require.NoError(t, err)
	before, _ := store.Suggestion(wsA, "cta-1")

	_, err = svc.ImportSuggestions(ctx, wsA, batch)
	require.NoError(t, err)
	after, _ := store.Suggestion(wsA, "cta-1")

	assert.Equal(t, before, after)
}

func TestImportSuggestions_UpdateOverwritesContentKeepsState(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.ImportSuggestions(ctx, wsA, []domain.SuggestionRecord{rec("Add urgency to CTA", "cta-1")})
	require.NoError(t, err)
	_, err = svc.SetSuggestionState(ctx, wsA, "cta-1", domain.StateAccepted)
	require.NoError(t, err)

	changed := rec("Add a countdown to the CTA", "cta-1")
	changed.Priority = domain.PriorityLow
	changed.How = []string{"add timer"}
	res, err := svc.ImportSuggestions(ctx, wsA, []domain.SuggestionRecord{changed})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	got, _ := store.Suggestion(wsA, "cta-1")
	assert.Equal(t, domain.StateAccepted, got.State)
	assert.Equal(t, "Add a countdown to the CTA", got.Content.Title)
	assert.Equal(t, domain.PriorityLow, got.Content.Priority)
	assert.Equal(t, []string{"add timer"}, got.Content.How)
}

func TestImportSuggestions_FallbackKeyFromNormalizedTitle(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	res, err := svc.ImportSuggestions(ctx, wsA, []domain.SuggestionRecord{
		rec("Add urgency to CTA", ""),
		rec("  add   URGENCY to cta ", ""),
	})
	require.NoError(t, err)
	assert.Equal(t, ingest.ImportResult{Created: 1, Updated: 1}, res)

	_, ok := store.Suggestion(wsA, ingest.FallbackKey("Add urgency to CTA"))
	assert.True(t, ok)
}

func TestImportSuggestions_WorkspaceIsolation(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	for _, ws := range []uuid.UUID{wsA, wsB} {
		res, err := svc.ImportSuggestions(ctx, ws, []domain.SuggestionRecord{rec("Same", "same-key")})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Created)
	}
	a, okA := store.Suggestion(wsA, "same-key")
	b, okB := store.Suggestion(wsB, "same-key")
	require.True(t, okA)
	require.True(t, okB)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestImportSuggestions_Defaults(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)

	_, err := svc.ImportSuggestions(context.Background(), wsA, []domain.SuggestionRecord{
		{SuggestionContent: domain.SuggestionContent{Title: "Bare"}, UniqueKey: "bare"},
	})
	require.NoError(t, err)

	got, _ := store.Suggestion(wsA, "bare")
	assert.Equal(t, domain.PriorityMedium, got.Content.Priority)
	assert.Equal(t, domain.CategoryOperations, got.Content.Category)
	assert.Equal(t, ingest.DefaultSource, got.Source)
}

func TestImportSuggestions_MalformedRejectsWholeBatch(t *testing.T) {
	cases := []struct {
		name  string
		item  domain.SuggestionRecord
		field string
	}{
		{"missing title", rec("   ", "k"), "title"},
		{"bad priority", func() domain.SuggestionRecord { r := rec("x", "k"); r.Priority = "Urgent"; return r }(), "priority"},
		{"bad category", func() domain.SuggestionRecord { r := rec("x", "k"); r.Category = "Sales"; return r }(), "category"},
		{"bad impact", func() domain.SuggestionRecord { r := rec("x", "k"); r.Impact = "Huge"; return r }(), "impact"},
		{"bad effort", func() domain.SuggestionRecord { r := rec("x", "k"); r.Effort = "none"; return r }(), "effort"},
		{"long key", rec("x", string(make([]rune, 256))), "uniqueKey"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := memory.NewStore()
			svc := newService(store)

			_, err := svc.ImportSuggestions(context.Background(), wsA, []domain.SuggestionRecord{rec("valid", "ok"), tc.item})
			require.Error(t, err)
			assert.ErrorIs(t, err, ingest.ErrMalformedRecord)

			var recErr *ingest.RecordError
			require.True(t, errors.As(err, &recErr))
			assert.Equal(t, 1, recErr.Index)
			assert.Equal(t, tc.field, recErr.Field)

			n, _, _ := store.Counts()
			assert.Zero(t, n, "no item may be written when any item is malformed")
		})
	}
}

func TestImportSuggestions_BatchLimit(t *testing.T) {
	svc := newService(memory.NewStore(), ingest.WithMaxBatchSize(2))
	_, err := svc.ImportSuggestions(context.Background(), wsA, []domain.SuggestionRecord{rec("a", "a"), rec("b", "b"), rec("c", "c")})
	assert.ErrorIs(t, err, ingest.ErrMalformedRecord)
}

func TestImportSuggestions_NilWorkspace(t *testing.T) {
	svc := newService(memory.NewStore())
	_, err := svc.ImportSuggestions(context.Background(), uuid.Nil, []domain.SuggestionRecord{rec("a", "a")})
	assert.ErrorIs(t, err, ingest.ErrMalformedRecord)
}

func TestImportSuggestions_EmptyBatch(t *testing.T) {
	svc := newService(memory.NewStore())
	res, err := svc.ImportSuggestions(context.Background(), wsA, nil)
	require.NoError(t, err)
	assert.Equal(t, ingest.ImportResult{}, res)
}

// faultyRepo fails the upsert of one unique key after earlier items in the
// same transaction were written.
type faultyRepo struct {
	*memory.Store
	failKey string
	err     error
}

type faultyTx struct {
	ingest.Tx
	failKey string
	err     error
}

func (f faultyRepo) WithTx(ctx context.Context, fn func(ingest.Tx) error) error {
	return f.Store.WithTx(ctx, func(tx ingest.Tx) error {
		return fn(faultyTx{Tx: tx, failKey: f.failKey, err: f.err})
	})
}

func (f faultyTx) UpsertSuggestion(ctx context.Context, s *domain.Suggestion) (bool, error) {
	if s.UniqueKey == f.failKey {
		return false, f.err
	}
	return f.Tx.UpsertSuggestion(ctx, s)
}

func TestImportSuggestions_StoreFailureRollsBack(t *testing.T) {
	store := memory.NewStore()
	svc := newService(faultyRepo{Store: store, failKey: "b", err: errors.New("connection reset by peer")})

	_, err := svc.ImportSuggestions(context.Background(), wsA, []domain.SuggestionRecord{rec("a", "a"), rec("b", "b"), rec("c", "c")})
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrStoreUnavailable)

	n, _, _ := store.Counts()
	assert.Zero(t, n)
}

func TestImportSuggestions_ClassifiedStoreErrorPassesThrough(t *testing.T) {
	store := memory.NewStore()
	svc := newService(faultyRepo{Store: store, failKey: "a", err: ingest.ErrMalformedRecord})

	_, err := svc.ImportSuggestions(context.Background(), wsA, []domain.SuggestionRecord{rec("a", "a")})
	assert.ErrorIs(t, err, ingest.ErrMalformedRecord)
	assert.NotErrorIs(t, err, ingest.ErrStoreUnavailable)
}

// recordingRepo notes the order in which a transaction writes rows.
type recordingRepo struct {
	*memory.Store
	mu   sync.Mutex
	keys []string
}

type recordingTx struct {
	ingest.Tx
	repo *recordingRepo
}

func (r *recordingRepo) WithTx(ctx context.Context, fn func(ingest.Tx) error) error {
	return r.Store.WithTx(ctx, func(tx ingest.Tx) error {
		return fn(recordingTx{Tx: tx, repo: r})
	})
}

func (r *recordingRepo) record(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
}

func (r recordingTx) UpsertSuggestion(ctx context.Context, s *domain.Suggestion) (bool, error) {
	r.repo.record(s.UniqueKey)
	return r.Tx.UpsertSuggestion(ctx, s)
}

func (r recordingTx) UpsertCampaignMetric(ctx context.Context, m *domain.CampaignMetric) error {
	r.repo.record(m.Source + "/" + m.TS.Format(time.RFC3339) + "/" + m.Metric)
	return r.Tx.UpsertCampaignMetric(ctx, m)
}

func TestImportSuggestions_WritesInKeyOrder(t *testing.T) {
	repo := &recordingRepo{Store: memory.NewStore()}
	svc := newService(repo)

	res, err := svc.ImportSuggestions(context.Background(), wsA, []domain.SuggestionRecord{
		rec("Third", "c"), rec("First b", "b"), rec("Only a", "a"), rec("Second b", "b"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "b", "c"}, repo.keys)
	assert.Equal(t, ingest.ImportResult{Created: 3, Updated: 1}, res)

	got, ok := repo.Suggestion(wsA, "b")
	require.True(t, ok)
	assert.Equal(t, "Second b", got.Content.Title, "later duplicates still win")
}

func TestImportSuggestions_StoreErrorNamesBatchIndex(t *testing.T) {
	svc := newService(faultyRepo{Store: memory.NewStore(), failKey: "b", err: errors.New("deadlock detected")})

	_, err := svc.ImportSuggestions(context.Background(), wsA, []domain.SuggestionRecord{rec("c", "c"), rec("a", "a"), rec("b", "b")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 2")
}

func TestUpsertCampaignMetrics_WritesInKeyOrder(t *testing.T) {
	repo := &recordingRepo{Store: memory.NewStore()}
	svc := newService(repo)
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	res, err := svc.UpsertCampaignMetrics(context.Background(), wsA, []domain.CampaignMetricRow{
		{Source: "meta", TS: ts, Metric: "ctr", Value: 0.4},
		{Source: "ga4", TS: ts.Add(time.Hour), Metric: "ctr", Value: 0.3},
		{Source: "ga4", TS: ts, Metric: "sessions", Value: 10},
		{Source: "ga4", TS: ts, Metric: "ctr", Value: 0.2},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Upserts)
	assert.Equal(t, []string{
		"ga4/2025-03-01T00:00:00Z/ctr",
		"ga4/2025-03-01T00:00:00Z/sessions",
		"ga4/2025-03-01T01:00:00Z/ctr",
		"meta/2025-03-01T00:00:00Z/ctr",
	}, repo.keys)
}

func TestImportSuggestions_ConcurrentSameKey(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := ingest.ImportResult{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.ImportSuggestions(context.Background(), wsA, []domain.SuggestionRecord{rec("Race", "race-1")})
			assert.NoError(t, err)
			mu.Lock()
			total.Created += res.Created
			total.Updated += res.Updated
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, total.Created)
	assert.Equal(t, 19, total.Updated)
	n, _, _ := store.Counts()
	assert.Equal(t, 1, n)
}

func TestUpsertCampaignMetrics_LastWriteWins(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	res, err := svc.UpsertCampaignMetrics(ctx, wsA, []domain.CampaignMetricRow{{Source: "ga4", TS: ts, Metric: "ctr", Value: 0.1}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserts)

	res, err = svc.UpsertCampaignMetrics(ctx, wsA, []domain.CampaignMetricRow{{Source: "ga4", TS: ts, Metric: "ctr", Value: 0.2}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserts)

	rows := store.Metrics(wsA)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.2, rows[0].Value)
	assert.True(t, rows[0].UpdatedAt.After(rows[0].CreatedAt))
}

func TestUpsertCampaignMetrics_ExactTimestampIdentity(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	sameInstantElsewhere := ts.In(time.FixedZone("CET", 3600))

	_, err := svc.UpsertCampaignMetrics(context.Background(), wsA, []domain.CampaignMetricRow{
		{Source: "ga4", TS: ts, Metric: "ctr", Value: 0.1},
		{Source: "ga4", TS: ts.Add(time.Millisecond), Metric: "ctr", Value: 0.3},
		{Source: "ga4", TS: sameInstantElsewhere, Metric: "ctr", Value: 0.4},
	})
	require.NoError(t, err)

	rows := store.Metrics(wsA)
	require.Len(t, rows, 2)
	assert.Equal(t, 0.4, rows[0].Value)
	assert.Equal(t, 0.3, rows[1].Value)
}

func TestUpsertCampaignMetrics_Malformed(t *testing.T) {
	ts := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := map[string]domain.CampaignMetricRow{
		"missing source": {TS: ts, Metric: "ctr"},
		"missing metric": {Source: "ga4", TS: ts},
		"missing ts":     {Source: "ga4", Metric: "ctr"},
		"nanosecond ts":  {Source: "ga4", TS: ts.Add(1), Metric: "ctr"},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			store := memory.NewStore()
			svc := newService(store)
			_, err := svc.UpsertCampaignMetrics(context.Background(), wsA, []domain.CampaignMetricRow{row})
			assert.ErrorIs(t, err, ingest.ErrMalformedRecord)
			_, m, _ := store.Counts()
			assert.Zero(t, m)
		})
	}
}

func TestListSuggestions(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.ImportSuggestions(ctx, wsA, []domain.SuggestionRecord{rec("a", "a"), rec("b", "b"), rec("c", "c")})
	require.NoError(t, err)
	_, err = svc.SetSuggestionState(ctx, wsA, "b", domain.StateSnoozed)
	require.NoError(t, err)

	all, total, err := svc.ListSuggestions(ctx, wsA, domain.SuggestionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)
	assert.Equal(t, "b", all[0].UniqueKey, "most recently updated first")

	snoozed, total, err := svc.ListSuggestions(ctx, wsA, domain.SuggestionFilter{State: domain.StateSnoozed})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "b", snoozed[0].UniqueKey)

	other, total, err := svc.ListSuggestions(ctx, wsB, domain.SuggestionFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, other)

	_, _, err = svc.ListSuggestions(ctx, wsA, domain.SuggestionFilter{State: "DONE"})
	assert.ErrorIs(t, err, ingest.ErrMalformedRecord)
}

func TestSetSuggestionState(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.SetSuggestionState(ctx, wsA, "missing", domain.StateAccepted)
	assert.ErrorIs(t, err, ingest.ErrNotFound)

	_, err = svc.ImportSuggestions(ctx, wsA, []domain.SuggestionRecord{rec("a", "a")})
	require.NoError(t, err)

	_, err = svc.SetSuggestionState(ctx, wsA, "a", "MAYBE")
	assert.ErrorIs(t, err, ingest.ErrMalformedRecord)

	got, err := svc.SetSuggestionState(ctx, wsA, "a", domain.StateResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.StateResolved, got.State)

	_, err = svc.SetSuggestionState(ctx, wsB, "a", domain.StateResolved)
	assert.ErrorIs(t, err, ingest.ErrNotFound, "state changes are scoped to the workspace")
}
