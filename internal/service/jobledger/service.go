package jobledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/auditai/insight-engine/internal/pkg/logger"
	"github.com/google/uuid"
)

const publishTimeout = 5 * time.Second

// Service appends and reads job ledger entries.
type Service struct {
	repo      Repository
	publisher Publisher
	now       func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher sends every recorded entry to p after it is stored.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a job ledger backed by the given repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordJobEvent appends one entry. Messages longer than the column allows
// are truncated, not rejected.
func (s *Service) RecordJobEvent(ctx context.Context, workspaceID uuid.UUID, jobID string, status domain.JobStatus, message string, meta map[string]interface{}) (*domain.JobLogEntry, error) {
	jobID = strings.TrimSpace(jobID)
	switch {
	case workspaceID == uuid.Nil:
		return nil, fmt.Errorf("%w: workspaceId is required", ErrMalformedRecord)
	case jobID == "":
		return nil, fmt.Errorf("%w: jobId is required", ErrMalformedRecord)
	case utf8.RuneCountInString(jobID) > domain.MaxJobIDLen:
		return nil, fmt.Errorf("%w: jobId exceeds %d characters", ErrMalformedRecord, domain.MaxJobIDLen)
	case !status.Valid():
		return nil, fmt.Errorf("%w: unknown status %q", ErrMalformedRecord, status)
	}

	e := &domain.JobLogEntry{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		JobID:       jobID,
		Status:      status,
		Message:     truncateRunes(message, domain.MaxJobMessage),
		Meta:        meta,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.AppendJobLog(ctx, e); err != nil {
		if errors.Is(err, ErrMalformedRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("append job log: %w: %w", ErrStoreUnavailable, err)
	}
	logger.Info("jobledger: event recorded", "workspace_id", workspaceID, "job_id", jobID, "status", string(status), "entry_id", e.ID)

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := s.publisher.PublishJobEvent(pubCtx, *e); err != nil {
			logger.Warn("jobledger: publish failed", "entry_id", e.ID, "job_id", jobID, "error", err)
		}
	}
	return e, nil
}

// History returns every entry recorded for jobID, oldest first.
func (s *Service) History(ctx context.Context, workspaceID uuid.UUID, jobID string) ([]domain.JobLogEntry, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("%w: jobId is required", ErrMalformedRecord)
	}
	entries, err := s.repo.ListJobLogs(ctx, workspaceID, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job logs: %w: %w", ErrStoreUnavailable, err)
	}
	return entries, nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
