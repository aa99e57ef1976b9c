package jobledger

import (
	"context"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/google/uuid"
)

// Repository defines the data access contract for job log entries.
// Implementations must be safe for concurrent use.
type Repository interface {
	// AppendJobLog inserts e as a new row.
	AppendJobLog(ctx context.Context, e *domain.JobLogEntry) error

	// ListJobLogs returns a job's entries oldest first.
	ListJobLogs(ctx context.Context, workspaceID uuid.UUID, jobID string) ([]domain.JobLogEntry, error)
}

// Publisher forwards recorded entries to other systems.
type Publisher interface {
	PublishJobEvent(ctx context.Context, e domain.JobLogEntry) error
}
