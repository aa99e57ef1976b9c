package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the outcome an automation run reports for a job.
type JobStatus string

const (
	JobAck  JobStatus = "ACK"
	JobDone JobStatus = "DONE"
	JobFail JobStatus = "FAIL"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobAck, JobDone, JobFail:
		return true
	}
	return false
}

// ParseJobStatus accepts the status in any letter case ("ack", "Done").
func ParseJobStatus(s string) (JobStatus, bool) {
	st := JobStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.Valid()
}

// JobLogEntry is one append-only ledger row. Retried calls produce
// separate entries.
type JobLogEntry struct {
	ID          uuid.UUID              `json:"id"`
	WorkspaceID uuid.UUID              `json:"workspaceId"`
	JobID       string                 `json:"jobId"`
	Status      JobStatus              `json:"status"`
	Message     string                 `json:"message,omitempty"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}
