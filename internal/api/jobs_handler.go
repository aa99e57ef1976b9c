package api

import (
	"net/http"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/auditai/insight-engine/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type jobEventRequest struct {
	JobID       string                 `json:"jobId"`
	Message     string                 `json:"message"`
	Meta        map[string]interface{} `json:"meta"`
	WorkspaceID string                 `json:"workspaceId"`
}

type jobEventResponse struct {
	ID     uuid.UUID        `json:"id"`
	Status domain.JobStatus `json:"status"`
}

// RecordJobEvent returns a handler that appends a ledger entry with status.
//
//	POST /v1/jobs/ack | /v1/jobs/done | /v1/jobs/fail
func (h *Handlers) RecordJobEvent(status domain.JobStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := resolveWorkspace(r)
		if err != nil {
			respondError(w, r, err)
			return
		}
		var req jobEventRequest
		if err := h.decodeBody(r, schemaJobEvent, &req); err != nil {
			respondError(w, r, err)
			return
		}
		if err := matchWorkspace(ws, req.WorkspaceID); err != nil {
			respondError(w, r, err)
			return
		}

		entry, err := h.jobs.RecordJobEvent(r.Context(), ws, req.JobID, status, req.Message, req.Meta)
		if err != nil {
			respondError(w, r, err)
			return
		}
		httputil.OK(w, jobEventResponse{ID: entry.ID, Status: entry.Status})
	}
}

// JobEvents returns the ledger history of one job, oldest first.
//
//	GET /v1/jobs/{jobId}/events
func (h *Handlers) JobEvents(w http.ResponseWriter, r *http.Request) {
	ws, err := resolveWorkspace(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	events, err := h.jobs.History(r.Context(), ws, chi.URLParam(r, "jobId"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"events": events})
}
