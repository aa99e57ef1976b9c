package api

import (
	"net/http"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/auditai/insight-engine/internal/pkg/httputil"
)

type upsertMetricsRequest struct {
	WorkspaceID string                     `json:"workspaceId"`
	Rows        []domain.CampaignMetricRow `json:"rows"`
}

// UpsertCampaignMetrics writes time-series points for the header's
// workspace. ts must be RFC 3339.
//
//	POST /v1/data/upsert/campaign_metrics
func (h *Handlers) UpsertCampaignMetrics(w http.ResponseWriter, r *http.Request) {
	ws, err := resolveWorkspace(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req upsertMetricsRequest
	if err := h.decodeBody(r, schemaCampaignMetrics, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := matchWorkspace(ws, req.WorkspaceID); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.ingest.UpsertCampaignMetrics(r.Context(), ws, req.Rows)
	if err != nil {
		respondError(w, r, err)
		return
	}
	httputil.OK(w, res)
}
