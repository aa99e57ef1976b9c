package domain

import (
	"time"

	"github.com/google/uuid"
)

// CampaignMetricRow is one data point sent by the caller.
type CampaignMetricRow struct {
	Source string                 `json:"source"`
	TS     time.Time              `json:"ts"`
	Metric string                 `json:"metric"`
	Value  float64                `json:"value"`
	Meta   map[string]interface{} `json:"meta,omitempty"`
}

// CampaignMetric is a stored data point. (WorkspaceID, Source, TS, Metric)
// is unique; a later write replaces Value and Meta.
type CampaignMetric struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	CampaignMetricRow
	CreatedAt time.Time
	UpdatedAt time.Time
}
