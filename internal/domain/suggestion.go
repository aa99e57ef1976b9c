package domain

import (
	"time"

	"github.com/google/uuid"
)

// Priority ranks how urgently a suggestion should be acted on.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Category groups suggestions by the team that owns them.
type Category string

const (
	CategoryMarketing     Category = "Marketing"
	CategoryMerchandising Category = "Merchandising"
	CategoryOperations    Category = "Operations"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryMarketing, CategoryMerchandising, CategoryOperations:
		return true
	}
	return false
}

// Level is the Low/Medium/High scale used for impact and effort.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// SuggestionState is the review state of a stored suggestion.
type SuggestionState string

const (
	StateNew      SuggestionState = "NEW"
	StateAccepted SuggestionState = "ACCEPTED"
	StateRejected SuggestionState = "REJECTED"
	StateSnoozed  SuggestionState = "SNOOZED"
	StateResolved SuggestionState = "RESOLVED"
)

func (s SuggestionState) Valid() bool {
	switch s {
	case StateNew, StateAccepted, StateRejected, StateSnoozed, StateResolved:
		return true
	}
	return false
}

// Field limits shared by validation and the database schema.
const (
	MaxUniqueKeyLen = 255
	MaxTitleLen     = 512
	MaxSourceLen    = 64
	MaxMetricLen    = 128
	MaxJobIDLen     = 128
	MaxJobMessage   = 2000
)

// SuggestionContent is everything an import may overwrite. It is stored as
// the JSONB payload of a suggestion row.
type SuggestionContent struct {
	Title    string                 `json:"title"`
	Summary  string                 `json:"summary,omitempty"`
	Priority Priority               `json:"priority"`
	Category Category               `json:"category"`
	Impact   Level                  `json:"impact,omitempty"`
	Effort   Level                  `json:"effort,omitempty"`
	What     string                 `json:"what,omitempty"`
	Why      string                 `json:"why,omitempty"`
	How      []string               `json:"how,omitempty"`
	DataUsed []string               `json:"dataUsed,omitempty"`
	Risks    []string               `json:"risks,omitempty"`
	Actions  []string               `json:"actions,omitempty"`
	Sources  []string               `json:"sources,omitempty"`
	Meta     map[string]interface{} `json:"meta,omitempty"`
}

// SuggestionRecord is one item of an import batch as sent by the caller.
type SuggestionRecord struct {
	SuggestionContent
	UniqueKey string `json:"uniqueKey,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Suggestion is a stored suggestion. (WorkspaceID, UniqueKey) is unique.
type Suggestion struct {
	ID          uuid.UUID         `json:"id"`
	WorkspaceID uuid.UUID         `json:"workspaceId"`
	UniqueKey   string            `json:"uniqueKey"`
	Source      string            `json:"source"`
	Content     SuggestionContent `json:"content"`
	State       SuggestionState   `json:"state"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// SuggestionFilter narrows a suggestion listing.
type SuggestionFilter struct {
	State  SuggestionState
	Limit  int
	Offset int
}
