package domain

// PageTypeUnknown is the placeholder classification; pages are not classified yet.
const PageTypeUnknown = "unknown"

// PageData is the DOM summary returned by a crawl.
type PageData struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	HTML          string   `json:"html"`
	Headings      []string `json:"headings"`
	CTAs          []string `json:"ctas"`
	Forms         []string `json:"forms"`
	PageType      string   `json:"page_type"`
	ScreenshotURL string   `json:"screenshot_url,omitempty"`
	SnapshotURL   string   `json:"snapshot_url,omitempty"`
}

// InsightType is the kind of page change a CRO suggestion proposes.
type InsightType string

const (
	InsightCopy   InsightType = "copy"
	InsightLayout InsightType = "layout"
	InsightModule InsightType = "module"
)

func (t InsightType) Valid() bool {
	switch t {
	case InsightCopy, InsightLayout, InsightModule:
		return true
	}
	return false
}

// InsightImpact is the expected effect of an insight, lower-case on the wire.
type InsightImpact string

const (
	InsightImpactLow    InsightImpact = "low"
	InsightImpactMedium InsightImpact = "medium"
	InsightImpactHigh   InsightImpact = "high"
)

func (i InsightImpact) Valid() bool {
	switch i {
	case InsightImpactLow, InsightImpactMedium, InsightImpactHigh:
		return true
	}
	return false
}

// Insight is one generated CRO suggestion for a page.
type Insight struct {
	Text   string        `json:"text"`
	Type   InsightType   `json:"type"`
	Target string        `json:"target"`
	Impact InsightImpact `json:"impact"`
}

// SuggestResponse is the body returned by the suggest endpoint.
type SuggestResponse struct {
	Rationale   string    `json:"rationale"`
	Suggestions []Insight `json:"suggestions"`
}
