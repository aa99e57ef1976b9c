package insight

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/auditai/insight-engine/internal/domain"
)

type rawInsight struct {
	Text   string `json:"text"`
	Type   string `json:"type"`
	Target string `json:"target"`
	Impact string `json:"impact"`
}

type rawResponse struct {
	Rationale   string       `json:"rationale"`
	Suggestions []rawInsight `json:"suggestions"`
}

// ParseSuggestions reads the model answer. It tolerates markdown fences and
// prose around the JSON object, lower-cases type and impact, and drops
// entries with empty text or an unknown type or impact.
func ParseSuggestions(text string) (*domain.SuggestResponse, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	out := &domain.SuggestResponse{
		Rationale:   strings.TrimSpace(raw.Rationale),
		Suggestions: make([]domain.Insight, 0, len(raw.Suggestions)),
	}
	for _, r := range raw.Suggestions {
		in := domain.Insight{
			Text:   strings.TrimSpace(r.Text),
			Type:   domain.InsightType(strings.ToLower(strings.TrimSpace(r.Type))),
			Target: strings.TrimSpace(r.Target),
			Impact: domain.InsightImpact(strings.ToLower(strings.TrimSpace(r.Impact))),
		}
		if in.Text == "" || !in.Type.Valid() || !in.Impact.Valid() {
			continue
		}
		out.Suggestions = append(out.Suggestions, in)
	}
	return out, nil
}
