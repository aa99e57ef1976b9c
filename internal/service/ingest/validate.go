package ingest

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/auditai/insight-engine/internal/domain"
)

// DefaultSource is recorded for suggestions that do not name their producer.
const DefaultSource = "import"

// normalizeSuggestion validates rec and returns its content with defaults
// applied, plus the effective key and source.
func normalizeSuggestion(i int, rec domain.SuggestionRecord) (domain.SuggestionContent, string, string, error) {
	c := rec.SuggestionContent
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" {
		return c, "", "", &RecordError{Index: i, Field: "title", Reason: "is required"}
	}
	if utf8.RuneCountInString(c.Title) > domain.MaxTitleLen {
		return c, "", "", &RecordError{Index: i, Field: "title", Reason: "exceeds 512 characters"}
	}

	if c.Priority == "" {
		c.Priority = domain.PriorityMedium
	} else if !c.Priority.Valid() {
		return c, "", "", &RecordError{Index: i, Field: "priority", Reason: "must be one of High, Medium, Low"}
	}
	if c.Category == "" {
		c.Category = domain.CategoryOperations
	} else if !c.Category.Valid() {
		return c, "", "", &RecordError{Index: i, Field: "category", Reason: "must be one of Marketing, Merchandising, Operations"}
	}
	if c.Impact != "" && !c.Impact.Valid() {
		return c, "", "", &RecordError{Index: i, Field: "impact", Reason: "must be one of Low, Medium, High"}
	}
	if c.Effort != "" && !c.Effort.Valid() {
		return c, "", "", &RecordError{Index: i, Field: "effort", Reason: "must be one of Low, Medium, High"}
	}

	key := EffectiveKey(rec.UniqueKey, c.Title)
	if utf8.RuneCountInString(key) > domain.MaxUniqueKeyLen {
		return c, "", "", &RecordError{Index: i, Field: "uniqueKey", Reason: "exceeds 255 characters"}
	}

	source := strings.TrimSpace(rec.Source)
	if source == "" {
		source = DefaultSource
	}
	if utf8.RuneCountInString(source) > domain.MaxSourceLen {
		return c, "", "", &RecordError{Index: i, Field: "source", Reason: "exceeds 64 characters"}
	}
	return c, key, source, nil
}

func validateMetric(i int, row domain.CampaignMetricRow) (domain.CampaignMetricRow, error) {
	row.Source = strings.TrimSpace(row.Source)
	row.Metric = strings.TrimSpace(row.Metric)

	switch {
	case row.Source == "":
		return row, &RecordError{Index: i, Field: "source", Reason: "is required"}
	case utf8.RuneCountInString(row.Source) > domain.MaxSourceLen:
		return row, &RecordError{Index: i, Field: "source", Reason: "exceeds 64 characters"}
	case row.Metric == "":
		return row, &RecordError{Index: i, Field: "metric", Reason: "is required"}
	case utf8.RuneCountInString(row.Metric) > domain.MaxMetricLen:
		return row, &RecordError{Index: i, Field: "metric", Reason: "exceeds 128 characters"}
	case row.TS.IsZero():
		return row, &RecordError{Index: i, Field: "ts", Reason: "is required"}
	case row.TS.Nanosecond()%int(time.Microsecond) != 0:
		// timestamptz stores microseconds; anything finer would be rounded
		// and could merge two distinct points.
		return row, &RecordError{Index: i, Field: "ts", Reason: "precision finer than a microsecond is not supported"}
	case math.IsNaN(row.Value) || math.IsInf(row.Value, 0):
		return row, &RecordError{Index: i, Field: "value", Reason: "must be a finite number"}
	}
	row.TS = row.TS.UTC()
	return row, nil
}
