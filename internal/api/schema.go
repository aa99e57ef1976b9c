package api

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"

	"github.com/auditai/insight-engine/internal/service/ingest"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://insight-engine.local/schemas/"

// Schema names, matching the files under schemas/.
const (
	schemaSuggestionsImport = "suggestions_import"
	schemaCampaignMetrics   = "campaign_metrics"
	schemaJobEvent          = "job_event"
	schemaSuggestionState   = "suggestion_state"
	schemaCrawl             = "crawl"
	schemaSuggest           = "suggest"
)

// errInvalidBody marks a body that is not JSON or fails its schema.
var errInvalidBody = errors.New("invalid request body")

type schemaSet struct {
	schemas map[string]*jsonschema.Schema
}

func loadSchemas() (*schemaSet, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}

	var names []string
	for _, e := range entries {
		data, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse schema %s: %w", e.Name(), err)
		}
		if err := c.AddResource(schemaBaseURL+e.Name(), doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", e.Name(), err)
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}

	set := &schemaSet{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		sch, err := c.Compile(schemaBaseURL + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		set.schemas[name] = sch
	}
	return set, nil
}

// validate checks body against the named schema.
func (s *schemaSet) validate(name string, body []byte) error {
	sch, ok := s.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: not valid JSON: %w", errInvalidBody, err)
	}
	if err := sch.Validate(inst); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			if rec := batchItemError(ve); rec != nil {
				return rec
			}
		}
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	return nil
}

// batchItemLocation matches an instance location inside one element of a
// batch body's items or rows array, capturing the index and the field.
var batchItemLocation = regexp.MustCompile(`^/(?:items|rows)/(\d+)(?:/([^/]+))?`)

// batchItemError reports a schema failure inside a batch element as a
// malformed record carrying the element index and field. The lowest failing
// index wins. Failures outside the array return nil.
func batchItemError(ve *jsonschema.ValidationError) *ingest.RecordError {
	var found *ingest.RecordError
	for _, unit := range ve.BasicOutput().Errors {
		if unit.Error == nil {
			continue
		}
		switch unit.Error.Kind.(type) {
		case *kind.Group, *kind.Schema, *kind.Reference:
			continue
		}
		m := batchItemLocation.FindStringSubmatch(unit.InstanceLocation)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || (found != nil && found.Index <= idx) {
			continue
		}
		field, reason := m[2], unit.Error.String()
		if req, ok := unit.Error.Kind.(*kind.Required); ok && field == "" && len(req.Missing) > 0 {
			field, reason = req.Missing[0], "is required"
		}
		found = &ingest.RecordError{Index: idx, Field: field, Reason: reason}
	}
	return found
}
