package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/auditai/insight-engine/internal/pkg/httputil"
	"github.com/auditai/insight-engine/internal/service/ingest"
	"github.com/auditai/insight-engine/internal/service/insight"
	"github.com/auditai/insight-engine/internal/service/jobledger"
)

const defaultMaxBodyBytes = 10 << 20

var errBodyTooLarge = errors.New("request body too large")

// Handlers holds the services behind the HTTP routes.
type Handlers struct {
	ingest  *ingest.Service
	jobs    *jobledger.Service
	insight *insight.Service
	schemas *schemaSet
	maxBody int64
}

// NewHandlers compiles the request schemas and returns the handler set.
func NewHandlers(ing *ingest.Service, jobs *jobledger.Service, ins *insight.Service, maxBody int64) (*Handlers, error) {
	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Handlers{ingest: ing, jobs: jobs, insight: ins, schemas: schemas, maxBody: maxBody}, nil
}

// decodeBody reads the request body, validates it against the named schema
// and decodes it into dst.
func (h *Handlers) decodeBody(r *http.Request, schema string, dst interface{}) error {
	body, err := httputil.ReadBody(r, h.maxBody)
	if err != nil {
		if httputil.IsBodyTooLarge(err) {
			return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, h.maxBody)
		}
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	if err := h.schemas.validate(schema, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	return nil
}

// Ping is the guarded liveness check.
//
//	GET /v1/service/ping
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]bool{"ok": true})
}
