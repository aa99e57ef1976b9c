package postgres

import (
	"errors"
	"fmt"

	"github.com/auditai/insight-engine/internal/service/ingest"
	"github.com/lib/pq"
)

// classify wraps err with op. PostgreSQL data exceptions (class 22) and
// integrity violations (class 23) are caused by the record itself and map
// to ingest.ErrMalformedRecord. Everything else stays unclassified so the
// service reports it as a store failure.
func classify(op string, err error) error {
	return classifyAs(op, err, ingest.ErrMalformedRecord)
}

func classifyAs(op string, err, malformed error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "22", "23":
			return fmt.Errorf("%s: %w: %s", op, malformed, pqErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
