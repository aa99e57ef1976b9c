package ingest

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ingest service layer.
var (
	ErrMalformedRecord  = errors.New("malformed record")
	ErrNotFound         = errors.New("suggestion not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// RecordError pinpoints the batch item and field that failed validation.
// It matches ErrMalformedRecord with errors.Is.
type RecordError struct {
	Index  int
	Field  string
	Reason string
}

func (e *RecordError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("item %d: %s: %s", e.Index, e.Field, e.Reason)
}

func (e *RecordError) Unwrap() error { return ErrMalformedRecord }

// storeError classifies a repository failure. Errors the repository already
// mapped to a sentinel pass through; anything else is the store's fault.
func storeError(op string, err error) error {
	if errors.Is(err, ErrMalformedRecord) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
