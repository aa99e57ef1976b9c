package jobledger

import "errors"

// Sentinel errors for the job ledger.
var (
	ErrMalformedRecord  = errors.New("malformed job event")
	ErrStoreUnavailable = errors.New("store unavailable")
)
