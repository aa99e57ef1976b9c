package insight

import "errors"

var (
	// ErrInvalidURL rejects crawl targets without an http(s) scheme and host.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidRequest rejects a suggest call without html or goal.
	ErrInvalidRequest = errors.New("html and goal are required")
	// ErrMalformedResponse means the model answer held no usable JSON object.
	ErrMalformedResponse = errors.New("malformed completion response")
)
