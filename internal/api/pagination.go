package api

import (
	"net/http"
	"strconv"
)

// PaginationParams holds parsed limit/offset query values.
type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset. Missing or invalid values fall
// back to defaultLimit and 0; limit is capped at maxLimit.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) PaginationParams {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return PaginationParams{Limit: limit, Offset: offset}
}
