package api

import (
	"errors"
	"net/http"

	"github.com/auditai/insight-engine/internal/crawler"
	"github.com/auditai/insight-engine/internal/pkg/httputil"
	"github.com/auditai/insight-engine/internal/pkg/logger"
	"github.com/auditai/insight-engine/internal/service/ingest"
	"github.com/auditai/insight-engine/internal/service/insight"
	"github.com/auditai/insight-engine/internal/service/jobledger"
	"github.com/go-chi/chi/v5/middleware"
)

// errorClass is the status, code and public message for one error family.
// An empty message means the error text itself is safe to show.
type errorClass struct {
	status  int
	code    string
	message string
}

var errorClasses = []struct {
	target error
	class  errorClass
}{
	{ErrInvalidWorkspace, errorClass{http.StatusBadRequest, "invalid_workspace", ""}},
	{ErrWorkspaceMismatch, errorClass{http.StatusBadRequest, "workspace_mismatch", ""}},
	{errBodyTooLarge, errorClass{http.StatusRequestEntityTooLarge, "body_too_large", ""}},
	{errInvalidBody, errorClass{http.StatusBadRequest, "invalid_body", ""}},
	{ingest.ErrMalformedRecord, errorClass{http.StatusBadRequest, "malformed_record", ""}},
	{jobledger.ErrMalformedRecord, errorClass{http.StatusBadRequest, "malformed_record", ""}},
	{insight.ErrInvalidURL, errorClass{http.StatusBadRequest, "invalid_url", ""}},
	{insight.ErrInvalidRequest, errorClass{http.StatusBadRequest, "invalid_request", ""}},
	{ingest.ErrNotFound, errorClass{http.StatusNotFound, "not_found", ""}},
	{ingest.ErrStoreUnavailable, errorClass{http.StatusServiceUnavailable, "store_unavailable", "storage temporarily unavailable"}},
	{jobledger.ErrStoreUnavailable, errorClass{http.StatusServiceUnavailable, "store_unavailable", "storage temporarily unavailable"}},
	{crawler.ErrFetchTimeout, errorClass{http.StatusGatewayTimeout, "fetch_timeout", "page fetch timed out"}},
	{crawler.ErrFetchFailed, errorClass{http.StatusBadGateway, "fetch_failed", "page fetch failed"}},
}

func classifyError(err error) errorClass {
	for _, ec := range errorClasses {
		if errors.Is(err, ec.target) {
			return ec.class
		}
	}
	return errorClass{http.StatusInternalServerError, "internal", "an internal error occurred"}
}

// respondError maps err to its status. 4xx responses carry the error text;
// 5xx responses carry a fixed public message and the full error is logged.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	ec := classifyError(err)
	if ec.status >= 500 {
		logger.Error("api: request failed",
			"method", r.Method, "path", r.URL.Path, "status", ec.status,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
		httputil.Error(w, ec.status, ec.code, ec.message)
		return
	}

	var recErr *ingest.RecordError
	if errors.As(err, &recErr) && recErr.Index >= 0 {
		httputil.ErrorWithDetails(w, ec.status, ec.code, err.Error(), map[string]interface{}{
			"index": recErr.Index,
			"field": recErr.Field,
		})
		return
	}
	msg := ec.message
	if msg == "" {
		msg = err.Error()
	}
	httputil.Error(w, ec.status, ec.code, msg)
}
