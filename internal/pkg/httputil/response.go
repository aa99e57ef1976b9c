package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/auditai/insight-engine/internal/pkg/logger"
)

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data as a JSON body with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("httputil: encode response", "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error writes the error envelope. Callers are responsible for not passing
// internal details in message for 5xx statuses.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

// ErrorWithDetails writes the error envelope with a details payload.
func ErrorWithDetails(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, code, message string) {
	Error(w, http.StatusBadRequest, code, message)
}

// InternalError logs err and writes a generic 500.
func InternalError(w http.ResponseWriter, err error) {
	logger.Error("httputil: internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal", "internal server error")
}

// ReadBody reads at most limit bytes of the request body. A body over the
// limit is an error so truncated JSON never reaches a decoder.
func ReadBody(r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

var errBodyTooLarge = errors.New("request body too large")

// IsBodyTooLarge reports whether err came from ReadBody's size limit.
func IsBodyTooLarge(err error) bool { return errors.Is(err, errBodyTooLarge) }
