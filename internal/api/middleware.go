package api

import (
	"net/http"
	"time"

	"github.com/auditai/insight-engine/internal/pkg/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger logs one line per request through the service logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			}
			if ws := r.Header.Get(WorkspaceHeader); ws != "" {
				fields = append(fields, "workspace_id", ws)
			}
			switch {
			case status >= 500:
				logger.Error("http request", fields...)
			case status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
		}()
		next.ServeHTTP(ww, r)
	})
}
