// Package auth guards the service API with a shared bearer secret.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/auditai/insight-engine/internal/pkg/httputil"
	"github.com/auditai/insight-engine/internal/pkg/logger"
)

var (
	// ErrUnauthenticated means no Authorization header was sent.
	ErrUnauthenticated = errors.New("missing bearer token")
	// ErrMisconfigured means the service has no secret to compare against.
	ErrMisconfigured = errors.New("service bearer not configured")
	// ErrForbidden means the scheme or token is wrong.
	ErrForbidden = errors.New("invalid service token")
)

// Guard compares bearer tokens against one secret read at startup.
type Guard struct {
	secret []byte
}

// NewGuard returns a guard for secret. An empty secret is accepted here and
// rejected per request with ErrMisconfigured, so the process still serves
// health checks.
func NewGuard(secret string) *Guard {
	return &Guard{secret: []byte(strings.TrimSpace(secret))}
}

// Configured reports whether a secret is set.
func (g *Guard) Configured() bool { return len(g.secret) > 0 }

// Authorize checks an Authorization header value.
func (g *Guard) Authorize(header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrUnauthenticated
	}
	if !g.Configured() {
		return ErrMisconfigured
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ErrForbidden
	}
	if subtle.ConstantTimeCompare([]byte(parts[1]), g.secret) != 1 {
		return ErrForbidden
	}
	return nil
}

// Middleware rejects requests that fail Authorize.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := g.Authorize(r.Header.Get("Authorization"))
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, ErrUnauthenticated):
			w.Header().Set("WWW-Authenticate", `Bearer realm="service"`)
			httputil.Error(w, http.StatusUnauthorized, "unauthenticated", err.Error())
		case errors.Is(err, ErrMisconfigured):
			logger.Error("auth: request rejected, no service bearer configured", "path", r.URL.Path)
			httputil.Error(w, http.StatusInternalServerError, "service_misconfigured", err.Error())
		default:
			logger.Warn("auth: invalid service token", "path", r.URL.Path, "remote", r.RemoteAddr)
			httputil.Error(w, http.StatusForbidden, "forbidden", err.Error())
		}
	})
}
