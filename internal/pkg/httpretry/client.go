// Package httpretry provides an HTTP client that retries transient failures
// with exponential backoff.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/auditai/insight-engine/internal/pkg/logger"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *RetryClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient wraps an HTTPDoer with retry logic.
type RetryClient struct {
	client      HTTPDoer
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	jitter      float64
}

// Option customises a RetryClient.
type Option func(*RetryClient)

// WithBaseDelay sets the wait before the first retry. Later retries double it.
func WithBaseDelay(d time.Duration) Option {
	return func(rc *RetryClient) { rc.baseDelay = d }
}

// WithMaxDelay caps a single backoff wait.
func WithMaxDelay(d time.Duration) Option {
	return func(rc *RetryClient) { rc.maxDelay = d }
}

// WithJitter adds up to fraction*delay of random extra wait to each backoff.
func WithJitter(fraction float64) Option {
	return func(rc *RetryClient) { rc.jitter = fraction }
}

// NewRetryClient wraps client so that each request is tried at most
// maxAttempts times in total. A nil client gets a plain http.Client with a
// 30s timeout; maxAttempts below 1 means 3.
func NewRetryClient(client HTTPDoer, maxAttempts int, opts ...Option) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	rc := &RetryClient{
		client:      client,
		maxAttempts: maxAttempts,
		baseDelay:   2 * time.Second,
		maxDelay:    30 * time.Second,
		jitter:      0.1,
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Do executes req, retrying on 429/500/502/503/504 and on transport errors.
// Client errors and context cancellation are returned immediately. When the
// last attempt still gets a retryable status the response is returned as-is
// so the caller can read it.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= rc.maxAttempts; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 1 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: reset request body: %w", err)
				}
				req.Body = body
			}

			delay := rc.backoff(attempt - 1)
			logger.Debug("httpretry: retrying",
				"attempt", attempt, "max_attempts", rc.maxAttempts,
				"host", req.URL.Host, "path", req.URL.Path, "wait", delay, "cause", lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			continue
		}

		if !isRetryableStatus(resp.StatusCode) || attempt == rc.maxAttempts {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

// backoff returns baseDelay * 2^(retry-1), capped at maxDelay, plus jitter.
func (rc *RetryClient) backoff(retry int) time.Duration {
	d := float64(rc.baseDelay) * math.Pow(2, float64(retry-1))
	if d > float64(rc.maxDelay) {
		d = float64(rc.maxDelay)
	}
	if rc.jitter > 0 {
		d += rand.Float64() * rc.jitter * d
	}
	return time.Duration(d)
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
