package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/auditai/insight-engine/internal/config"
	"github.com/auditai/insight-engine/internal/pkg/httpretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLLMConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:       "openai",
		Model:          "gpt-4",
		APIKey:         "sk-test",
		BaseURL:        baseURL,
		Temperature:    0.7,
		MaxTokens:      256,
		TimeoutSeconds: 5,
		MaxAttempts:    3,
	}
}

func fastRetry(srv *httptest.Server) *httpretry.RetryClient {
	return httpretry.NewRetryClient(srv.Client(), 3, httpretry.WithBaseDelay(time.Millisecond), httpretry.WithJitter(0))
}

func TestOpenAIClient_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4", req.Model)
		assert.Equal(t, 0.7, req.Temperature)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"rationale\":\"ok\"}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(testLLMConfig(srv.URL), fastRetry(srv))
	out, err := c.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a CRO expert."},
		{Role: RoleUser, Content: "<html></html>"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"rationale":"ok"}`, out)
}

func TestOpenAIClient_RetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"third time"}}]}`))
	}))
	defer srv.Close()

	out, err := NewOpenAIClient(testLLMConfig(srv.URL), fastRetry(srv)).Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "third time", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestOpenAIClient_ExhaustedRetriesIsUpstreamFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(testLLMConfig(srv.URL), fastRetry(srv)).Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.ErrorIs(t, err, ErrUpstreamFailure)
	assert.Contains(t, err.Error(), "overloaded")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestOpenAIClient_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(testLLMConfig(srv.URL), fastRetry(srv)).Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.ErrorIs(t, err, ErrUpstreamFailure)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenAIClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewOpenAIClient(testLLMConfig(srv.URL), fastRetry(srv)).Complete(ctx, []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrUpstreamTimeout)
}

func TestOpenAIClient_MissingKey(t *testing.T) {
	cfg := testLLMConfig("http://unused")
	cfg.APIKey = ""
	_, err := NewOpenAIClient(cfg, nil).Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrUpstreamFailure)
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIClient(testLLMConfig(srv.URL), fastRetry(srv)).Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrUpstreamFailure)
}
