package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/auditai/insight-engine/internal/config"
	"github.com/auditai/insight-engine/internal/pkg/httpretry"
	"github.com/auditai/insight-engine/internal/pkg/logger"
)

const maxErrorBody = 4 << 10

// OpenAIClient calls the chat completions endpoint.
type OpenAIClient struct {
	doer        httpretry.HTTPDoer
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient builds a client from cfg. A nil doer gets a RetryClient
// that makes cfg.MaxAttempts attempts with cfg.Backoff as the first wait.
func NewOpenAIClient(cfg config.LLMConfig, doer httpretry.HTTPDoer) *OpenAIClient {
	if doer == nil {
		doer = httpretry.NewRetryClient(&http.Client{}, cfg.MaxAttempts, httpretry.WithBaseDelay(cfg.Backoff()))
	}
	return &OpenAIClient{
		doer:        doer,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout(),
	}
}

// Complete sends messages and returns the first choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("openai: %w: api key not configured", ErrUpstreamFailure)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(openAIRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		return "", upstreamError("openai", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var parsed openAIResponse
		if json.Unmarshal(msg, &parsed) == nil && parsed.Error != nil {
			return "", fmt.Errorf("openai: %w: status %d: %s", ErrUpstreamFailure, resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("openai: %w: status %d", ErrUpstreamFailure, resp.StatusCode)
	}

	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", upstreamError("openai", fmt.Errorf("decode response: %w", err))
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai: %w: no choices in response", ErrUpstreamFailure)
	}

	logger.Info("llm: completion",
		"provider", "openai", "model", c.model,
		"prompt_tokens", out.Usage.PromptTokens, "completion_tokens", out.Usage.CompletionTokens,
		"duration", time.Since(start))
	return out.Choices[0].Message.Content, nil
}
