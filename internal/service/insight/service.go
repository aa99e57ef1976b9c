package insight

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/auditai/insight-engine/internal/domain"
	"github.com/auditai/insight-engine/internal/llm"
	"github.com/auditai/insight-engine/internal/pkg/logger"
)

// Rationales returned when no suggestions could be produced.
const (
	RationaleUnavailable = "could not generate suggestions"
	RationaleMalformed   = "could not generate suggestions: the model response was not valid JSON"
)

// PageFetcher loads a page summary.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*domain.PageData, error)
}

// Service runs the crawl and suggest operations.
type Service struct {
	fetcher   PageFetcher
	completer llm.Completer
	prompts   *PromptBuilder
}

// NewService wires the pipeline.
func NewService(fetcher PageFetcher, completer llm.Completer, prompts *PromptBuilder) *Service {
	return &Service{fetcher: fetcher, completer: completer, prompts: prompts}
}

// Crawl validates rawURL and fetches it.
func (s *Service) Crawl(ctx context.Context, rawURL string) (*domain.PageData, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	return s.fetcher.Fetch(ctx, u.String())
}

// ValidateURL requires an absolute http or https URL with a host.
func ValidateURL(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return u, nil
}

// Suggest asks the model for suggestions. Completion and parse failures
// still produce a response, with an explanatory rationale and no
// suggestions; only invalid input and prompt rendering return an error.
func (s *Service) Suggest(ctx context.Context, html, goal string) (*domain.SuggestResponse, error) {
	if strings.TrimSpace(html) == "" || strings.TrimSpace(goal) == "" {
		return nil, ErrInvalidRequest
	}

	messages, err := s.prompts.Build(html, goal)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := s.completer.Complete(ctx, messages)
	if err != nil {
		logger.Error("insight: completion failed", "goal", goal, "duration", time.Since(start), "error", err)
		return degraded(RationaleUnavailable), nil
	}

	resp, err := ParseSuggestions(text)
	if err != nil {
		logger.Warn("insight: unparseable completion", "goal", goal, "bytes", len(text), "error", err)
		return degraded(RationaleMalformed), nil
	}
	logger.Info("insight: suggestions generated", "goal", goal, "count", len(resp.Suggestions), "duration", time.Since(start))
	return resp, nil
}

func degraded(rationale string) *domain.SuggestResponse {
	return &domain.SuggestResponse{Rationale: rationale, Suggestions: []domain.Insight{}}
}
