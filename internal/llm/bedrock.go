package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/auditai/insight-engine/internal/config"
	"github.com/auditai/insight-engine/internal/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	anthropicVersion  = "bedrock-2023-05-31"
	bedrockMaxBackoff = 20 * time.Second
)

// BedrockInvoker is the subset of *bedrockruntime.Client used here.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockClient calls Anthropic models hosted on AWS Bedrock.
type BedrockClient struct {
	client      BedrockInvoker
	modelID     string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

type bedrockContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockMessage struct {
	Role    string           `json:"role"`
	Content []bedrockContent `json:"content"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content    []bedrockContent `json:"content"`
	StopReason string           `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewBedrockClient loads the default AWS credential chain for cfg.Region.
// The SDK's standard retryer makes cfg.MaxAttempts attempts.
func NewBedrockClient(ctx context.Context, cfg config.LLMConfig) (*BedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = cfg.MaxAttempts
				o.MaxBackoff = bedrockMaxBackoff
			})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	logger.Info("llm: bedrock client initialized", "model", cfg.Model, "region", cfg.Region)
	return NewBedrockClientWithInvoker(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

// NewBedrockClientWithInvoker wraps an existing invoker.
func NewBedrockClientWithInvoker(client BedrockInvoker, cfg config.LLMConfig) *BedrockClient {
	return &BedrockClient{
		client:      client,
		modelID:     cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout(),
	}
}

// Complete folds system messages into the system prompt and merges
// consecutive turns of the same role, since the Messages API requires
// alternating user and assistant turns.
func (c *BedrockClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := bedrockRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		Temperature:      c.temperature,
	}
	req.System, req.Messages = toBedrockMessages(messages)

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("bedrock: encode request: %w", err)
	}

	start := time.Now()
	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", upstreamError("bedrock", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("bedrock: %w: decode response: %w", ErrUpstreamFailure, err)
	}
	var text strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("bedrock: %w: empty response (stop_reason %q)", ErrUpstreamFailure, resp.StopReason)
	}

	logger.Info("llm: completion",
		"provider", "bedrock", "model", c.modelID,
		"prompt_tokens", resp.Usage.InputTokens, "completion_tokens", resp.Usage.OutputTokens,
		"duration", time.Since(start))
	return text.String(), nil
}

func toBedrockMessages(messages []Message) (string, []bedrockMessage) {
	var (
		system []string
		out    []bedrockMessage
	)
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := RoleUser
		if m.Role == RoleAssistant {
			role = RoleAssistant
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, bedrockContent{Type: "text", Text: m.Content})
			continue
		}
		out = append(out, bedrockMessage{Role: role, Content: []bedrockContent{{Type: "text", Text: m.Content}}})
	}
	return strings.Join(system, "\n\n"), out
}
