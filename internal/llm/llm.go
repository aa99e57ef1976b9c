// Package llm talks to chat-completion providers. Callers depend on the
// Completer interface; OpenAIClient and BedrockClient implement it and Cache
// decorates either with a Redis response cache.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Roles used in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrUpstreamTimeout means the provider did not answer before the deadline.
	ErrUpstreamTimeout = errors.New("llm: upstream timeout")
	// ErrUpstreamFailure means the provider failed after all attempts.
	ErrUpstreamFailure = errors.New("llm: upstream failure")
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer returns the assistant's reply to messages.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// upstreamError maps a transport or SDK failure onto the package sentinels.
func upstreamError(provider string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w: %w", provider, ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrUpstreamFailure, err)
}
