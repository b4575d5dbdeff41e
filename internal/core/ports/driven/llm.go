// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"
	"errors"
	"fmt"
)

// LLMService provides language model completions for the cluster annotator.
// This is an optional service - when nil, clusters receive fallback labels.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4o-mini)
//   - Anthropic (Claude)
//   - Ollama (local models)
type LLMService interface {
	// Generate produces text completion from a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat conducts a multi-turn conversation.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// JSON asks the provider for a single JSON object when it supports a
	// structured output mode.
	JSON bool
}

// TransientError marks a failure worth retrying: rate limits, server errors
// and timeouts.
type TransientError struct {
	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int

	Err error
}

// Error implements error.
func (e *TransientError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transient: %v", e.Err)
	}
	return fmt.Sprintf("transient (status %d): %v", e.StatusCode, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is worth another attempt.
// Context cancellation by the caller is never retryable; a per-attempt
// deadline is.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// StatusRetryable reports whether an HTTP status is transient.
func StatusRetryable(status int) bool {
	return status == 429 || status >= 500
}
