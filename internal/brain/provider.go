// Package brain holds the inference provider clients: chat completion and
// text embedding backends, the role-to-model router, and the Client that
// binds them into the two capabilities the pipelines consume.
package brain

import (
	"context"
	"errors"
	"fmt"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// LLMRequest holds parameters for an LLM completion call.
type LLMRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// LLMResponse holds the response from an LLM call.
type LLMResponse struct {
	Content      string  `json:"content"`
	Model        string  `json:"model"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	LatencyMs    int64   `json:"latency_ms"`
	StopReason   string  `json:"stop_reason"`
}

// LLMProvider is the abstract interface for chat completion backends.
type LLMProvider interface {
	Complete(ctx context.Context, req LLMRequest) (*LLMResponse, error)
	Name() string
	Models() []string
}

// EmbedRequest holds parameters for an embedding call.
type EmbedRequest struct {
	Input string `json:"input"`
	Model string `json:"model,omitempty"`
}

// EmbedResponse holds a single embedding vector.
type EmbedResponse struct {
	Vector      []float64 `json:"vector"`
	Model       string    `json:"model"`
	InputTokens int       `json:"input_tokens"`
	LatencyMs   int64     `json:"latency_ms"`
}

// EmbeddingProvider is the abstract interface for text embedding backends.
type EmbeddingProvider interface {
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error)
	Name() string
}

// ProviderError reports a failed provider call: transport errors, non-2xx
// API responses, undecodable envelopes and timeouts. It is never used for
// well-received but malformed model text.
type ProviderError struct {
	Provider   string // "openai", "claude", ...
	Op         string // "complete" or "embed"
	StatusCode int    // HTTP status, 0 when no response was received
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: API error %d: %s", e.Provider, e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Op, msg)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err is or wraps a *ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
