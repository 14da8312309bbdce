package brain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/overhuman/replyd/internal/observability"
)

// DefaultTemperature is sent with every completion.
const DefaultTemperature = 1.0

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCallTimeout bounds each provider call. Zero disables the bound.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxTokens caps the output of each completion. Zero leaves the limit
// to the provider.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) {
		c.maxTokens = n
	}
}

// WithLogger sets the logger used for per-call debug events.
func WithLogger(l *observability.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// Client binds a completion provider, an embedding provider and a model
// router into the two calls the pipeline steps make. It holds no mutable
// state and is safe for concurrent use.
type Client struct {
	llm       LLMProvider
	embedder  EmbeddingProvider
	router    *ModelRouter
	timeout   time.Duration
	maxTokens int
	logger    *observability.Logger
}

// NewClient creates a Client. A nil router uses NewModelRouter defaults.
func NewClient(llm LLMProvider, embedder EmbeddingProvider, router *ModelRouter, opts ...ClientOption) *Client {
	if router == nil {
		router = NewModelRouter()
	}
	c := &Client{
		llm:      llm,
		embedder: embedder,
		router:   router,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends messages to the model serving role and returns its raw text.
func (c *Client) Complete(ctx context.Context, role Role, messages []Message) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	model := c.router.Select(role)
	resp, err := c.llm.Complete(ctx, LLMRequest{
		Messages:    messages,
		Model:       model,
		Temperature: DefaultTemperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", c.asProviderError(c.llm.Name(), "complete", err)
	}

	c.logger.ProviderCall(c.llm.Name(), "complete", resp.Model, resp.LatencyMs,
		"role", string(role),
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"cost_usd", resp.CostUSD,
	)
	return resp.Content, nil
}

// Embed returns the embedding vector for text. The empty string is embedded
// like any other input.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.embedder.Embed(ctx, EmbedRequest{
		Input: text,
		Model: c.router.Select(RoleEmbedding),
	})
	if err != nil {
		return nil, c.asProviderError(c.embedder.Name(), "embed", err)
	}

	c.logger.ProviderCall(c.embedder.Name(), "embed", resp.Model, resp.LatencyMs,
		"dimensions", len(resp.Vector),
		"input_tokens", resp.InputTokens,
	)
	return resp.Vector, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// asProviderError guarantees every call failure surfaces as *ProviderError,
// including provider implementations that return plain errors.
func (c *Client) asProviderError(provider, op string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		if errors.Is(err, context.DeadlineExceeded) && c.timeout > 0 {
			pe.Message = fmt.Sprintf("timed out after %s", c.timeout)
		}
		return err
	}
	return &ProviderError{Provider: provider, Op: op, Message: err.Error(), Err: err}
}
