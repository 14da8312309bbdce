package brain

import (
	"cmp"
	"context"
	"net/http"
	"strings"
	"time"
)

// openaiPricing maps model identifier prefixes to (input, output) cost per 1M tokens.
// Order matters: more specific prefixes first.
var openaiPricing = []struct {
	prefix string
	price  [2]float64
}{
	{"gpt-4.1-mini", [2]float64{0.40, 1.60}},
	{"gpt-4.1", [2]float64{2.00, 8.00}},
	{"gpt-4o-mini", [2]float64{0.15, 0.60}},
	{"gpt-4o", [2]float64{2.50, 10.0}},
	{"o4-mini", [2]float64{1.10, 4.40}},
	{"text-embedding-3-small", [2]float64{0.02, 0}},
	{"text-embedding-3-large", [2]float64{0.13, 0}},
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL overrides the API base URL. Any OpenAI-compatible
// server (Ollama, vLLM, LM Studio) works.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.baseURL = strings.TrimRight(url, "/")
	}
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.client = c
	}
}

// WithOpenAIDefaultModel sets the default chat model.
func WithOpenAIDefaultModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.defaultModel = model
	}
}

// WithOpenAIEmbeddingModel sets the default embedding model.
func WithOpenAIEmbeddingModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		p.embeddingModel = model
	}
}

// OpenAIProvider implements LLMProvider and EmbeddingProvider for the OpenAI API.
type OpenAIProvider struct {
	apiKey         string
	baseURL        string
	client         *http.Client
	defaultModel   string
	embeddingModel string
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:         apiKey,
		baseURL:        "https://api.openai.com",
		client:         &http.Client{Timeout: 120 * time.Second},
		defaultModel:   DefaultReasoningModel,
		embeddingModel: DefaultEmbeddingModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return "openai" }

// Models returns the list of supported models.
func (p *OpenAIProvider) Models() []string {
	return []string{
		"o4-mini",
		"gpt-4.1-mini",
		"gpt-4.1",
		"gpt-4o-mini",
		"gpt-4o",
	}
}

// openaiRequest is the OpenAI chat completions request body.
type openaiRequest struct {
	Model               string      `json:"model"`
	Messages            []openaiMsg `json:"messages"`
	Temperature         *float64    `json:"temperature,omitempty"`
	MaxTokens           *int        `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int        `json:"max_completion_tokens,omitempty"`
}

type openaiMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openaiResponse is the OpenAI chat completions response body.
type openaiResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int    `json:"index"`
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openaiEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openaiEmbedResponse struct {
	Model string `json:"model"`
	Data  []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
	} `json:"usage"`
}

// Complete sends a chat completion request. A 200 reply without choices
// is a ProviderError, not empty content.
func (p *OpenAIProvider) Complete(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	model := cmp.Or(req.Model, p.defaultModel)

	body := openaiRequest{
		Model:    model,
		Messages: make([]openaiMsg, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, openaiMsg{Role: m.Role, Content: m.Content})
	}
	if req.Temperature > 0 {
		t := req.Temperature
		body.Temperature = &t
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		if useMaxCompletionTokens(model) {
			body.MaxCompletionTokens = &mt
		} else {
			body.MaxTokens = &mt
		}
	}

	call := p.call("complete", "/v1/chat/completions")
	start := time.Now()
	var out openaiResponse
	if err := call.do(ctx, body, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, call.fail(0, "response has no choices", nil)
	}

	return &LLMResponse{
		Content:      out.Choices[0].Message.Content,
		Model:        out.Model,
		InputTokens:  out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
		CostUSD:      openaiCalculateCost(out.Model, out.Usage.PromptTokens, out.Usage.CompletionTokens),
		LatencyMs:    time.Since(start).Milliseconds(),
		StopReason:   out.Choices[0].FinishReason,
	}, nil
}

// Embed sends an embedding request. The empty string is sent as-is and
// the vector length is whatever the server returns. A 200 reply without
// an embedding is a ProviderError.
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	call := p.call("embed", "/v1/embeddings")
	start := time.Now()
	var out openaiEmbedResponse
	body := openaiEmbedRequest{Model: cmp.Or(req.Model, p.embeddingModel), Input: req.Input}
	if err := call.do(ctx, body, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 || out.Data[0].Embedding == nil {
		return nil, call.fail(0, "response has no data", nil)
	}

	return &EmbedResponse{
		Vector:      out.Data[0].Embedding,
		Model:       out.Model,
		InputTokens: out.Usage.PromptTokens,
		LatencyMs:   time.Since(start).Milliseconds(),
	}, nil
}

func (p *OpenAIProvider) call(op, path string) jsonCall {
	c := jsonCall{client: p.client, provider: p.Name(), op: op, url: p.baseURL + path}
	if p.apiKey != "" {
		c.header = http.Header{"Authorization": {"Bearer " + p.apiKey}}
	}
	return c
}

// useMaxCompletionTokens returns true if the model requires max_completion_tokens
// instead of max_tokens. Newer OpenAI models (o-series, gpt-4.1+, gpt-5+) use this.
func useMaxCompletionTokens(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "o1") ||
		strings.HasPrefix(m, "o3") ||
		strings.HasPrefix(m, "o4") ||
		strings.HasPrefix(m, "gpt-4.1") ||
		strings.HasPrefix(m, "gpt-4o") ||
		strings.HasPrefix(m, "gpt-5")
}

// openaiCalculateCost computes USD cost based on model and token counts.
// Unknown models (local servers) cost nothing.
func openaiCalculateCost(model string, inputTokens, outputTokens int) float64 {
	for _, entry := range openaiPricing {
		if strings.HasPrefix(model, entry.prefix) {
			inputCost := float64(inputTokens) / 1_000_000 * entry.price[0]
			outputCost := float64(outputTokens) / 1_000_000 * entry.price[1]
			return inputCost + outputCost
		}
	}
	return 0
}

// Compile-time interface checks.
var (
	_ LLMProvider       = (*OpenAIProvider)(nil)
	_ EmbeddingProvider = (*OpenAIProvider)(nil)
)
