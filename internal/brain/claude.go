package brain

import (
	"cmp"
	"context"
	"net/http"
	"strings"
	"time"
)

// Anthropic model IDs replyd knows how to price.
const (
	ClaudeSonnet4Model  = "claude-sonnet-4-20250514"
	ClaudeOpus4Model    = "claude-opus-4-20250514"
	ClaudeHaiku35Model  = "claude-3-5-haiku-20241022"
	anthropicAPIVersion = "2023-06-01"

	// claudeDefaultMaxTokens fills the required max_tokens field when the
	// caller sets no limit.
	claudeDefaultMaxTokens = 4096
)

// claudePricing holds (input, output) USD per 1M tokens, matched by
// substring of the model ID. More specific families come first.
var claudePricing = []struct {
	family string
	price  [2]float64
}{
	{"opus", [2]float64{15.0, 75.0}},
	{"sonnet", [2]float64{3.0, 15.0}},
	{"3-5-haiku", [2]float64{0.80, 4.00}},
	{"haiku", [2]float64{0.25, 1.25}},
}

// ClaudeOption configures a ClaudeProvider.
type ClaudeOption func(*ClaudeProvider)

// WithClaudeBaseURL points the provider at another Messages API host.
func WithClaudeBaseURL(url string) ClaudeOption {
	return func(p *ClaudeProvider) { p.baseURL = strings.TrimRight(url, "/") }
}

// WithClaudeHTTPClient sets a custom HTTP client.
func WithClaudeHTTPClient(c *http.Client) ClaudeOption {
	return func(p *ClaudeProvider) { p.client = c }
}

// WithClaudeDefaultModel sets the model used when a request names none.
func WithClaudeDefaultModel(model string) ClaudeOption {
	return func(p *ClaudeProvider) { p.defaultModel = model }
}

// ClaudeProvider serves completions from the Anthropic Messages API.
// Anthropic has no embeddings endpoint, so it is an LLMProvider only.
type ClaudeProvider struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	defaultModel string
}

// NewClaudeProvider creates a Claude provider.
func NewClaudeProvider(apiKey string, opts ...ClaudeOption) *ClaudeProvider {
	p := &ClaudeProvider{
		apiKey:       apiKey,
		baseURL:      "https://api.anthropic.com",
		client:       &http.Client{Timeout: 120 * time.Second},
		defaultModel: ClaudeSonnet4Model,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ClaudeProvider) Name() string { return "claude" }

func (p *ClaudeProvider) Models() []string {
	return []string{ClaudeHaiku35Model, ClaudeSonnet4Model, ClaudeOpus4Model}
}

type claudeRequest struct {
	Model       string      `json:"model"`
	System      string      `json:"system,omitempty"`
	Messages    []claudeMsg `json:"messages"`
	MaxTokens   int         `json:"max_tokens"`
	Temperature *float64    `json:"temperature,omitempty"`
}

type claudeMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// splitSystem lifts system messages into the Messages API's top-level
// system field. Several system messages are joined by blank lines.
func splitSystem(messages []Message) (string, []claudeMsg) {
	var system []string
	msgs := make([]claudeMsg, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		msgs = append(msgs, claudeMsg{Role: m.Role, Content: m.Content})
	}
	return strings.Join(system, "\n\n"), msgs
}

// Complete sends one Messages API request. Only text blocks make up the
// returned content; a reply with none is a ProviderError.
func (p *ClaudeProvider) Complete(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	body := claudeRequest{
		Model:     cmp.Or(req.Model, p.defaultModel),
		MaxTokens: req.MaxTokens,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = claudeDefaultMaxTokens
	}
	if req.Temperature > 0 {
		t := req.Temperature
		body.Temperature = &t
	}
	body.System, body.Messages = splitSystem(req.Messages)

	call := jsonCall{
		client:   p.client,
		provider: p.Name(),
		op:       "complete",
		url:      p.baseURL + "/v1/messages",
		header: http.Header{
			"X-Api-Key":         {p.apiKey},
			"Anthropic-Version": {anthropicAPIVersion},
		},
	}

	start := time.Now()
	var out claudeResponse
	if err := call.do(ctx, body, &out); err != nil {
		return nil, err
	}

	var text strings.Builder
	blocks := 0
	for _, b := range out.Content {
		if b.Type == "text" {
			text.WriteString(b.Text)
			blocks++
		}
	}
	if blocks == 0 {
		return nil, call.fail(0, "response has no text content", nil)
	}

	return &LLMResponse{
		Content:      text.String(),
		Model:        out.Model,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
		CostUSD:      claudeCalculateCost(out.Model, out.Usage.InputTokens, out.Usage.OutputTokens),
		LatencyMs:    time.Since(start).Milliseconds(),
		StopReason:   out.StopReason,
	}, nil
}

// claudeCalculateCost prices a call. Unknown models are priced as sonnet.
func claudeCalculateCost(model string, inputTokens, outputTokens int) float64 {
	price := claudePricing[1].price
	for _, entry := range claudePricing {
		if strings.Contains(model, entry.family) {
			price = entry.price
			break
		}
	}
	return float64(inputTokens)/1_000_000*price[0] + float64(outputTokens)/1_000_000*price[1]
}

var _ LLMProvider = (*ClaudeProvider)(nil)
