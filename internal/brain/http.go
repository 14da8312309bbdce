package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// apiErrorEnvelope is the error body shared by the OpenAI and Anthropic APIs.
type apiErrorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// jsonCall is one JSON POST to a provider API.
type jsonCall struct {
	client   *http.Client
	provider string
	op       string
	url      string
	header   http.Header
}

func (c jsonCall) fail(status int, msg string, err error) *ProviderError {
	return &ProviderError{Provider: c.provider, Op: c.op, StatusCode: status, Message: msg, Err: err}
}

// do sends body and decodes a 200 reply into out. Every failure comes back
// as a *ProviderError.
func (c jsonCall) do(ctx context.Context, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return c.fail(0, "marshal request: "+err.Error(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return c.fail(0, "create request: "+err.Error(), err)
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return c.fail(0, "http request: "+err.Error(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(0, "read response: "+err.Error(), err)
	}

	if resp.StatusCode != http.StatusOK {
		var env apiErrorEnvelope
		if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
			return c.fail(resp.StatusCode, env.Error.Type+": "+env.Error.Message, nil)
		}
		return c.fail(resp.StatusCode, truncate(string(raw), 400), nil)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return c.fail(0, "unmarshal response: "+err.Error(), err)
	}
	return nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars]) + "..."
}
