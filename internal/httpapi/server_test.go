package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overhuman/replyd/internal/brain"
	"github.com/overhuman/replyd/internal/observability"
	"github.com/overhuman/replyd/internal/pipeline"
)

type stubUserSummary struct {
	st  *pipeline.UserSummaryState
	err error
	got pipeline.UserSummaryInput
}

func (s *stubUserSummary) Run(_ context.Context, in pipeline.UserSummaryInput) (*pipeline.UserSummaryState, error) {
	s.got = in
	return s.st, s.err
}

type stubReply struct {
	st    *pipeline.ReplyState
	err   error
	got   pipeline.ReplyInput
	runID string
}

func (s *stubReply) Run(ctx context.Context, in pipeline.ReplyInput) (*pipeline.ReplyState, error) {
	s.got = in
	s.runID = pipeline.RunIDFrom(ctx)
	return s.st, s.err
}

type stubEmbeddings struct {
	st  *pipeline.EmbeddingState
	err error
}

func (s *stubEmbeddings) Run(_ context.Context, _ pipeline.EmbeddingsInput) (*pipeline.EmbeddingState, error) {
	return s.st, s.err
}

func newTestServer(t *testing.T, p Pipelines, opts Options) *httptest.Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = observability.Discard()
	}
	srv := httptest.NewServer(New(p, opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Pipelines{}, Options{Version: "1.2.3"})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
	assert.NotEmpty(t, body.Uptime)
}

func TestUserSummary_OK(t *testing.T) {
	us := &stubUserSummary{st: &pipeline.UserSummaryState{
		UserSummary:   &pipeline.UserSummary{Keywords: []string{"ai", "go"}, RawSummary: "AI, Go"},
		UserEmbedding: pipeline.NewEmbedding([]float64{0.5, 0.25}),
	}}
	srv := newTestServer(t, Pipelines{UserSummary: us}, Options{})

	resp, body := post(t, srv.URL+"/user-summary", `{"user_data": {"casts": ["hello"]}}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, []any{"ai", "go"}, body["keywords"])
	assert.Equal(t, "AI, Go", body["raw_summary"])
	assert.Equal(t, map[string]any{"vector": []any{0.5, 0.25}, "dimensions": float64(2)}, body["embedding"])
	assert.Equal(t, map[string]any{"casts": []any{"hello"}}, us.got.UserData)
}

func TestGenerateReply_NoReply(t *testing.T) {
	rp := &stubReply{st: &pipeline.ReplyState{
		IntentAnalysis: &pipeline.IntentAnalysis{ShouldReply: false, IdentifiedNeeds: []string{}, Confidence: 0.9},
		Reply:          &pipeline.Reply{ReplyText: pipeline.NoReplyText},
	}}
	srv := newTestServer(t, Pipelines{Reply: rp}, Options{})

	resp, body := post(t, srv.URL+"/generate-reply", `{"cast_text": "gm"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["should_reply"])
	assert.NotContains(t, body, "reply_text")
	assert.NotContains(t, body, "link")
	assert.Equal(t, 0.9, body["confidence"])
	assert.NotNil(t, rp.got.AvailableFeeds, "omitted feeds should become an empty list")
	assert.Empty(t, rp.got.AvailableFeeds)
}

func TestGenerateReply_Reply(t *testing.T) {
	rp := &stubReply{st: &pipeline.ReplyState{
		IntentAnalysis: &pipeline.IntentAnalysis{ShouldReply: true, IdentifiedNeeds: []string{"tutorial"}, Confidence: 0.8},
		Reply:          &pipeline.Reply{ReplyText: "Try the tour", Link: "https://go.dev/tour"},
	}}
	srv := newTestServer(t, Pipelines{Reply: rp}, Options{})

	resp, body := post(t, srv.URL+"/generate-reply", `{"cast_text": "how to learn go?", "available_feeds": [{"title": "Tour"}]}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["should_reply"])
	assert.Equal(t, "Try the tour", body["reply_text"])
	assert.Equal(t, "https://go.dev/tour", body["link"])
	assert.Equal(t, "how to learn go?", rp.got.CastText)
	assert.Equal(t, []map[string]any{{"title": "Tour"}}, rp.got.AvailableFeeds)
}

func TestGenerateEmbeddings_OK(t *testing.T) {
	prepared := ""
	em := &stubEmbeddings{st: &pipeline.EmbeddingState{PreparedText: &prepared, Embedding: pipeline.NewEmbedding(nil)}}
	srv := newTestServer(t, Pipelines{Embeddings: em}, Options{})

	resp, body := post(t, srv.URL+"/generate-embeddings", `{"input_data": {}}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", body["prepared_text"])
	assert.Equal(t, map[string]any{"vector": []any{}, "dimensions": float64(0)}, body["embedding"])
}

func TestBadInput_422(t *testing.T) {
	srv := newTestServer(t, Pipelines{
		UserSummary: &stubUserSummary{},
		Reply:       &stubReply{},
		Embeddings:  &stubEmbeddings{},
	}, Options{})

	tests := []struct {
		name, path, body, detail string
	}{
		{"invalid json", "/user-summary", `{"user_data":`, "invalid JSON body"},
		{"missing user_data", "/user-summary", `{}`, "user_data is required"},
		{"null user_data", "/user-summary", `{"user_data": null}`, "user_data is required"},
		{"user_data not object", "/user-summary", `{"user_data": "bio"}`, "user_data: expected"},
		{"missing cast_text", "/generate-reply", `{"available_feeds": []}`, "cast_text is required"},
		{"cast_text wrong type", "/generate-reply", `{"cast_text": 42}`, "cast_text: expected string"},
		{"feeds not objects", "/generate-reply", `{"cast_text": "x", "available_feeds": ["a"]}`, "expected"},
		{"missing input_data", "/generate-embeddings", `{"other": 1}`, "input_data is required"},
		{"empty body", "/generate-embeddings", ``, "invalid JSON body"},
		{"trailing value", "/user-summary", `{"user_data": {}} {}`, "unexpected data after top-level value"},
		{"trailing garbage", "/user-summary", `{"user_data": {}} {"garbage": true`, "unexpected data after top-level value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := post(t, srv.URL+tt.path, tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Contains(t, body["detail"], tt.detail)
		})
	}
}

func TestBodyTooLarge_413(t *testing.T) {
	us := &stubUserSummary{}
	srv := newTestServer(t, Pipelines{UserSummary: us}, Options{MaxBodyBytes: 64})

	big := fmt.Sprintf(`{"user_data": {"bio": %q}}`, strings.Repeat("x", 200))
	resp, body := post(t, srv.URL+"/user-summary", big)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Contains(t, body["detail"], "64 bytes")
	assert.Nil(t, us.got.UserData, "pipeline must not run")
}

func TestPipelineFailure_500(t *testing.T) {
	perr := &brain.ProviderError{Provider: "openai", Op: "complete", StatusCode: 503, Message: "overloaded"}
	srv := newTestServer(t, Pipelines{Reply: &stubReply{err: perr}}, Options{})

	resp, body := post(t, srv.URL+"/generate-reply", `{"cast_text": "hi"}`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "openai: complete: API error 503: overloaded", body["detail"])
}

func TestRequestID(t *testing.T) {
	rp := &stubReply{st: &pipeline.ReplyState{IntentAnalysis: &pipeline.IntentAnalysis{}, Reply: &pipeline.Reply{}}}
	srv := newTestServer(t, Pipelines{Reply: rp}, Options{})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/generate-reply", strings.NewReader(`{"cast_text": "hi"}`))
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-7")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-7", resp.Header.Get(RequestIDHeader))
	assert.Equal(t, "req-7", rp.runID, "request ID should become the run ID")

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, resp.Header.Get(RequestIDHeader), 36, "a UUID is generated when none is sent")
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, Pipelines{}, Options{})

	resp, err := http.Get(srv.URL + "/user-summary")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_StartStop(t *testing.T) {
	s := New(Pipelines{}, Options{Addr: "127.0.0.1:0", Logger: observability.Discard()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != "127.0.0.1:0" }, 3*time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

// TestEndToEnd_OpenAICompatible drives the real pipelines through a fake
// OpenAI-compatible server.
func TestEndToEnd_OpenAICompatible(t *testing.T) {
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/v1/embeddings":
			fmt.Fprint(w, `{"model": "text-embedding-3-small", "data": [{"embedding": [0.1, 0.2, 0.3, 0.4]}]}`)
		case "/v1/chat/completions":
			var req struct {
				Model string `json:"model"`
			}
			json.Unmarshal(raw, &req)
			content := "Go, Concurrency"
			json.NewEncoder(w).Encode(map[string]any{
				"model":   req.Model,
				"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer fake.Close()

	provider := brain.NewOpenAIProvider("sk-test", brain.WithOpenAIBaseURL(fake.URL))
	client := brain.NewClient(provider, provider, nil)
	deps := pipeline.Dependencies{Completer: client, Embedder: client, Logger: observability.Discard()}
	srv := newTestServer(t, Pipelines{
		UserSummary: pipeline.NewUserSummaryPipeline(deps),
		Reply:       pipeline.NewReplyPipeline(deps),
		Embeddings:  pipeline.NewEmbeddingsPipeline(deps),
	}, Options{})

	resp, body := post(t, srv.URL+"/user-summary", `{"user_data": {"bio": "gopher"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, []any{"go", "concurrency"}, body["keywords"])
	assert.Equal(t, float64(4), body["embedding"].(map[string]any)["dimensions"])

	resp, body = post(t, srv.URL+"/generate-embeddings", `{"input_data": {"k": "v"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "Go, Concurrency", body["prepared_text"])
}

func TestDecode_KeepsLargeIntegers(t *testing.T) {
	in, err := DecodeUserSummary(strings.NewReader(`{"user_data": {"fid": 12345678901234567890, "n": 9007199254740993}}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("12345678901234567890"), in.UserData["fid"])

	out, err := json.Marshal(in.UserData)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fid": 12345678901234567890, "n": 9007199254740993}`, string(out))
	assert.Contains(t, string(out), "9007199254740993")
}

func TestEndToEnd_LargeIntegersReachPrompt(t *testing.T) {
	var (
		mu      sync.Mutex
		prompts []string
	)
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/embeddings" {
			fmt.Fprint(w, `{"model": "text-embedding-3-small", "data": [{"embedding": [0.1]}]}`)
			return
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		for _, m := range req.Messages {
			prompts = append(prompts, m.Content)
		}
		mu.Unlock()
		fmt.Fprint(w, `{"model": "o4-mini", "choices": [{"message": {"content": "go"}}]}`)
	}))
	defer fake.Close()

	provider := brain.NewOpenAIProvider("sk-test", brain.WithOpenAIBaseURL(fake.URL))
	client := brain.NewClient(provider, provider, nil)
	deps := pipeline.Dependencies{Completer: client, Embedder: client, Logger: observability.Discard()}
	srv := newTestServer(t, Pipelines{UserSummary: pipeline.NewUserSummaryPipeline(deps)}, Options{})

	resp, body := post(t, srv.URL+"/user-summary", `{"user_data": {"fid": 12345678901234567890, "n": 9007199254740993}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	mu.Lock()
	defer mu.Unlock()
	joined := strings.Join(prompts, "\n")
	assert.Contains(t, joined, "12345678901234567890")
	assert.Contains(t, joined, "9007199254740993")
	assert.NotContains(t, joined, "12345678901234567000")
}

func TestEndToEnd_ProviderDown(t *testing.T) {
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error": {"message": "try later", "type": "server_error"}}`)
	}))
	defer fake.Close()

	provider := brain.NewOpenAIProvider("sk-test", brain.WithOpenAIBaseURL(fake.URL))
	client := brain.NewClient(provider, provider, nil)
	deps := pipeline.Dependencies{Completer: client, Embedder: client}
	srv := newTestServer(t, Pipelines{Embeddings: pipeline.NewEmbeddingsPipeline(deps)}, Options{})

	resp, body := post(t, srv.URL+"/generate-embeddings", `{"input_data": {}}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "openai: complete: API error 503: server_error: try later", body["detail"])
}

func TestInputError(t *testing.T) {
	var ie *InputError
	_, err := DecodeReply(strings.NewReader(`[]`))
	require.True(t, errors.As(err, &ie))
	assert.Contains(t, ie.Detail, "invalid JSON body")
}
