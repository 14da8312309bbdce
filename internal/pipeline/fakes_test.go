package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/overhuman/replyd/internal/brain"
	"github.com/overhuman/replyd/internal/observability"
	"github.com/overhuman/replyd/internal/prompts"
)

// testPack renders the prompt name as the system message and the step's
// variables as the human message, so fakes can route on them.
const testPack = `
prompts:
  - name: summarize-user-data
    system: summarize-user-data
    human: "{{.UserData}}"
  - name: check-intent
    system: check-intent
    human: "{{.CastText}}"
  - name: discover-content
    system: discover-content
    human: "{{.CastText}}|{{.IdentifiedNeeds}}|{{.Feeds}}"
  - name: generate-reply
    system: generate-reply
    human: "{{.CastText}}|{{.SelectedContent}}"
  - name: prepare-text
    system: prepare-text
    human: "{{.InputData}}"
`

type fakeCall struct {
	Prompt string
	Role   brain.Role
	Human  string
}

// fakeLLM answers completions by prompt name.
type fakeLLM struct {
	responses map[string]string
	errs      map[string]error
	respond   func(prompt, human string) (string, error)

	mu    sync.Mutex
	calls []fakeCall
}

func (f *fakeLLM) Complete(_ context.Context, role brain.Role, msgs []brain.Message) (string, error) {
	name, human := msgs[0].Content, msgs[1].Content
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Prompt: name, Role: role, Human: human})
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(name, human)
	}
	if err := f.errs[name]; err != nil {
		return "", err
	}
	return f.responses[name], nil
}

func (f *fakeLLM) prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Prompt
	}
	return out
}

func (f *fakeLLM) call(t *testing.T, prompt string) fakeCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.Prompt == prompt {
			return c
		}
	}
	t.Fatalf("no call to %q", prompt)
	return fakeCall{}
}

// fakeEmbedder returns vecFor(text), or a 3-dim vector by default.
type fakeEmbedder struct {
	vecFor func(text string) []float64
	err    error

	mu     sync.Mutex
	inputs []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, text)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if f.vecFor != nil {
		return f.vecFor(text), nil
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inputs...)
}

func testDeps(t *testing.T, llm *fakeLLM, emb *fakeEmbedder) Dependencies {
	t.Helper()
	set, err := prompts.Parse([]byte(testPack))
	if err != nil {
		t.Fatalf("parse test pack: %v", err)
	}
	return Dependencies{
		Completer: llm,
		Embedder:  emb,
		Prompts:   set,
		Logger:    observability.Discard(),
	}
}
