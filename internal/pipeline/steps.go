package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/overhuman/replyd/internal/brain"
	"github.com/overhuman/replyd/internal/observability"
	"github.com/overhuman/replyd/internal/prompts"
)

// Step names, as they appear in logs.
const (
	StepSummarizeUserData = "summarize-user-data"
	StepEmbedSummary      = "embed-summary"
	StepCheckIntent       = "check-intent"
	StepDiscoverContent   = "discover-content"
	StepGenerateReply     = "generate-reply"
	StepPrepareText       = "prepare-text"
	StepEmbedText         = "embed-text"
)

// Dependencies holds the collaborators every step uses. Completer and
// Embedder are required; Prompts defaults to the embedded pack and Logger
// may be nil.
type Dependencies struct {
	Completer Completer
	Embedder  Embedder
	Prompts   *prompts.Set
	Logger    *observability.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Prompts == nil {
		d.Prompts = prompts.MustDefault()
	}
	return d
}

// errMissingInput reports a step reading state no earlier step wrote,
// which only happens when a pipeline is wired in the wrong order.
var errMissingInput = errors.New("missing input from earlier step")

// steps binds Dependencies to the step implementations.
type steps struct {
	Dependencies
}

func (s steps) complete(ctx context.Context, prompt string, role brain.Role, vars prompts.Vars) (string, error) {
	msgs, err := s.Prompts.Render(prompt, vars)
	if err != nil {
		return "", err
	}
	return s.Completer.Complete(ctx, role, msgs)
}

func (s steps) fellBack(ctx context.Context, step, raw string) {
	s.Logger.Warn("malformed provider output, using fallback",
		"run_id", RunIDFrom(ctx),
		"step", step,
		"raw", preview(raw),
	)
}

// --- User summary ---

func (s steps) summarizeUserData(ctx context.Context, st *UserSummaryState) error {
	userData, err := renderJSON(st.UserData, true)
	if err != nil {
		return fmt.Errorf("%s: encode user data: %w", StepSummarizeUserData, err)
	}

	raw, err := s.complete(ctx, prompts.SummarizeUserData, brain.RoleReasoning, prompts.Vars{"UserData": userData})
	if err != nil {
		return err
	}

	st.UserSummary = &UserSummary{Keywords: splitKeywords(raw), RawSummary: raw}
	return nil
}

// splitKeywords lower-cases raw, splits it on commas and trims each piece.
// Empty input yields a single empty keyword.
func splitKeywords(raw string) []string {
	parts := strings.Split(strings.ToLower(raw), ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func (s steps) embedSummary(ctx context.Context, st *UserSummaryState) error {
	if st.UserSummary == nil {
		return fmt.Errorf("%s: user summary: %w", StepEmbedSummary, errMissingInput)
	}

	vec, err := s.Embedder.Embed(ctx, strings.Join(st.UserSummary.Keywords, " "))
	if err != nil {
		return err
	}
	st.UserEmbedding = NewEmbedding(vec)
	return nil
}

// --- Reply ---

func (s steps) checkIntent(ctx context.Context, st *ReplyState) error {
	raw, err := s.complete(ctx, prompts.CheckIntent, brain.RoleReasoning, prompts.Vars{"CastText": st.CastText})
	if err != nil {
		return err
	}

	intent, ok := parseWithFallback(raw, intentFallback())
	if intent == nil {
		intent, ok = intentFallback(), false
	}
	if !ok {
		s.fellBack(ctx, StepCheckIntent, raw)
	}
	if intent.IdentifiedNeeds == nil {
		intent.IdentifiedNeeds = []string{}
	}
	st.IntentAnalysis = intent
	return nil
}

func (s steps) discoverContent(ctx context.Context, st *ReplyState) error {
	if st.IntentAnalysis == nil {
		return fmt.Errorf("%s: intent analysis: %w", StepDiscoverContent, errMissingInput)
	}
	if !st.IntentAnalysis.ShouldReply {
		st.DiscoveredContent = nil
		return nil
	}

	needs, err := renderJSON(st.IntentAnalysis.IdentifiedNeeds, false)
	if err != nil {
		return fmt.Errorf("%s: encode needs: %w", StepDiscoverContent, err)
	}
	feeds := st.AvailableFeeds
	if feeds == nil {
		feeds = []map[string]any{}
	}
	feedsJSON, err := renderJSON(feeds, true)
	if err != nil {
		return fmt.Errorf("%s: encode feeds: %w", StepDiscoverContent, err)
	}

	raw, err := s.complete(ctx, prompts.DiscoverContent, brain.RoleReasoning, prompts.Vars{
		"CastText":        st.CastText,
		"IdentifiedNeeds": needs,
		"Feeds":           feedsJSON,
	})
	if err != nil {
		return err
	}

	// A JSON null decodes to nil: the model found nothing, so no reply.
	content, ok := parseWithFallback(raw, discoveryFallback())
	if !ok {
		s.fellBack(ctx, StepDiscoverContent, raw)
	}
	if content != nil && content.SelectedContent.KeyPoints == nil {
		content.SelectedContent.KeyPoints = []string{}
	}
	st.DiscoveredContent = content
	return nil
}

func (s steps) generateReply(ctx context.Context, st *ReplyState) error {
	if st.DiscoveredContent == nil {
		st.Reply = noReply()
		return nil
	}

	selected, err := renderJSON(st.DiscoveredContent.SelectedContent, false)
	if err != nil {
		return fmt.Errorf("%s: encode content: %w", StepGenerateReply, err)
	}

	raw, err := s.complete(ctx, prompts.GenerateReply, brain.RoleGeneration, prompts.Vars{
		"CastText":        st.CastText,
		"SelectedContent": selected,
	})
	if err != nil {
		return err
	}

	reply, ok := parseWithFallback(raw, replyFallback())
	if reply == nil {
		reply, ok = replyFallback(), false
	}
	if !ok {
		s.fellBack(ctx, StepGenerateReply, raw)
	}
	st.Reply = reply
	return nil
}

// --- Embeddings ---

func (s steps) prepareText(ctx context.Context, st *EmbeddingState) error {
	input, err := renderJSON(st.InputData, false)
	if err != nil {
		return fmt.Errorf("%s: encode input data: %w", StepPrepareText, err)
	}

	raw, err := s.complete(ctx, prompts.PrepareText, brain.RoleReasoning, prompts.Vars{"InputData": input})
	if err != nil {
		return err
	}
	st.PreparedText = &raw
	return nil
}

func (s steps) embedText(ctx context.Context, st *EmbeddingState) error {
	if st.PreparedText == nil {
		return fmt.Errorf("%s: prepared text: %w", StepEmbedText, errMissingInput)
	}

	vec, err := s.Embedder.Embed(ctx, *st.PreparedText)
	if err != nil {
		return err
	}
	st.Embedding = NewEmbedding(vec)
	return nil
}
