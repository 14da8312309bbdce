package pipeline

import "context"

// EmbeddingsInput is the initial state of an embeddings run.
type EmbeddingsInput struct {
	InputData map[string]any
}

// EmbeddingsPipeline runs prepare-text → embed-text.
type EmbeddingsPipeline struct {
	exec *Executor[EmbeddingState]
}

// NewEmbeddingsPipeline wires the embeddings steps.
func NewEmbeddingsPipeline(deps Dependencies) *EmbeddingsPipeline {
	s := steps{deps.withDefaults()}
	return &EmbeddingsPipeline{
		exec: NewExecutor("embeddings", s.Logger,
			Step[EmbeddingState]{Name: StepPrepareText, Run: s.prepareText},
			Step[EmbeddingState]{Name: StepEmbedText, Run: s.embedText},
		),
	}
}

// Steps returns the step names in run order.
func (p *EmbeddingsPipeline) Steps() []string { return p.exec.StepNames() }

// Run executes one embeddings run. On error no partial state is returned.
func (p *EmbeddingsPipeline) Run(ctx context.Context, in EmbeddingsInput) (*EmbeddingState, error) {
	st := &EmbeddingState{InputData: in.InputData}
	if err := p.exec.Run(ensureRunID(ctx), st); err != nil {
		return nil, err
	}
	return st, nil
}
