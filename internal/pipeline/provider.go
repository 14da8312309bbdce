package pipeline

import (
	"context"

	"github.com/overhuman/replyd/internal/brain"
)

// Completer turns a rendered chat prompt into the model's raw text.
// Call failures are returned as errors and never recovered by steps.
type Completer interface {
	Complete(ctx context.Context, role brain.Role, messages []brain.Message) (string, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

var (
	_ Completer = (*brain.Client)(nil)
	_ Embedder  = (*brain.Client)(nil)
)
