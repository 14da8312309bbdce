// Package pipeline runs the service's fixed step sequences.
//
// A pipeline is an ordered list of steps over a typed, per-run state
// record. Steps run strictly one after another; each reads what earlier
// steps wrote. Skipping is never done by the executor: a step that has
// nothing to do decides so itself and writes a fixed result.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/overhuman/replyd/internal/observability"
)

// Step is one named unit of work over state S.
type Step[S any] struct {
	Name string
	Run  func(ctx context.Context, state *S) error
}

// Executor runs a fixed list of steps in declared order. It holds no
// per-run data and may be shared by concurrent runs.
type Executor[S any] struct {
	name   string
	steps  []Step[S]
	logger *observability.Logger
}

// NewExecutor creates an executor named name over steps.
func NewExecutor[S any](name string, logger *observability.Logger, steps ...Step[S]) *Executor[S] {
	return &Executor[S]{name: name, steps: steps, logger: logger}
}

// Name returns the pipeline name.
func (e *Executor[S]) Name() string { return e.name }

// StepNames returns the declared step order.
func (e *Executor[S]) StepNames() []string {
	names := make([]string, len(e.steps))
	for i, s := range e.steps {
		names[i] = s.Name
	}
	return names
}

// Run executes every step against state. The first step error is returned
// as-is and no later step runs. There are no retries.
func (e *Executor[S]) Run(ctx context.Context, state *S) error {
	log := e.logger.With("pipeline", e.name).With("run_id", RunIDFrom(ctx))
	start := time.Now()

	for i, step := range e.steps {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled", "before_step", step.Name, "error", err.Error())
			return err
		}

		stepStart := time.Now()
		log.Step(i+1, len(e.steps), step.Name, "step started")
		if err := step.Run(ctx, state); err != nil {
			log.Warn("step failed", "step", step.Name, "error", err.Error())
			return err
		}
		log.Step(i+1, len(e.steps), step.Name, "step finished",
			"elapsed_ms", time.Since(stepStart).Milliseconds())
	}

	log.Info("run completed", "steps", len(e.steps), "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

type runIDKey struct{}

// WithRunID attaches a run ID to ctx. Facades use it for log correlation.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run ID attached to ctx, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// ensureRunID returns ctx unchanged when it already carries a run ID and
// otherwise attaches a fresh one.
func ensureRunID(ctx context.Context) context.Context {
	if RunIDFrom(ctx) != "" {
		return ctx
	}
	return WithRunID(ctx, uuid.NewString())
}
