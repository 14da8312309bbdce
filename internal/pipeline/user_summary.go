package pipeline

import "context"

// UserSummaryInput is the initial state of a user-summary run.
type UserSummaryInput struct {
	UserData map[string]any
}

// UserSummaryPipeline runs summarize-user-data → embed-summary.
type UserSummaryPipeline struct {
	exec *Executor[UserSummaryState]
}

// NewUserSummaryPipeline wires the user-summary steps.
func NewUserSummaryPipeline(deps Dependencies) *UserSummaryPipeline {
	s := steps{deps.withDefaults()}
	return &UserSummaryPipeline{
		exec: NewExecutor("user-summary", s.Logger,
			Step[UserSummaryState]{Name: StepSummarizeUserData, Run: s.summarizeUserData},
			Step[UserSummaryState]{Name: StepEmbedSummary, Run: s.embedSummary},
		),
	}
}

// Steps returns the step names in run order.
func (p *UserSummaryPipeline) Steps() []string { return p.exec.StepNames() }

// Run executes one user-summary run. On error no partial state is returned.
func (p *UserSummaryPipeline) Run(ctx context.Context, in UserSummaryInput) (*UserSummaryState, error) {
	st := &UserSummaryState{UserData: in.UserData}
	if err := p.exec.Run(ensureRunID(ctx), st); err != nil {
		return nil, err
	}
	return st, nil
}
