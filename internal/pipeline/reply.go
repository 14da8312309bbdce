package pipeline

import "context"

// ReplyInput is the initial state of a reply run.
type ReplyInput struct {
	CastText       string
	AvailableFeeds []map[string]any
}

// ReplyPipeline runs check-intent → discover-content → generate-reply.
// When the intent check says no reply is warranted, discover-content and
// generate-reply short-circuit without calling a provider.
type ReplyPipeline struct {
	exec *Executor[ReplyState]
}

// NewReplyPipeline wires the reply steps.
func NewReplyPipeline(deps Dependencies) *ReplyPipeline {
	s := steps{deps.withDefaults()}
	return &ReplyPipeline{
		exec: NewExecutor("reply", s.Logger,
			Step[ReplyState]{Name: StepCheckIntent, Run: s.checkIntent},
			Step[ReplyState]{Name: StepDiscoverContent, Run: s.discoverContent},
			Step[ReplyState]{Name: StepGenerateReply, Run: s.generateReply},
		),
	}
}

// Steps returns the step names in run order.
func (p *ReplyPipeline) Steps() []string { return p.exec.StepNames() }

// Run executes one reply run. On error no partial state is returned.
func (p *ReplyPipeline) Run(ctx context.Context, in ReplyInput) (*ReplyState, error) {
	st := &ReplyState{CastText: in.CastText, AvailableFeeds: in.AvailableFeeds}
	if err := p.exec.Run(ensureRunID(ctx), st); err != nil {
		return nil, err
	}
	return st, nil
}
