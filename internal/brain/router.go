package brain

// Role names the kind of work a model call does. Steps ask for a role and
// the router decides which model serves it.
type Role string

const (
	RoleReasoning  Role = "reasoning"
	RoleGeneration Role = "generation"
	RoleEmbedding  Role = "embedding"
)

// Default models, matching what the service has always run with.
const (
	DefaultReasoningModel  = "o4-mini"
	DefaultGenerationModel = "gpt-4.1-mini"
	DefaultEmbeddingModel  = "text-embedding-3-small"
)

// ModelEntry binds a role to a model ID.
type ModelEntry struct {
	Role Role
	ID   string // e.g. "o4-mini", "claude-sonnet-4-20250514"
}

// ModelRouter selects the model for a role. It is immutable after
// construction and safe for concurrent use.
type ModelRouter struct {
	models map[Role]string
}

// NewModelRouter creates a router with the default model entries.
func NewModelRouter() *ModelRouter {
	return NewModelRouterWithModels([]ModelEntry{
		{Role: RoleReasoning, ID: DefaultReasoningModel},
		{Role: RoleGeneration, ID: DefaultGenerationModel},
		{Role: RoleEmbedding, ID: DefaultEmbeddingModel},
	})
}

// NewModelRouterWithModels creates a router with custom model entries.
// Later entries for the same role win; empty IDs are ignored.
func NewModelRouterWithModels(models []ModelEntry) *ModelRouter {
	r := &ModelRouter{models: make(map[Role]string, len(models))}
	for _, m := range models {
		if m.ID != "" {
			r.models[m.Role] = m.ID
		}
	}
	return r
}

// Select returns the model for role. An unknown role falls back to the
// reasoning model; "" means the provider's own default is used.
func (r *ModelRouter) Select(role Role) string {
	if id, ok := r.models[role]; ok {
		return id
	}
	return r.models[RoleReasoning]
}

// Entries returns the configured entries in role order.
func (r *ModelRouter) Entries() []ModelEntry {
	var out []ModelEntry
	for _, role := range []Role{RoleReasoning, RoleGeneration, RoleEmbedding} {
		if id, ok := r.models[role]; ok {
			out = append(out, ModelEntry{Role: role, ID: id})
		}
	}
	return out
}
