package pipeline

// IntentAnalysis is the check-intent verdict on a cast.
type IntentAnalysis struct {
	ShouldReply     bool     `json:"should_reply"`
	IdentifiedNeeds []string `json:"identified_needs"`
	Confidence      float64  `json:"confidence"`
}

// SelectedContent is the feed item chosen to back a reply.
type SelectedContent struct {
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	RelevanceScore float64  `json:"relevance_score"`
	KeyPoints      []string `json:"key_points"`
}

// DiscoveredContent is the discover-content result. A nil
// *DiscoveredContent means no content: the cast needs no reply.
type DiscoveredContent struct {
	SelectedContent SelectedContent `json:"selected_content"`
}

// Reply is the generated answer to a cast.
type Reply struct {
	ReplyText string `json:"reply_text"`
	Link      string `json:"link"`
}

// Embedding is a vector with its length. Dimensions always equals
// len(Vector); build it with NewEmbedding.
type Embedding struct {
	Vector     []float64 `json:"vector"`
	Dimensions int       `json:"dimensions"`
}

// NewEmbedding wraps vec, normalizing nil to an empty vector.
func NewEmbedding(vec []float64) *Embedding {
	if vec == nil {
		vec = []float64{}
	}
	return &Embedding{Vector: vec, Dimensions: len(vec)}
}

// UserSummary is the keyword profile extracted from user data.
type UserSummary struct {
	Keywords   []string `json:"keywords"`
	RawSummary string   `json:"raw_summary"`
}

// UserSummaryState is the working set of one user-summary run.
type UserSummaryState struct {
	UserData      map[string]any
	UserSummary   *UserSummary
	UserEmbedding *Embedding
}

// ReplyState is the working set of one reply run.
type ReplyState struct {
	CastText          string
	AvailableFeeds    []map[string]any
	IntentAnalysis    *IntentAnalysis
	DiscoveredContent *DiscoveredContent
	Reply             *Reply
}

// EmbeddingState is the working set of one embeddings run.
type EmbeddingState struct {
	InputData    map[string]any
	PreparedText *string
	Embedding    *Embedding
}

// Fixed reply texts.
const (
	NoReplyText       = "No response needed for this cast."
	FallbackReplyText = "I apologize, but I couldn't generate a proper response at this time."
)

func intentFallback() *IntentAnalysis {
	return &IntentAnalysis{ShouldReply: false, IdentifiedNeeds: []string{}, Confidence: 0.0}
}

func discoveryFallback() *DiscoveredContent {
	return &DiscoveredContent{SelectedContent: SelectedContent{KeyPoints: []string{}}}
}

func replyFallback() *Reply {
	return &Reply{ReplyText: FallbackReplyText, Link: ""}
}

func noReply() *Reply {
	return &Reply{ReplyText: NoReplyText, Link: ""}
}
