package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/overhuman/replyd/internal/pipeline"
)

// InputError is a request the service refuses to run: malformed JSON or a
// missing required field. It maps to 422.
type InputError struct {
	Detail string
}

func (e *InputError) Error() string { return e.Detail }

type userSummaryRequest struct {
	UserData map[string]any `json:"user_data"`
}

type replyRequest struct {
	CastText       *string          `json:"cast_text"`
	AvailableFeeds []map[string]any `json:"available_feeds"`
}

type embeddingsRequest struct {
	InputData map[string]any `json:"input_data"`
}

// DecodeUserSummary reads a {"user_data": {...}} body.
func DecodeUserSummary(r io.Reader) (pipeline.UserSummaryInput, error) {
	var req userSummaryRequest
	if err := decode(r, &req); err != nil {
		return pipeline.UserSummaryInput{}, err
	}
	if req.UserData == nil {
		return pipeline.UserSummaryInput{}, &InputError{Detail: "user_data is required and must be an object"}
	}
	return pipeline.UserSummaryInput{UserData: req.UserData}, nil
}

// DecodeReply reads a {"cast_text": "...", "available_feeds": [...]} body.
// available_feeds may be omitted.
func DecodeReply(r io.Reader) (pipeline.ReplyInput, error) {
	var req replyRequest
	if err := decode(r, &req); err != nil {
		return pipeline.ReplyInput{}, err
	}
	if req.CastText == nil {
		return pipeline.ReplyInput{}, &InputError{Detail: "cast_text is required and must be a string"}
	}
	feeds := req.AvailableFeeds
	if feeds == nil {
		feeds = []map[string]any{}
	}
	return pipeline.ReplyInput{CastText: *req.CastText, AvailableFeeds: feeds}, nil
}

// DecodeEmbeddings reads a {"input_data": {...}} body.
func DecodeEmbeddings(r io.Reader) (pipeline.EmbeddingsInput, error) {
	var req embeddingsRequest
	if err := decode(r, &req); err != nil {
		return pipeline.EmbeddingsInput{}, err
	}
	if req.InputData == nil {
		return pipeline.EmbeddingsInput{}, &InputError{Detail: "input_data is required and must be an object"}
	}
	return pipeline.EmbeddingsInput{InputData: req.InputData}, nil
}

// decode returns *http.MaxBytesError untouched so the caller can answer 413.
func decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	// Numbers in free-form user data stay json.Number so they reach the
	// prompts digit for digit.
	dec.UseNumber()
	err := dec.Decode(v)
	if err == nil {
		err = expectEOF(dec)
	}
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	var inputErr *InputError
	if errors.As(err, &tooLarge) || errors.As(err, &inputErr) {
		return err
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &InputError{Detail: fmt.Sprintf("%s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)}
	}
	return &InputError{Detail: "invalid JSON body: " + err.Error()}
}

// expectEOF rejects anything but whitespace after the first JSON value.
func expectEOF(dec *json.Decoder) error {
	var extra json.RawMessage
	err := dec.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return &InputError{Detail: "invalid JSON body: unexpected data after top-level value"}
}

// EmbeddingResponse is the wire form of pipeline.Embedding.
type EmbeddingResponse struct {
	Vector     []float64 `json:"vector"`
	Dimensions int       `json:"dimensions"`
}

// UserSummaryResponse is the POST /user-summary result.
type UserSummaryResponse struct {
	Keywords   []string          `json:"keywords"`
	RawSummary string            `json:"raw_summary"`
	Embedding  EmbeddingResponse `json:"embedding"`
}

// ReplyResponse is the POST /generate-reply result. ReplyText and Link are
// omitted unless ShouldReply is true.
type ReplyResponse struct {
	ShouldReply bool    `json:"should_reply"`
	ReplyText   *string `json:"reply_text,omitempty"`
	Link        *string `json:"link,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// EmbeddingsResponse is the POST /generate-embeddings result.
type EmbeddingsResponse struct {
	PreparedText string            `json:"prepared_text"`
	Embedding    EmbeddingResponse `json:"embedding"`
}

func newEmbeddingResponse(e *pipeline.Embedding) EmbeddingResponse {
	if e == nil {
		return EmbeddingResponse{Vector: []float64{}}
	}
	return EmbeddingResponse{Vector: e.Vector, Dimensions: e.Dimensions}
}

// NewUserSummaryResponse maps a finished user-summary run.
func NewUserSummaryResponse(st *pipeline.UserSummaryState) UserSummaryResponse {
	var resp UserSummaryResponse
	if st.UserSummary != nil {
		resp.Keywords = st.UserSummary.Keywords
		resp.RawSummary = st.UserSummary.RawSummary
	}
	if resp.Keywords == nil {
		resp.Keywords = []string{}
	}
	resp.Embedding = newEmbeddingResponse(st.UserEmbedding)
	return resp
}

// NewReplyResponse maps a finished reply run.
func NewReplyResponse(st *pipeline.ReplyState) ReplyResponse {
	var resp ReplyResponse
	if st.IntentAnalysis != nil {
		resp.ShouldReply = st.IntentAnalysis.ShouldReply
		resp.Confidence = st.IntentAnalysis.Confidence
	}
	if st.Reply != nil && resp.ShouldReply {
		text, link := st.Reply.ReplyText, st.Reply.Link
		resp.ReplyText = &text
		resp.Link = &link
	}
	return resp
}

// NewEmbeddingsResponse maps a finished embeddings run.
func NewEmbeddingsResponse(st *pipeline.EmbeddingState) EmbeddingsResponse {
	var resp EmbeddingsResponse
	if st.PreparedText != nil {
		resp.PreparedText = *st.PreparedText
	}
	resp.Embedding = newEmbeddingResponse(st.Embedding)
	return resp
}
