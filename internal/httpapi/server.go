// Package httpapi exposes the pipelines over HTTP.
//
// Each endpoint decodes one request body, runs one pipeline and maps the
// final state to a JSON response. Bad input answers 422, oversized bodies
// 413 and pipeline failures 500, always as {"detail": "..."}.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/overhuman/replyd/internal/observability"
	"github.com/overhuman/replyd/internal/pipeline"
)

// RequestIDHeader carries the request ID in both directions. The same ID
// is the pipeline run ID.
const RequestIDHeader = "X-Request-ID"

// DefaultMaxBodyBytes caps request bodies when Options leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// UserSummaryRunner runs the user-summary pipeline.
type UserSummaryRunner interface {
	Run(ctx context.Context, in pipeline.UserSummaryInput) (*pipeline.UserSummaryState, error)
}

// ReplyRunner runs the reply pipeline.
type ReplyRunner interface {
	Run(ctx context.Context, in pipeline.ReplyInput) (*pipeline.ReplyState, error)
}

// EmbeddingsRunner runs the embeddings pipeline.
type EmbeddingsRunner interface {
	Run(ctx context.Context, in pipeline.EmbeddingsInput) (*pipeline.EmbeddingState, error)
}

// Pipelines groups the runners the server dispatches to.
type Pipelines struct {
	UserSummary UserSummaryRunner
	Reply       ReplyRunner
	Embeddings  EmbeddingsRunner
}

// Options configures a Server.
type Options struct {
	Addr         string // e.g. "127.0.0.1:8000" or ":0"
	MaxBodyBytes int64
	Version      string
	Logger       *observability.Logger
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Server is the HTTP front of the pipelines. Requests share nothing but
// the pipelines themselves.
type Server struct {
	addr    string
	opts    Options
	p       Pipelines
	handler http.Handler
	started time.Time

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// New builds a Server. Call Start to listen, or use Handler directly.
func New(p Pipelines, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{
		addr:    opts.Addr,
		opts:    opts,
		p:       p,
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("POST /user-summary", endpoint(s, "/user-summary", DecodeUserSummary,
		func(ctx context.Context, in pipeline.UserSummaryInput) (any, error) {
			st, err := s.p.UserSummary.Run(ctx, in)
			if err != nil {
				return nil, err
			}
			return NewUserSummaryResponse(st), nil
		}))
	mux.Handle("POST /generate-reply", endpoint(s, "/generate-reply", DecodeReply,
		func(ctx context.Context, in pipeline.ReplyInput) (any, error) {
			st, err := s.p.Reply.Run(ctx, in)
			if err != nil {
				return nil, err
			}
			return NewReplyResponse(st), nil
		}))
	mux.Handle("POST /generate-embeddings", endpoint(s, "/generate-embeddings", DecodeEmbeddings,
		func(ctx context.Context, in pipeline.EmbeddingsInput) (any, error) {
			st, err := s.p.Embeddings.Run(ctx, in)
			if err != nil {
				return nil, err
			}
			return NewEmbeddingsResponse(st), nil
		}))

	s.handler = s.withRequestID(mux)
	return s
}

// Handler returns the routed handler with request-ID and logging applied.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens on the configured address and serves until ctx is
// cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("httpapi: listen: %w", err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.srv
	s.mu.Unlock()

	s.opts.Logger.Info("http server listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpapi: serve: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down, waiting up to 5s for in-flight
// runs.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// Addr returns the bound listener address, or the configured one before
// Start. Tests use it to find the port picked for ":0".
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: s.opts.Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	})
}

// endpoint adapts decode and run into a handler with the shared status
// mapping.
func endpoint[In any](s *Server, name string, decode func(io.Reader) (In, error), run func(context.Context, In) (any, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
		in, err := decode(body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
				return
			}
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		resp, err := run(r.Context(), in)
		if err != nil {
			runID := pipeline.RunIDFrom(r.Context())
			s.opts.Logger.Error("pipeline failed",
				"endpoint", name,
				"run_id", runID,
				"error", err.Error(),
			)
			observability.CaptureError(err, map[string]string{
				"endpoint": name,
				"run_id":   runID,
			})
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// withRequestID assigns the request ID, exposes it as the run ID and logs
// one line per request.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(pipeline.WithRunID(r.Context(), id)))

		s.opts.Logger.Info("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"request_id", id,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
