package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	graphview "github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/runs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodySize caps pipeline documents accepted over HTTP.
const maxBodySize = 1 << 20

// DefaultRunTimeout bounds a run submitted to POST /runs.
const DefaultRunTimeout = 5 * time.Minute

// Engine defines what the HTTP adapter needs from arbor.
type Engine interface {
	Run(ctx context.Context, pipeline string, descriptors []domain.TaskDescriptor) (*domain.RunRecord, error)
	Build(descriptors []domain.TaskDescriptor) (*graph.Graph, error)
	Validate(descriptors []domain.TaskDescriptor) (*graph.Graph, error)
	Actions() []string
	Runs() *runs.Manager
}

// Server holds the handlers of the HTTP API.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger     *slog.Logger
	gatherer   prometheus.Gatherer
	runTimeout time.Duration
}

// Option configures the handler.
type Option func(*Server)

// WithLogger sets the logger used for request and error logging.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams shares a StreamManager whose Hooks are attached to the engine,
// so GET /events can relay task events.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithMetrics exposes g on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithRunTimeout limits how long a run submitted over HTTP may take.
// Zero or a negative value removes the limit.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.runTimeout = d
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:     engine,
		logger:     logging.NewNop(),
		runTimeout: DefaultRunTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/actions", s.ListActions)
	r.Post("/validate", s.Validate)
	r.Post("/graph", s.RenderGraph)
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.CreateRun)
		r.Get("/", s.ListRuns)
		r.Get("/{id}", s.GetRun)
		r.Delete("/{id}", s.DeleteRun)
	})
	r.Get("/events", s.SubscribeEvents)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "arbor-http",
		"version": strings.TrimSpace(arbor.Version),
	})
}

// ListActions handles the GET /actions request.
func (s *Server) ListActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"actions": s.Engine.Actions()})
}

// ValidateResponse reports whether a pipeline can run as submitted.
type ValidateResponse struct {
	Valid       bool     `json:"valid"`
	Tasks       int      `json:"tasks"`
	Unreachable []int    `json:"unreachable,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// Validate handles the POST /validate request.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodePipeline(w, r)
	if !ok {
		return
	}

	g, err := s.Engine.Validate(p.Tasks)
	if g == nil {
		s.writeError(w, err)
		return
	}

	resp := ValidateResponse{Valid: err == nil, Tasks: g.Len(), Unreachable: g.Unreachable()}
	if err != nil {
		resp.Errors = strings.Split(err.Error(), "\n")
	}
	status := http.StatusOK
	if !resp.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// RenderGraph handles the POST /graph request and returns a Mermaid flowchart.
func (s *Server) RenderGraph(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodePipeline(w, r)
	if !ok {
		return
	}

	g, err := s.Engine.Build(p.Tasks)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graphview.GenerateMermaid(g, nil))
}

// CreateRun handles the POST /runs request. The run executes synchronously
// under the run timeout; a failed or timed out task still yields 201 with a
// record whose status is failed.
func (s *Server) CreateRun(w http.ResponseWriter, r *http.Request) {
	p, ok := s.decodePipeline(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	record, err := s.Engine.Run(ctx, p.Name, p.Tasks)
	if record == nil {
		s.writeError(w, err)
		return
	}
	if err != nil {
		s.logger.Warn("run failed", "run_id", record.ID, "pipeline", p.Name, "err", err)
	}
	writeJSON(w, http.StatusCreated, record)
}

// ListRuns handles the GET /runs request.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	records, err := s.Engine.Runs().List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []*domain.RunRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetRun handles the GET /runs/{id} request.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	record, err := s.Engine.Runs().Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// DeleteRun handles the DELETE /runs/{id} request.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Engine.Runs().Load(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.Engine.Runs().Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles the GET /events request (SSE).
// An optional run_id query parameter narrows the feed to one run.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	runID := r.URL.Query().Get("run_id")
	ch, cancel := s.Streams.Subscribe(runID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}

// decodePipeline reads a pipeline document from the body. JSON is expected when
// the Content-Type says so, YAML otherwise. A name query parameter overrides
// the document name.
func (s *Server) decodePipeline(w http.ResponseWriter, r *http.Request) (*pipeline.Pipeline, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("invalid request body", "err", err)
		return nil, false
	}

	format := pipeline.FormatYAML
	if strings.Contains(r.Header.Get("Content-Type"), "json") {
		format = pipeline.FormatJSON
	}

	p, err := pipeline.Parse(data, format)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if name := r.URL.Query().Get("name"); name != "" {
		p.Name = name
	}
	if p.Name == "" {
		p.Name = "anonymous"
	}
	return p, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrInvalidPipeline),
		errors.Is(err, domain.ErrMalformedGraph),
		errors.Is(err, domain.ErrNoEntryPoint),
		errors.Is(err, domain.ErrUnknownAction),
		errors.Is(err, domain.ErrInvalidParams):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
