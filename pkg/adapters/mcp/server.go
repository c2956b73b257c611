package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
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
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const runsResourceURI = "arbor://runs"

// RunResponse is the structured result of run_pipeline.
type RunResponse struct {
	Record *domain.RunRecord `json:"record" jsonschema_description:"The persisted run record"`
	Error  string            `json:"error,omitempty" jsonschema_description:"Why the run failed, if it did"`
}

// ValidateResponse is the structured result of validate_pipeline.
type ValidateResponse struct {
	Valid       bool     `json:"valid" jsonschema_description:"True when every reachable task names a known action"`
	Tasks       int      `json:"tasks" jsonschema_description:"Number of task descriptors"`
	Unreachable []int    `json:"unreachable,omitempty" jsonschema_description:"Task ids that can never run"`
	Errors      []string `json:"errors,omitempty" jsonschema_description:"Validation problems"`
}

// Engine defines what the MCP server needs from arbor.
type Engine interface {
	Run(ctx context.Context, pipeline string, descriptors []domain.TaskDescriptor) (*domain.RunRecord, error)
	Build(descriptors []domain.TaskDescriptor) (*graph.Graph, error)
	Validate(descriptors []domain.TaskDescriptor) (*graph.Graph, error)
	Actions() []string
	Runs() *runs.Manager
}

// Server wraps the arbor Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger. Never point it at stdout when serving stdio.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	pipelineArgs := []mcp.ToolOption{
		mcp.WithString("pipeline", mcp.Required(), mcp.Description("Pipeline document (apiVersion, name, tasks)")),
		mcp.WithString("format", mcp.Description("Document format: yaml (default) or json")),
	}

	// TOOL: run_pipeline
	runTool := mcp.NewTool("run_pipeline", append([]mcp.ToolOption{
		mcp.WithDescription("Execute a pipeline and return its run record."),
		mcp.WithString("name", mcp.Description("Overrides the pipeline name used for locking and history")),
		mcp.WithOutputSchema[RunResponse](),
	}, pipelineArgs...)...)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunPipeline))

	// TOOL: validate_pipeline
	validateTool := mcp.NewTool("validate_pipeline", append([]mcp.ToolOption{
		mcp.WithDescription("Check that a pipeline builds and that every reachable task names a known action."),
		mcp.WithOutputSchema[ValidateResponse](),
	}, pipelineArgs...)...)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidatePipeline))

	// TOOL: describe_pipeline
	s.mcpServer.AddTool(mcp.NewTool("describe_pipeline", append([]mcp.ToolOption{
		mcp.WithDescription("List the tasks a pipeline would execute, without running it."),
	}, pipelineArgs...)...), s.textTool(s.describe))

	// TOOL: graph_pipeline
	s.mcpServer.AddTool(mcp.NewTool("graph_pipeline", append([]mcp.ToolOption{
		mcp.WithDescription("Render the task tree as a Mermaid flowchart."),
	}, pipelineArgs...)...), s.textTool(s.mermaid))

	// TOOL: list_actions
	s.mcpServer.AddTool(mcp.NewTool("list_actions",
		mcp.WithDescription("List the registered action names."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.engine.Actions())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: get_run
	s.mcpServer.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Fetch a persisted run record by id."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run id returned by run_pipeline")),
	), s.textTool(s.getRun))
}

// textTool adapts a string-producing handler. Failures are reported as tool
// errors so the client sees them instead of a protocol error.
func (s *Server) textTool(fn func(ctx context.Context, args map[string]interface{}) (string, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := fn(ctx, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func parsePipeline(args map[string]interface{}) (*pipeline.Pipeline, error) {
	doc, _ := args["pipeline"].(string)
	if strings.TrimSpace(doc) == "" {
		return nil, errors.New("pipeline is required")
	}

	format := pipeline.FormatYAML
	if f, _ := args["format"].(string); strings.EqualFold(f, "json") {
		format = pipeline.FormatJSON
	}

	p, err := pipeline.Parse([]byte(doc), format)
	if err != nil {
		return nil, err
	}
	if name, _ := args["name"].(string); name != "" {
		p.Name = name
	}
	if p.Name == "" {
		p.Name = "mcp"
	}
	return p, nil
}

func (s *Server) handleRunPipeline(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	p, err := parsePipeline(args)
	if err != nil {
		return RunResponse{}, err
	}

	record, err := s.engine.Run(ctx, p.Name, p.Tasks)
	if record == nil {
		return RunResponse{}, fmt.Errorf("run failed: %w", err)
	}

	resp := RunResponse{Record: record}
	if err != nil {
		s.logger.Warn("MCP run failed", "run_id", record.ID, "err", err)
		resp.Error = err.Error()
	}
	return resp, nil
}

func (s *Server) handleValidatePipeline(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidateResponse, error) {
	p, err := parsePipeline(args)
	if err != nil {
		return ValidateResponse{}, err
	}

	g, err := s.engine.Validate(p.Tasks)
	if g == nil {
		return ValidateResponse{Errors: []string{err.Error()}}, nil
	}

	resp := ValidateResponse{Valid: err == nil, Tasks: g.Len(), Unreachable: g.Unreachable()}
	if err != nil {
		resp.Errors = strings.Split(err.Error(), "\n")
	}
	return resp, nil
}

func (s *Server) describe(ctx context.Context, args map[string]interface{}) (string, error) {
	p, err := parsePipeline(args)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := p.Describe(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *Server) mermaid(ctx context.Context, args map[string]interface{}) (string, error) {
	p, err := parsePipeline(args)
	if err != nil {
		return "", err
	}
	g, err := s.engine.Build(p.Tasks)
	if err != nil {
		return "", err
	}
	return graphview.GenerateMermaid(g, nil), nil
}

func (s *Server) getRun(ctx context.Context, args map[string]interface{}) (string, error) {
	id, _ := args["run_id"].(string)
	record, err := s.engine.Runs().Load(ctx, id)
	if err != nil {
		return "", err
	}
	jsonBytes, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	return string(jsonBytes), nil
}

func (s *Server) registerResources() {
	// EXPOSE: arbor://runs
	s.mcpServer.AddResource(mcp.NewResource(runsResourceURI, "Run History",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		records, err := s.engine.Runs().List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list runs: %w", err)
		}
		jsonBytes, _ := json.Marshal(records)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      runsResourceURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
