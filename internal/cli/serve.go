package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/arbor"
	httpadapter "github.com/aretw0/arbor/pkg/adapters/http"
	mcpadapter "github.com/aretw0/arbor/pkg/adapters/mcp"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 5 * time.Second

// NewServeHandler builds the HTTP API with metrics and live events wired into
// a fresh engine.
func NewServeHandler(opts Options) (http.Handler, func() error, error) {
	logger := createLogger(opts)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return nil, nil, err
	}
	streams := httpadapter.NewStreamManager()

	engine, closeEngine, err := NewEngine(opts, logger,
		arbor.WithLifecycleHooks(metrics.Hooks()),
		arbor.WithLifecycleHooks(streams.Hooks()),
	)
	if err != nil {
		return nil, nil, err
	}

	handlerOpts := []httpadapter.Option{
		httpadapter.WithLogger(logger),
		httpadapter.WithStreams(streams),
		httpadapter.WithMetrics(reg),
	}
	if opts.RunTimeout != 0 {
		handlerOpts = append(handlerOpts, httpadapter.WithRunTimeout(opts.RunTimeout))
	}
	handler := httpadapter.NewHandler(engine, handlerOpts...)
	return handler, closeEngine, nil
}

// Serve runs the HTTP API on port until ctx is cancelled.
func Serve(ctx context.Context, opts Options, port string) error {
	handler, closeEngine, err := NewServeHandler(opts)
	if err != nil {
		return err
	}
	defer closeEngine()

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(opts.stderr(), "Starting arbor server on %s", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		printSystemMessage(opts.stderr(), "Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
		}
		printSystemMessage(opts.stderr(), "arbor server stopped gracefully")
		return nil
	}
}

// ServeMCP exposes the engine as MCP tools over stdio, or over SSE when port is set.
func ServeMCP(ctx context.Context, opts Options, port int) error {
	// stdout carries the protocol in stdio mode.
	opts.Stdout = opts.stderr()
	logger := createLogger(opts)

	engine, closeEngine, err := NewEngine(opts, logger)
	if err != nil {
		return err
	}
	defer closeEngine()

	srv := mcpadapter.NewServer(engine, mcpadapter.WithLogger(logger))
	if port > 0 {
		return srv.ServeSSE(ctx, port)
	}
	return srv.ServeStdio()
}
