package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
)

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// Run executes the configured pipeline once and prints a summary.
func Run(ctx context.Context, opts Options) error {
	logger := createLogger(opts)

	src, name, err := OpenSource(opts, logger)
	if err != nil {
		return err
	}

	engine, closeEngine, err := NewEngine(opts, logger)
	if err != nil {
		return err
	}
	defer closeEngine()

	if !opts.Quiet && isTerminal(opts.stderr()) {
		tui.PrintBanner(opts.stderr(), arbor.Version)
	}

	_, err = runOnce(ctx, engine, src, name, opts, logger)
	return handleExecutionError(err)
}

func runOnce(ctx context.Context, engine *arbor.Engine, src Source, name string, opts Options, logger *slog.Logger) (*domain.RunRecord, error) {
	record, err := engine.RunSource(ctx, name, src)
	if record == nil {
		return nil, err
	}

	logger.Info("run finished", "run_id", record.ID, "status", record.Status, "visited", len(record.Visited))
	if !opts.Quiet {
		fmt.Fprintln(opts.stderr(), tui.RenderSummary(record))
	}
	return record, err
}

// handleExecutionError treats user interruption as a clean exit.
func handleExecutionError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
