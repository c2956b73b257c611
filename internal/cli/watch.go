package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
)

// retryDelay is how long the watcher waits before retrying a failed setup.
const retryDelay = 2 * time.Second

// RunWatch runs the pipeline, then runs it again every time its definition
// changes, until ctx is cancelled. Failed runs are reported and do not stop
// the watcher.
func RunWatch(ctx context.Context, opts Options) error {
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

	logger.Info("starting watcher", "pipeline", name)
	printSystemMessage(opts.stderr(), "Watching '%s'. Press Ctrl+C to stop.", name)

	changes, err := src.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch pipeline: %w", err)
	}

	for {
		if _, err := runOnce(ctx, engine, src, name, opts, logger); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("run failed", "err", err)
			printSystemMessage(opts.stderr(), "Run failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				// The watcher died; back off and try to re-arm it.
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(retryDelay):
				}
				if changes, err = src.Watch(ctx); err != nil {
					return fmt.Errorf("failed to watch pipeline: %w", err)
				}
				continue
			}
			logger.Info("change detected, re-running", "pipeline", name)
			printSystemMessage(opts.stderr(), "Change detected in '%s'.", name)
		}
	}
}
