package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/aretw0/arbor/pkg/linkedlist"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// errNoState is returned when a task with children produced no state to fork.
var errNoState = errors.New("task produced no state to fork")

// Executor walks a task graph depth-first from its root, executing every
// reachable task exactly once and handing each child its own clone of the
// parent's resulting state.
type Executor struct {
	factory     ports.TaskFactory
	logger      *slog.Logger
	hooks       domain.LifecycleHooks
	newVisited  ports.VisitedSetFactory
	newState    domain.StateFactory
	parallelism int64
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger configures the structured logger for the executor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers callbacks for task events.
// Repeated calls are merged in order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithVisitedSet sets the backend that tracks claimed task ids per run.
// Defaults to an in-memory set.
func WithVisitedSet(factory ports.VisitedSetFactory) Option {
	return func(e *Executor) {
		e.newVisited = factory
	}
}

// WithStateFactory sets how the root's initial empty state is built.
// Defaults to an empty linked list.
func WithStateFactory(factory domain.StateFactory) Option {
	return func(e *Executor) {
		e.newState = factory
	}
}

// WithParallelism allows up to n sibling subtrees to run concurrently.
// Values below 2 keep the walk sequential.
func WithParallelism(n int) Option {
	return func(e *Executor) {
		e.parallelism = int64(n)
	}
}

// NewExecutor creates an executor that resolves actions through factory.
func NewExecutor(factory ports.TaskFactory, opts ...Option) *Executor {
	e := &Executor{
		factory:    factory,
		logger:     logging.NewNop(),
		newVisited: memory.NewVisitedSet,
		newState:   linkedlist.NewState,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report summarizes a finished run. It is returned even when the run fails.
type Report struct {
	RunID string
	// Visited lists task ids in the order they were claimed.
	Visited  []int
	Duration time.Duration
}

// Run executes g under runID. An empty runID gets a generated one.
//
// A failing task aborts the whole walk: its descendants and any sibling
// subtree not yet started never run. The returned error is a *domain.TaskError
// naming the task, wrapping the original cause.
func (e *Executor) Run(ctx context.Context, runID string, g *graph.Graph) (*Report, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	report := &Report{RunID: runID}
	start := time.Now()

	entry, err := g.Entry()
	if err != nil {
		return report, err
	}
	rootID, _ := entry.TaskID()

	visited := e.newVisited(runID)
	r := &run{
		Executor: e,
		id:       runID,
		graph:    g,
		visited:  visited,
		logger:   e.logger.With("run_id", runID),
	}
	if e.parallelism > 1 {
		// The running branch holds one slot, so n-1 extra workers may join it.
		r.sem = semaphore.NewWeighted(e.parallelism - 1)
	}

	r.logger.Info("run started", "entry", rootID, "tasks", g.Len())

	runErr := func() error {
		if _, err := visited.Add(ctx, rootID); err != nil {
			return fmt.Errorf("claim task %d: %w", rootID, err)
		}
		return r.visit(ctx, rootID, e.newState())
	}()

	if members, err := visited.Members(context.WithoutCancel(ctx)); err == nil {
		report.Visited = members
	} else {
		r.logger.Warn("failed to read visited set", "error", err)
	}
	if err := visited.Discard(context.WithoutCancel(ctx)); err != nil {
		r.logger.Warn("failed to discard visited set", "error", err)
	}
	report.Duration = time.Since(start)

	if runErr != nil {
		r.logger.Error("run failed", "error", runErr, "visited", len(report.Visited))
		return report, runErr
	}
	r.logger.Info("run finished", "visited", len(report.Visited), "duration", report.Duration)
	return report, nil
}
