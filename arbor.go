package arbor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/actions"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/runs"
	"github.com/google/uuid"
)

// Engine is the high-level entry point for the arbor library.
// It wires the action registry, the graph executor and run bookkeeping.
type Engine struct {
	registry *registry.Registry
	executor *runtime.Executor
	runs     *runs.Manager

	store       ports.RunStore
	locker      ports.DistributedLocker
	visited     ports.VisitedSetFactory
	newState    domain.StateFactory
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	output      io.Writer
	parallelism int
	strict      bool
	custom      map[string]registry.Constructor
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks. Repeated calls are merged.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRunStore sets where run records are persisted. Defaults to memory.
func WithRunStore(store ports.RunStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker adds a distributed lock around runs of the same pipeline.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithVisitedSet sets the backend tracking claimed task ids per run.
func WithVisitedSet(factory ports.VisitedSetFactory) Option {
	return func(e *Engine) {
		e.visited = factory
	}
}

// WithStateFactory replaces the initial empty state. The built-in actions
// only understand linked lists, so this is meant for custom actions.
func WithStateFactory(factory domain.StateFactory) Option {
	return func(e *Engine) {
		e.newState = factory
	}
}

// WithParallelism lets up to n sibling subtrees run concurrently.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithStrict rejects duplicate task ids instead of letting the last one win.
func WithStrict() Option {
	return func(e *Engine) {
		e.strict = true
	}
}

// WithOutput sets where print_list writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.output = w
	}
}

// WithAction registers a custom action alongside the built-in ones.
// A custom action with a built-in name replaces it.
func WithAction(name string, ctor registry.Constructor) Option {
	return func(e *Engine) {
		if e.custom == nil {
			e.custom = make(map[string]registry.Constructor)
		}
		e.custom[name] = ctor
	}
}

// New initializes an Engine with the built-in actions registered.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:  logging.NewNop(),
		visited: memory.NewVisitedSet,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.parallelism < 0 {
		return nil, fmt.Errorf("parallelism must not be negative, got %d", e.parallelism)
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}

	e.registry = registry.NewRegistry()
	actionOpts := []actions.Option{actions.WithLogger(e.logger)}
	if e.output != nil {
		actionOpts = append(actionOpts, actions.WithOutput(e.output))
	}
	actions.Register(e.registry, actionOpts...)
	for name, ctor := range e.custom {
		e.registry.Register(name, ctor)
	}

	runOpts := []runs.Option{runs.WithLogger(e.logger)}
	if e.locker != nil {
		runOpts = append(runOpts, runs.WithLocker(e.locker))
	}
	e.runs = runs.NewManager(e.store, runOpts...)

	execOpts := []runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithVisitedSet(e.visited),
		runtime.WithParallelism(e.parallelism),
	}
	if e.newState != nil {
		execOpts = append(execOpts, runtime.WithStateFactory(e.newState))
	}
	e.executor = runtime.NewExecutor(e.registry, execOpts...)

	return e, nil
}

// Actions lists the registered action names, sorted.
func (e *Engine) Actions() []string {
	return e.registry.Actions()
}

// Runs exposes run history.
func (e *Engine) Runs() *runs.Manager {
	return e.runs
}

// Build indexes descriptors with the engine's graph options.
func (e *Engine) Build(descriptors []domain.TaskDescriptor) (*graph.Graph, error) {
	var opts []graph.Option
	if e.strict {
		opts = append(opts, graph.Strict())
	}
	return graph.Build(descriptors, opts...)
}

// Validate builds the graph and checks that every reachable task names a
// registered action. All unknown actions are reported together.
func (e *Engine) Validate(descriptors []domain.TaskDescriptor) (*graph.Graph, error) {
	g, err := e.Build(descriptors)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, id := range g.Reachable() {
		d, _ := g.Lookup(id)
		if !e.registry.Has(d.Action) {
			errs = append(errs, &domain.TaskError{
				TaskID: id,
				Name:   d.Name,
				Action: d.Action,
				Err:    fmt.Errorf("%w: %q", domain.ErrUnknownAction, d.Action),
			})
		}
	}
	return g, errors.Join(errs...)
}

// Run executes descriptors as one run of pipeline. Runs of the same pipeline
// are serialized. The returned record is persisted and is non-nil whenever the
// walk started, including when a task failed.
func (e *Engine) Run(ctx context.Context, pipeline string, descriptors []domain.TaskDescriptor) (*domain.RunRecord, error) {
	g, err := e.Build(descriptors)
	if err != nil {
		return nil, err
	}

	record := &domain.RunRecord{
		ID:          uuid.NewString(),
		Pipeline:    pipeline,
		Status:      domain.RunStatusRunning,
		Unreachable: g.Unreachable(),
	}
	logger := e.logger.With("run_id", record.ID, "pipeline", pipeline)
	if len(record.Unreachable) > 0 {
		logger.Debug("tasks will never run", "unreachable", record.Unreachable)
	}

	started := false
	err = e.runs.WithLock(ctx, pipeline, func(ctx context.Context) error {
		started = true
		record.StartedAt = time.Now().UTC()
		if err := e.runs.Save(ctx, record); err != nil {
			return err
		}

		report, runErr := e.executor.Run(ctx, record.ID, g)
		record.Visited = report.Visited
		record.FinishedAt = time.Now().UTC()
		record.Status = domain.RunStatusSucceeded
		if runErr != nil {
			record.Status = domain.RunStatusFailed
			record.Error = runErr.Error()
			if id, ok := domain.FailedTask(runErr); ok {
				record.FailedTask = &id
			}
		}

		if err := e.runs.Save(context.WithoutCancel(ctx), record); err != nil {
			logger.Error("failed to persist run", "error", err)
			if runErr == nil {
				return err
			}
		}
		return runErr
	})

	if !started {
		return nil, err
	}
	return record, err
}

// RunSource loads descriptors from source and runs them as pipeline.
func (e *Engine) RunSource(ctx context.Context, pipeline string, source ports.DescriptorSource) (*domain.RunRecord, error) {
	descriptors, err := source.Descriptors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load descriptors: %w", err)
	}
	return e.Run(ctx, pipeline, descriptors)
}
