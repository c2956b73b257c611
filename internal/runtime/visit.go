package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/aretw0/arbor/pkg/ports"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// run carries the state scoped to a single execution.
type run struct {
	*Executor
	id      string
	graph   *graph.Graph
	visited ports.VisitedSet
	logger  *slog.Logger
	sem     *semaphore.Weighted
}

// visit executes the task identified by id against input, then forks the
// result to each unclaimed child. The caller must have claimed id already.
func (r *run) visit(ctx context.Context, id int, input domain.State) error {
	if err := aborted(ctx, id); err != nil {
		return err
	}

	desc, ok := r.graph.Lookup(id)
	if !ok {
		return &domain.TaskError{TaskID: id, Err: domain.ErrUnknownTask}
	}

	event := r.taskEvent(domain.EventTaskEnter, desc)
	r.emitTask(ctx, r.hooks.OnTaskEnter, event)

	inst, err := r.factory.Create(desc.Action, desc.Name, input)
	if err != nil {
		return r.fail(ctx, desc, err, 0)
	}

	r.logger.Debug("executing task", "task_id", id, "name", desc.Name, "action", desc.Action)
	start := time.Now()
	if err := inst.Execute(ctx, desc.Params); err != nil {
		return r.fail(ctx, desc, err, time.Since(start))
	}

	leave := r.taskEvent(domain.EventTaskLeave, desc)
	leave.Duration = time.Since(start)
	r.emitTask(ctx, r.hooks.OnTaskLeave, leave)

	children := r.graph.Children(id)
	if len(children) == 0 {
		return nil
	}

	result := inst.Result()
	if result == nil {
		return r.fail(ctx, desc, errNoState, 0)
	}

	if r.sem != nil {
		return r.forkParallel(ctx, id, result, children)
	}
	return r.fork(ctx, id, result, children)
}

// fork descends into each child in order, one at a time.
func (r *run) fork(ctx context.Context, parentID int, result domain.State, children []domain.TaskDescriptor) error {
	for _, child := range children {
		if err := aborted(ctx, idOf(child)); err != nil {
			return err
		}
		childID, claimed, err := r.claim(ctx, child)
		if err != nil {
			return err
		}
		if !claimed {
			continue
		}

		r.emitFork(ctx, parentID, childID)
		if err := r.visit(ctx, childID, result.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// forkParallel claims and clones for each child in order, then runs the
// subtrees on spare workers. When no worker is free the subtree runs inline.
// The first failure cancels every sibling still in flight.
func (r *run) forkParallel(ctx context.Context, parentID int, result domain.State, children []domain.TaskDescriptor) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	abort := func(err error) error {
		cancel()
		werr := g.Wait()
		if werr != nil && errors.Is(err, context.Canceled) {
			return werr
		}
		return err
	}

	for _, child := range children {
		// Once a sibling failed nothing else may be claimed or forked.
		if gctx.Err() != nil {
			if err := g.Wait(); err != nil {
				return err
			}
			return aborted(ctx, idOf(child))
		}

		childID, claimed, err := r.claim(gctx, child)
		if err != nil {
			return abort(err)
		}
		if !claimed {
			continue
		}

		r.emitFork(gctx, parentID, childID)
		state := result.Clone()

		if r.sem.TryAcquire(1) {
			g.Go(func() error {
				defer r.sem.Release(1)
				return r.visit(gctx, childID, state)
			})
			continue
		}

		if err := r.visit(gctx, childID, state); err != nil {
			return abort(err)
		}
	}

	return g.Wait()
}

// aborted reports whether ctx ended before task id could start.
func aborted(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run aborted before task %d: %w", id, err)
	}
	return nil
}

func idOf(desc domain.TaskDescriptor) int {
	id, _ := desc.TaskID()
	return id
}

// claim atomically reserves child for this run. Already claimed ids are skipped.
func (r *run) claim(ctx context.Context, child domain.TaskDescriptor) (int, bool, error) {
	childID, _ := child.TaskID()

	claimed, err := r.visited.Add(ctx, childID)
	if err != nil {
		return childID, false, &domain.TaskError{TaskID: childID, Name: child.Name, Action: child.Action, Err: fmt.Errorf("claim: %w", err)}
	}
	if !claimed {
		r.logger.Debug("skipping already visited task", "task_id", childID, "name", child.Name)
		r.emitTask(ctx, r.hooks.OnTaskSkip, r.taskEvent(domain.EventTaskSkip, child))
	}
	return childID, claimed, nil
}

func (r *run) fail(ctx context.Context, desc domain.TaskDescriptor, err error, elapsed time.Duration) error {
	id, _ := desc.TaskID()
	event := r.taskEvent(domain.EventTaskError, desc)
	event.Duration = elapsed
	event.Err = err
	r.emitTask(ctx, r.hooks.OnTaskError, event)

	return &domain.TaskError{TaskID: id, Name: desc.Name, Action: desc.Action, Err: err}
}

func (r *run) taskEvent(kind domain.EventType, desc domain.TaskDescriptor) *domain.TaskEvent {
	id, _ := desc.TaskID()
	return &domain.TaskEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: kind, RunID: r.id},
		TaskID:    id,
		Name:      desc.Name,
		Action:    desc.Action,
	}
}

func (r *run) emitTask(ctx context.Context, hook func(context.Context, *domain.TaskEvent), event *domain.TaskEvent) {
	if hook != nil {
		hook(ctx, event)
	}
}

func (r *run) emitFork(ctx context.Context, parentID, childID int) {
	if r.hooks.OnFork == nil {
		return
	}
	r.hooks.OnFork(ctx, &domain.ForkEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventFork, RunID: r.id},
		ParentID:  parentID,
		ChildID:   childID,
	})
}
