package runtime_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/graph"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// trail is a forkable state recording which tasks touched it.
type trail struct {
	steps []string
}

func (t *trail) Clone() domain.State {
	return &trail{steps: slices.Clone(t.steps)}
}

func newTrail() domain.State { return &trail{} }

// harness is a task factory that records every execution and the input each task saw.
type harness struct {
	*registry.Registry

	mu       sync.Mutex
	executed []string
	inputs   map[string][]string
	bound    map[string]*trail
}

func newHarness() *harness {
	h := &harness{
		Registry: registry.NewRegistry(),
		inputs:   make(map[string][]string),
		bound:    make(map[string]*trail),
	}

	h.register("append", func(ctx context.Context, t *stepTask) error {
		t.state.steps = append(t.state.steps, t.name)
		return nil
	})
	h.register("rebind", func(ctx context.Context, t *stepTask) error {
		next := &trail{steps: slices.Clone(t.state.steps)}
		slices.Reverse(next.steps)
		next.steps = append(next.steps, "rebound:"+t.name)
		t.state = next
		return nil
	})
	h.register("fail", func(ctx context.Context, t *stepTask) error {
		return errBoom
	})
	h.register("block", func(ctx context.Context, t *stepTask) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h.register("drop", func(ctx context.Context, t *stepTask) error {
		t.state = nil
		return nil
	})
	return h
}

func (h *harness) register(action string, fn func(context.Context, *stepTask) error) {
	h.Register(action, func(name string, state domain.State) (ports.TaskInstance, error) {
		tr := state.(*trail)
		h.mu.Lock()
		h.inputs[name] = slices.Clone(tr.steps)
		h.bound[name] = tr
		h.mu.Unlock()
		return &stepTask{name: name, state: tr, run: fn, h: h}, nil
	})
}

func (h *harness) Executed() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.executed)
}

func (h *harness) Input(name string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inputs[name]
}

func (h *harness) Bound(name string) *trail {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bound[name]
}

type stepTask struct {
	name  string
	state *trail
	run   func(context.Context, *stepTask) error
	h     *harness
}

func (t *stepTask) Name() string { return t.name }

func (t *stepTask) Execute(ctx context.Context, params map[string]any) error {
	t.h.mu.Lock()
	t.h.executed = append(t.h.executed, t.name)
	t.h.mu.Unlock()
	return t.run(ctx, t)
}

func (t *stepTask) Result() domain.State {
	if t.state == nil {
		return nil
	}
	return t.state
}

func root(id int, name, action string) domain.TaskDescriptor {
	return domain.TaskDescriptor{ID: domain.Ref(id), Name: name, Action: action}
}

func child(id, parent int, name, action string) domain.TaskDescriptor {
	return domain.TaskDescriptor{ID: domain.Ref(id), Parent: domain.Ref(parent), Name: name, Action: action}
}

func build(t *testing.T, descriptors ...domain.TaskDescriptor) *graph.Graph {
	t.Helper()
	g, err := graph.Build(descriptors)
	require.NoError(t, err)
	return g
}

func newExecutor(h *harness, opts ...runtime.Option) *runtime.Executor {
	return runtime.NewExecutor(h, append([]runtime.Option{runtime.WithStateFactory(newTrail)}, opts...)...)
}
