package runtime_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/actions"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wideTree(width, depth int) []domain.TaskDescriptor {
	descriptors := []domain.TaskDescriptor{root(1, "root", "append")}
	next := 2
	parents := []int{1}
	for level := 0; level < depth; level++ {
		var nextParents []int
		for _, p := range parents {
			for i := 0; i < width; i++ {
				descriptors = append(descriptors, child(next, p, fmt.Sprintf("t%d", next), "append"))
				nextParents = append(nextParents, next)
				next++
			}
		}
		parents = nextParents
	}
	return descriptors
}

func TestExecutor_ParallelVisitsEveryTaskOnce(t *testing.T) {
	descriptors := wideTree(4, 3)
	h := newHarness()

	report, err := newExecutor(h, runtime.WithParallelism(4)).Run(context.Background(), "", build(t, descriptors...))
	require.NoError(t, err)

	assert.Len(t, h.Executed(), len(descriptors))
	assert.ElementsMatch(t, build(t, descriptors...).Reachable(), report.Visited)

	// Clone independence holds regardless of scheduling.
	for _, d := range descriptors[1:] {
		input := h.Input(d.Name)
		parent, _ := d.ParentID()
		assert.Len(t, input, depthOf(descriptors, parent)+1, "input of %s only carries its ancestors", d.Name)
	}
}

func depthOf(descriptors []domain.TaskDescriptor, id int) int {
	for _, d := range descriptors {
		if tid, _ := d.TaskID(); tid == id {
			if p, ok := d.ParentID(); ok {
				return depthOf(descriptors, p) + 1
			}
			return 0
		}
	}
	return 0
}

func TestExecutor_ParallelFailureCancelsSiblings(t *testing.T) {
	h := newHarness()
	g := build(t,
		root(1, "root", "append"),
		child(2, 1, "waiting", "block"),
		child(3, 1, "broken", "fail"),
		child(4, 2, "below-waiting", "append"),
	)

	_, err := newExecutor(h, runtime.WithParallelism(2)).Run(context.Background(), "", g)
	require.Error(t, err)

	assert.ErrorIs(t, err, errBoom)
	id, ok := domain.FailedTask(err)
	require.True(t, ok)
	assert.Equal(t, 3, id)
	assert.NotContains(t, h.Executed(), "below-waiting")
}

func TestExecutor_ParallelFailureStopsClaiming(t *testing.T) {
	h := newHarness()
	h.register("settle", func(ctx context.Context, t *stepTask) error {
		<-ctx.Done()
		return nil
	})

	var mu sync.Mutex
	var forks []int
	hooks := domain.LifecycleHooks{
		OnFork: func(_ context.Context, e *domain.ForkEvent) {
			mu.Lock()
			forks = append(forks, e.ChildID)
			mu.Unlock()
		},
	}

	// "broken" takes the only spare worker, "settling" runs inline until the
	// failure cancels it, and "late" must never be claimed.
	g := build(t,
		root(1, "root", "append"),
		child(2, 1, "broken", "fail"),
		child(3, 1, "settling", "settle"),
		child(4, 1, "late", "append"),
	)

	report, err := newExecutor(h, runtime.WithParallelism(2), runtime.WithLifecycleHooks(hooks)).Run(context.Background(), "", g)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)

	id, ok := domain.FailedTask(err)
	require.True(t, ok)
	assert.Equal(t, 2, id)

	assert.NotContains(t, h.Executed(), "late")
	require.NotNil(t, report)
	assert.Equal(t, []int{1, 2, 3}, report.Visited)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 3}, forks)
}

func TestExecutor_ParallelDuplicateClaimedOnce(t *testing.T) {
	h := newHarness()
	g := build(t,
		root(1, "root", "append"),
		child(2, 1, "a", "append"),
		child(3, 1, "b", "append"),
		child(4, 2, "shared", "append"),
		child(4, 3, "shared-again", "append"),
	)

	report, err := newExecutor(h, runtime.WithParallelism(8)).Run(context.Background(), "", g)
	require.NoError(t, err)

	assert.Len(t, h.Executed(), 4)
	assert.ElementsMatch(t, []int{1, 2, 3, 4}, report.Visited)
}

func TestExecutor_BuiltinActions(t *testing.T) {
	var out bytes.Buffer
	reg := registry.NewRegistry()
	actions.Register(reg, actions.WithOutput(&out))

	g := build(t,
		domain.TaskDescriptor{ID: domain.Ref(1), Name: "populate", Action: actions.PushValues, Params: map[string]any{"elements": []any{1, 2, 3}}},
		domain.TaskDescriptor{ID: domain.Ref(2), Parent: domain.Ref(1), Name: "show", Action: actions.PrintList},
		domain.TaskDescriptor{ID: domain.Ref(3), Parent: domain.Ref(1), Name: "flip", Action: actions.ReverseList},
		domain.TaskDescriptor{ID: domain.Ref(4), Parent: domain.Ref(3), Name: "show flipped", Action: actions.PrintList},
		domain.TaskDescriptor{ID: domain.Ref(5), Parent: domain.Ref(1), Name: "show again", Action: actions.PrintList},
	)

	report, err := runtime.NewExecutor(reg).Run(context.Background(), "", g)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, report.Visited)
	assert.Equal(t,
		"the list is: 3, 2, 1\n"+
			"the list is: 1, 2, 3\n"+
			"the list is: 3, 2, 1\n",
		out.String())
}
