package registry

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n int }

func (c *counter) Clone() domain.State { return &counter{n: c.n} }

type incrementTask struct {
	name  string
	state *counter
}

func (t *incrementTask) Name() string { return t.name }

func (t *incrementTask) Execute(ctx context.Context, params map[string]any) error {
	t.state.n++
	return nil
}

func (t *incrementTask) Result() domain.State { return t.state }

func newIncrement(name string, state domain.State) (ports.TaskInstance, error) {
	return &incrementTask{name: name, state: state.(*counter)}, nil
}

func TestRegistry_CreateAndExecute(t *testing.T) {
	r := NewRegistry()
	r.Register("increment", newIncrement)

	inst, err := r.Create("increment", "bump", &counter{})
	require.NoError(t, err)
	assert.Equal(t, "bump", inst.Name())

	require.NoError(t, inst.Execute(context.Background(), nil))
	assert.Equal(t, 1, inst.Result().(*counter).n)
}

func TestRegistry_UnknownAction(t *testing.T) {
	r := NewRegistry()

	_, err := r.Create("missing", "x", &counter{})
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
	assert.Contains(t, err.Error(), `"missing"`)
}

func TestRegistry_OverwriteAndList(t *testing.T) {
	r := NewRegistry()
	r.Register("b", newIncrement)
	r.Register("a", newIncrement)
	r.Register("b", newIncrement)

	assert.Equal(t, []string{"a", "b"}, r.Actions())
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))
}
