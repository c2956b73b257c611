package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// TaskInstance is a runtime unit bound to exactly one input State.
type TaskInstance interface {
	// Name returns the descriptive name of the task.
	Name() string

	// Execute runs the action with the descriptor params. It may mutate the
	// bound state in place or rebind to an entirely new State value.
	Execute(ctx context.Context, params map[string]any) error

	// Result returns the state to propagate downstream after Execute.
	Result() domain.State
}

// TaskFactory resolves an action name to a task instance bound to state.
// It returns an error wrapping domain.ErrUnknownAction when the action is not registered.
type TaskFactory interface {
	Create(action, name string, state domain.State) (TaskInstance, error)
}
