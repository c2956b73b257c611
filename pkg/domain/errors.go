package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedGraph is returned when a descriptor collection cannot form a task tree
	// (empty input, no root, missing ids or, in strict mode, duplicate ids).
	ErrMalformedGraph = errors.New("malformed task graph")

	// ErrNoEntryPoint is returned when a graph has no root task to start from.
	ErrNoEntryPoint = errors.New("no entry point")

	// ErrUnknownTask is returned when a task id is referenced but never defined.
	ErrUnknownTask = errors.New("unknown task")

	// ErrUnknownAction is returned when the factory cannot resolve an action name.
	ErrUnknownAction = errors.New("unknown action")

	// ErrInvalidParams is returned when an action cannot decode its parameters.
	ErrInvalidParams = errors.New("invalid task params")

	// ErrRunNotFound is returned when a run ID cannot be found in the store.
	ErrRunNotFound = errors.New("run not found")
)

// TaskError reports a failure raised while running a specific task.
// It wraps the underlying cause so errors.Is keeps matching the sentinel kinds.
type TaskError struct {
	TaskID int
	Name   string
	Action string
	Err    error
}

func (e *TaskError) Error() string {
	if e == nil {
		return ""
	}
	if e.Name == "" {
		return fmt.Sprintf("task %d: %v", e.TaskID, e.Err)
	}
	return fmt.Sprintf("task %d (%s): %v", e.TaskID, e.Name, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// FailedTask extracts the id of the task that caused err, if any.
func FailedTask(err error) (int, bool) {
	var te *TaskError
	if errors.As(err, &te) {
		return te.TaskID, true
	}
	return 0, false
}
