package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTaskEnter EventType = "task_enter"
	EventTaskLeave EventType = "task_leave"
	EventTaskSkip  EventType = "task_skip"
	EventFork      EventType = "fork"
	EventTaskError EventType = "task_error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// TaskEvent represents entry into, exit from, skip or failure of a task.
type TaskEvent struct {
	EventBase
	TaskID   int           `json:"task_id"`
	Name     string        `json:"name"`
	Action   string        `json:"action"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// ForkEvent is emitted each time a parent's state is cloned for a child.
type ForkEvent struct {
	EventBase
	ParentID int `json:"parent_id"`
	ChildID  int `json:"child_id"`
}

// LifecycleHooks defines callbacks for executor observability.
// Hooks may be invoked concurrently when sibling branches run in parallel.
type LifecycleHooks struct {
	OnTaskEnter func(context.Context, *TaskEvent)
	OnTaskLeave func(context.Context, *TaskEvent)
	OnTaskSkip  func(context.Context, *TaskEvent)
	OnTaskError func(context.Context, *TaskEvent)
	OnFork      func(context.Context, *ForkEvent)
}

// Merge returns hooks that call h first and then other, for every callback set on either.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTaskEnter: chainTask(h.OnTaskEnter, other.OnTaskEnter),
		OnTaskLeave: chainTask(h.OnTaskLeave, other.OnTaskLeave),
		OnTaskSkip:  chainTask(h.OnTaskSkip, other.OnTaskSkip),
		OnTaskError: chainTask(h.OnTaskError, other.OnTaskError),
		OnFork:      chainFork(h.OnFork, other.OnFork),
	}
}

func chainTask(a, b func(context.Context, *TaskEvent)) func(context.Context, *TaskEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *TaskEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainFork(a, b func(context.Context, *ForkEvent)) func(context.Context, *ForkEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *ForkEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
