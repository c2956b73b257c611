package dsl

import (
	"maps"

	"github.com/aretw0/arbor/pkg/domain"
)

// TaskBuilder provides a fluent API for configuring a task.
type TaskBuilder struct {
	desc    domain.TaskDescriptor
	builder *Builder
}

// Name sets the descriptive name of the task.
func (t *TaskBuilder) Name(name string) *TaskBuilder {
	t.desc.Name = name
	return t
}

// Do sets the action and merges params into the task params.
func (t *TaskBuilder) Do(action string, params map[string]any) *TaskBuilder {
	t.desc.Action = action
	maps.Copy(t.desc.Params, params)
	return t
}

// Param sets a single parameter.
func (t *TaskBuilder) Param(key string, value any) *TaskBuilder {
	t.desc.Params[key] = value
	return t
}

// Under makes the task a child of parent.
func (t *TaskBuilder) Under(parent int) *TaskBuilder {
	t.desc.Parent = domain.Ref(parent)
	return t
}

// Then adds a child task and returns its builder.
func (t *TaskBuilder) Then(id int) *TaskBuilder {
	parent, _ := t.desc.TaskID()
	return t.builder.Add(id).Under(parent)
}

// Build returns a copy of the underlying descriptor.
// This is primarily used by the Builder, but exposed for advanced usage.
func (t *TaskBuilder) Build() domain.TaskDescriptor {
	d := t.desc
	d.Params = maps.Clone(t.desc.Params)
	if t.desc.Parent != nil {
		d.Parent = domain.Ref(*t.desc.Parent)
	}
	return d
}
