package dsl

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
)

// Builder manages the task tree construction.
type Builder struct {
	order []int
	tasks map[int]*TaskBuilder
}

// New creates a new task tree builder.
func New() *Builder {
	return &Builder{
		tasks: make(map[int]*TaskBuilder),
	}
}

// Add creates a new task with the given id.
// If the task already exists, it returns the existing builder.
func (b *Builder) Add(id int) *TaskBuilder {
	if tb, ok := b.tasks[id]; ok {
		return tb
	}
	tb := &TaskBuilder{
		desc:    domain.TaskDescriptor{ID: domain.Ref(id), Params: map[string]any{}},
		builder: b,
	}
	b.tasks[id] = tb
	b.order = append(b.order, id)
	return tb
}

// Descriptors returns the tasks in the order they were added.
// Insertion order decides sibling order and which root is the entry point.
func (b *Builder) Descriptors() ([]domain.TaskDescriptor, error) {
	out := make([]domain.TaskDescriptor, 0, len(b.order))
	for _, id := range b.order {
		d := b.tasks[id].Build()
		if d.Action == "" {
			return nil, fmt.Errorf("%w: task %d has no action", domain.ErrMalformedGraph, id)
		}
		if d.Name == "" {
			d.Name = fmt.Sprintf("%s #%d", d.Action, id)
		}
		out = append(out, d)
	}
	return out, nil
}

// Build compiles the tree into a memory source.
func (b *Builder) Build() (*memory.Source, error) {
	descs, err := b.Descriptors()
	if err != nil {
		return nil, fmt.Errorf("failed to build task tree: %w", err)
	}
	return memory.NewSource(descs...), nil
}
