package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string

	a := LifecycleHooks{
		OnTaskEnter: func(ctx context.Context, e *TaskEvent) { calls = append(calls, "a-enter") },
	}
	b := LifecycleHooks{
		OnTaskEnter: func(ctx context.Context, e *TaskEvent) { calls = append(calls, "b-enter") },
		OnFork:      func(ctx context.Context, e *ForkEvent) { calls = append(calls, "b-fork") },
	}

	merged := a.Merge(b)
	merged.OnTaskEnter(context.Background(), &TaskEvent{})
	merged.OnFork(context.Background(), &ForkEvent{})

	assert.Equal(t, []string{"a-enter", "b-enter", "b-fork"}, calls)
	assert.Nil(t, merged.OnTaskLeave)
}
