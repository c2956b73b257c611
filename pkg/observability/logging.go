package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that log every event to logger.
// Enter, leave and fork are debug level; skips are info and failures are errors.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTaskEnter: func(ctx context.Context, e *domain.TaskEvent) {
			logger.DebugContext(ctx, "task_enter", "run_id", e.RunID, "task_id", e.TaskID, "name", e.Name, "action", e.Action)
		},
		OnTaskLeave: func(ctx context.Context, e *domain.TaskEvent) {
			logger.DebugContext(ctx, "task_leave", "run_id", e.RunID, "task_id", e.TaskID, "duration", e.Duration)
		},
		OnTaskSkip: func(ctx context.Context, e *domain.TaskEvent) {
			logger.InfoContext(ctx, "task_skip", "run_id", e.RunID, "task_id", e.TaskID, "name", e.Name)
		},
		OnTaskError: func(ctx context.Context, e *domain.TaskEvent) {
			logger.ErrorContext(ctx, "task_error", "run_id", e.RunID, "task_id", e.TaskID, "action", e.Action, "error", e.Err)
		},
		OnFork: func(ctx context.Context, e *domain.ForkEvent) {
			logger.DebugContext(ctx, "fork", "run_id", e.RunID, "parent_id", e.ParentID, "child_id", e.ChildID)
		},
	}
}
