package ports

import "context"

// VisitedSet records the task ids claimed during a single run.
// Implementations must make Add an atomic check-and-insert so that parallel
// branches never claim the same id twice.
type VisitedSet interface {
	// Add claims id. It reports false if id was already present.
	Add(ctx context.Context, id int) (bool, error)

	// Contains reports whether id has been claimed.
	Contains(ctx context.Context, id int) (bool, error)

	// Members returns the claimed ids in claim order where the backend preserves it.
	Members(ctx context.Context) ([]int, error)

	// Discard releases any resources held by the set at the end of a run.
	Discard(ctx context.Context) error
}

// VisitedSetFactory creates an empty VisitedSet scoped to one run.
type VisitedSetFactory func(runID string) VisitedSet
