package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/arbor/pkg/ports"
)

// VisitedSet implements ports.VisitedSet in memory, preserving claim order.
// Safe for concurrent use.
type VisitedSet struct {
	mu    sync.Mutex
	seen  map[int]struct{}
	order []int
}

var _ ports.VisitedSet = (*VisitedSet)(nil)

// NewVisitedSet creates an empty set. The signature matches ports.VisitedSetFactory.
func NewVisitedSet(string) ports.VisitedSet {
	return &VisitedSet{seen: make(map[int]struct{})}
}

func (v *VisitedSet) Add(ctx context.Context, id int) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.seen[id]; ok {
		return false, nil
	}
	v.seen[id] = struct{}{}
	v.order = append(v.order, id)
	return true, nil
}

func (v *VisitedSet) Contains(ctx context.Context, id int) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[id]
	return ok, nil
}

func (v *VisitedSet) Members(ctx context.Context) ([]int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return slices.Clone(v.order), nil
}

// Discard is a no-op; the set is garbage collected with the run.
func (v *VisitedSet) Discard(ctx context.Context) error {
	return nil
}
