package graph

import (
	"fmt"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// key identifies a bucket of the children index.
// The zero id with root set is the synthetic "no parent" key.
type key struct {
	id   int
	root bool
}

var rootKey = key{root: true}

func parentKey(d domain.TaskDescriptor) key {
	if p, ok := d.ParentID(); ok {
		return key{id: p}
	}
	return rootKey
}

// Graph is the immutable parent→children and id→descriptor index of a pipeline.
type Graph struct {
	byID       map[int]domain.TaskDescriptor
	childrenOf map[key][]domain.TaskDescriptor
	ordered    []domain.TaskDescriptor
}

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	strict bool
}

// Strict rejects descriptor collections that reuse an id.
// Without it, the id index keeps the last descriptor in input order while the
// children index still lists every occurrence.
func Strict() Option {
	return func(c *buildConfig) {
		c.strict = true
	}
}

// Build indexes descriptors. The input order is preserved in every child list.
func Build(descriptors []domain.TaskDescriptor, opts ...Option) (*Graph, error) {
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(descriptors) == 0 {
		return nil, malformedf("no task descriptors")
	}

	g := &Graph{
		byID:       make(map[int]domain.TaskDescriptor, len(descriptors)),
		childrenOf: make(map[key][]domain.TaskDescriptor),
		ordered:    slices.Clone(descriptors),
	}

	for i, d := range descriptors {
		id, ok := d.TaskID()
		if !ok {
			return nil, malformedf("task %d (%q) has no id", i, d.Name)
		}
		if _, exists := g.byID[id]; exists && cfg.strict {
			return nil, malformedf("duplicate task id %d (%q)", id, d.Name)
		}

		g.byID[id] = d
		k := parentKey(d)
		g.childrenOf[k] = append(g.childrenOf[k], d)
	}

	if len(g.childrenOf[rootKey]) == 0 {
		return nil, malformedf("no root task (every task declares a parent)")
	}

	return g, nil
}

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedGraph, fmt.Sprintf(format, args...))
}

// Entry returns the first root descriptor in input order.
// Any further roots are never reached by the executor.
func (g *Graph) Entry() (domain.TaskDescriptor, error) {
	roots := g.Roots()
	if len(roots) == 0 {
		return domain.TaskDescriptor{}, domain.ErrNoEntryPoint
	}
	return roots[0], nil
}

// Lookup returns the descriptor indexed under id.
func (g *Graph) Lookup(id int) (domain.TaskDescriptor, bool) {
	if g == nil {
		return domain.TaskDescriptor{}, false
	}
	d, ok := g.byID[id]
	return d, ok
}

// Children returns the descriptors that declare id as their parent, in input order.
// The returned slice must not be modified.
func (g *Graph) Children(id int) []domain.TaskDescriptor {
	if g == nil {
		return nil
	}
	return g.childrenOf[key{id: id}]
}

// Roots returns every descriptor without a parent, in input order.
func (g *Graph) Roots() []domain.TaskDescriptor {
	if g == nil {
		return nil
	}
	return g.childrenOf[rootKey]
}

// Descriptors returns the descriptors in input order.
func (g *Graph) Descriptors() []domain.TaskDescriptor {
	if g == nil {
		return nil
	}
	return slices.Clone(g.ordered)
}

// Len returns the number of distinct task ids.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.byID)
}

// Reachable returns the ids reachable from the entry point, in the
// depth-first pre-order the executor visits them.
func (g *Graph) Reachable() []int {
	entry, err := g.Entry()
	if err != nil {
		return nil
	}
	rootID, _ := entry.TaskID()

	seen := map[int]bool{rootID: true}
	order := []int{}

	var walk func(id int)
	walk = func(id int) {
		order = append(order, id)
		for _, child := range g.Children(id) {
			cid, _ := child.TaskID()
			if seen[cid] {
				continue
			}
			seen[cid] = true
			walk(cid)
		}
	}
	walk(rootID)

	return order
}

// Unreachable returns the ids that can never run: extra roots, their subtrees,
// and tasks whose parent is never defined. Sorted ascending.
func (g *Graph) Unreachable() []int {
	reachable := make(map[int]bool)
	for _, id := range g.Reachable() {
		reachable[id] = true
	}

	var out []int
	for id := range g.byID {
		if !reachable[id] {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Dangling returns the parent ids referenced by some descriptor but never
// defined, sorted ascending.
func (g *Graph) Dangling() []int {
	var out []int
	for k := range g.childrenOf {
		if k.root {
			continue
		}
		if _, ok := g.byID[k.id]; !ok {
			out = append(out, k.id)
		}
	}
	slices.Sort(out)
	return out
}
