package loam

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"
)

// Loader reads a directory of task documents through Loam, one document per task.
// It implements ports.DescriptorSource and ports.Watchable.
type Loader struct {
	Repo *loam.TypedRepository[TaskMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[TaskMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only, strict Loam repository at path.
func Open(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[TaskMetadata](repo)), nil
}

type entry struct {
	docID string
	desc  domain.TaskDescriptor
}

// Descriptors lists every document and orders the tasks by id, then by document id.
// A document without an "id" takes it from its file name ("3.md" is task 3).
func (l *Loader) Descriptors(ctx context.Context) ([]domain.TaskDescriptor, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	entries := make([]entry, 0, len(docs))
	for _, doc := range docs {
		desc, err := toDescriptor(doc.ID, doc.Data)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		entries = append(entries, entry{docID: doc.ID, desc: desc})
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(*a.desc.ID, *b.desc.ID); c != 0 {
			return c
		}
		return strings.Compare(a.docID, b.docID)
	})

	out := make([]domain.TaskDescriptor, len(entries))
	for i, e := range entries {
		out[i] = e.desc
	}
	return out, nil
}

func toDescriptor(docID string, meta TaskMetadata) (domain.TaskDescriptor, error) {
	rawID := meta.ID
	if rawID == nil {
		rawID = trimExtension(docID)
	}
	id, err := toInt(rawID)
	if err != nil {
		return domain.TaskDescriptor{}, fmt.Errorf("%w: invalid id: %v", domain.ErrMalformedGraph, err)
	}

	desc := domain.TaskDescriptor{
		ID:     domain.Ref(id),
		Name:   meta.Name,
		Action: meta.Action,
		Params: meta.Config,
	}
	if desc.Params == nil {
		desc.Params = map[string]any{}
	}
	if desc.Name == "" {
		desc.Name = trimExtension(docID)
	}
	if desc.Action == "" {
		return domain.TaskDescriptor{}, fmt.Errorf("%w: missing 'action'", domain.ErrMalformedGraph)
	}

	if meta.Parent != nil {
		parent, err := toInt(meta.Parent)
		if err != nil {
			return domain.TaskDescriptor{}, fmt.Errorf("%w: invalid parent: %v", domain.ErrMalformedGraph, err)
		}
		desc.Parent = domain.Ref(parent)
	}
	return desc, nil
}

// toInt accepts the numeric shapes frontmatter decoders produce, plus numeric strings.
func toInt(v any) (int, error) {
	if s, ok := v.(string); ok {
		return strconv.Atoi(strings.TrimSpace(s))
	}
	var out int
	if err := mapstructure.WeakDecode(v, &out); err != nil {
		return 0, err
	}
	return out, nil
}

func trimExtension(id string) string {
	base := filepath.Base(id)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}
