package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// DescriptorSource yields an already-validated, ordered collection of task descriptors.
// Input order matters: it decides which root is the entry point and which
// duplicate id wins the lookup index.
type DescriptorSource interface {
	Descriptors(ctx context.Context) ([]domain.TaskDescriptor, error)
}

// Watchable defines an interface for sources that can notify about backend changes.
// This is typically used for re-running a pipeline while its definition is edited.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying definition changes.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
