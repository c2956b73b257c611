package memory

import (
	"context"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// Source implements ports.DescriptorSource over a fixed descriptor list.
type Source struct {
	descriptors []domain.TaskDescriptor
}

// NewSource creates a Source that yields descriptors in the given order.
// Nil params are replaced by empty maps.
func NewSource(descriptors ...domain.TaskDescriptor) *Source {
	held := slices.Clone(descriptors)
	for i := range held {
		if held[i].Params == nil {
			held[i].Params = map[string]any{}
		}
	}
	return &Source{descriptors: held}
}

// Descriptors returns a copy of the held descriptors.
func (s *Source) Descriptors(ctx context.Context) ([]domain.TaskDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.descriptors), nil
}
