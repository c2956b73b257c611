package tests

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// DescriptorSourceContractTest is a reusable test suite that verifies if an adapter complies with ports.DescriptorSource.
// want lists the descriptors the source is expected to yield, in order.
func DescriptorSourceContractTest(t *testing.T, source ports.DescriptorSource, want []domain.TaskDescriptor) {
	t.Helper()

	got, err := source.Descriptors(context.Background())
	if err != nil {
		t.Fatalf("unexpected error loading descriptors: %v", err)
	}

	t.Run("Count", func(t *testing.T) {
		if len(got) != len(want) {
			t.Fatalf("expected %d descriptors, got %d", len(want), len(got))
		}
	})

	t.Run("Order_And_Identity", func(t *testing.T) {
		for i := range want {
			if i >= len(got) {
				return
			}
			if got[i].Name != want[i].Name || got[i].Action != want[i].Action {
				t.Errorf("descriptor %d mismatch: got %s/%s, want %s/%s", i, got[i].Action, got[i].Name, want[i].Action, want[i].Name)
			}
			if !equalRef(got[i].ID, want[i].ID) {
				t.Errorf("descriptor %d id mismatch: got %v, want %v", i, deref(got[i].ID), deref(want[i].ID))
			}
			if !equalRef(got[i].Parent, want[i].Parent) {
				t.Errorf("descriptor %d parent mismatch: got %v, want %v", i, deref(got[i].Parent), deref(want[i].Parent))
			}
		}
	})

	t.Run("Params_Never_Nil", func(t *testing.T) {
		for i, d := range got {
			if d.Params == nil {
				t.Errorf("descriptor %d (%s) has nil params, want empty map", i, d.Name)
			}
		}
	})
}

func equalRef(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
