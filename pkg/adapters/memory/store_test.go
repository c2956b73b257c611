package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunRunStoreContract(t, store)
}

func TestMemoryVisitedSet_Contract(t *testing.T) {
	ports.RunVisitedSetContract(t, memory.NewVisitedSet)
}

func TestMemorySource_Contract(t *testing.T) {
	want := []domain.TaskDescriptor{
		{ID: domain.Ref(1), Name: "seed", Action: "push_values"},
		{ID: domain.Ref(2), Parent: domain.Ref(1), Name: "print", Action: "print_list"},
	}
	source := memory.NewSource(want...)
	tests.DescriptorSourceContractTest(t, source, want)

	_, err := source.Descriptors(canceled())
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func canceled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
