package ports

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRunStoreContract runs a suite of tests to verify that a RunStore implementation
// adheres to the defined interface contract.
func RunRunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405")

	newRecord := func(id string) *domain.RunRecord {
		return &domain.RunRecord{
			ID:        id,
			Pipeline:  "contract",
			Status:    domain.RunStatusSucceeded,
			Visited:   []int{1, 2, 3},
			StartedAt: time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		rec := newRecord(runID)
		failed := 2
		rec.FailedTask = &failed
		rec.Error = "boom"

		err := store.Save(ctx, rec)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, rec.Pipeline, loaded.Pipeline)
		assert.Equal(t, rec.Status, loaded.Status)
		assert.Equal(t, []int{1, 2, 3}, loaded.Visited)
		require.NotNil(t, loaded.FailedTask)
		assert.Equal(t, 2, *loaded.FailedTask)
		assert.Equal(t, "boom", loaded.Error)
	})

	t.Run("Loaded Record Is Isolated", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newRecord(runID)))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		loaded.Visited[0] = 99

		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, 1, again.Visited[0], "mutating a loaded record must not change the store")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newRecord(runID)))

		err := store.Delete(ctx, runID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := runID + "-1"
		id2 := runID + "-2"
		_ = store.Save(ctx, newRecord(id1))
		_ = store.Save(ctx, newRecord(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}

// RunVisitedSetContract verifies that sets produced by newSet honour the
// VisitedSet contract, including atomic claims under concurrent use.
func RunVisitedSetContract(t *testing.T, newSet VisitedSetFactory) {
	ctx := context.Background()

	t.Run("Claim Once", func(t *testing.T) {
		set := newSet("contract-claim")
		defer func() { _ = set.Discard(ctx) }()

		claimed, err := set.Add(ctx, 1)
		require.NoError(t, err)
		assert.True(t, claimed)

		claimed, err = set.Add(ctx, 1)
		require.NoError(t, err)
		assert.False(t, claimed, "second Add of the same id must not claim it")

		ok, err := set.Contains(ctx, 1)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = set.Contains(ctx, 2)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Members In Claim Order", func(t *testing.T) {
		set := newSet("contract-order")
		defer func() { _ = set.Discard(ctx) }()

		for _, id := range []int{3, 1, 2, 1} {
			_, err := set.Add(ctx, id)
			require.NoError(t, err)
		}

		members, err := set.Members(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 1, 2}, members)
	})

	t.Run("Runs Are Isolated", func(t *testing.T) {
		a := newSet("contract-run-a")
		b := newSet("contract-run-b")
		defer func() {
			_ = a.Discard(ctx)
			_ = b.Discard(ctx)
		}()

		_, err := a.Add(ctx, 7)
		require.NoError(t, err)

		claimed, err := b.Add(ctx, 7)
		require.NoError(t, err)
		assert.True(t, claimed, "claims must not leak across runs")
	})

	t.Run("Concurrent Claims", func(t *testing.T) {
		set := newSet("contract-concurrent")
		defer func() { _ = set.Discard(ctx) }()

		const workers = 16
		var wg sync.WaitGroup
		var wins atomic.Int32
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if claimed, err := set.Add(ctx, 42); err == nil && claimed {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load(), "exactly one caller may claim an id")
	})
}
