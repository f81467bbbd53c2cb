package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kdgo/kdtree"
)

func TestRunBatch(t *testing.T) {
	tree, queries := newTestTree(t)

	run := func(q []float32, sc *kdtree.Scratch[float32]) (int32, float32, error) {
		return tree.FindClosest(q, kdtree.DefaultSearchParams[float32](), sc)
	}

	for _, workers := range []int{0, 1, 4, 100} {
		got, err := RunBatch(context.Background(), workers, queries, newTestScratch, run)
		require.NoError(t, err)
		require.Len(t, got, len(queries))

		sc := newTestScratch()
		for i, q := range queries {
			wantID, wantDist2, err := tree.FindClosest(q, kdtree.DefaultSearchParams[float32](), sc)
			require.NoError(t, err)
			assert.Equal(t, wantID, got[i].ID, "workers %d query %d", workers, i)
			assert.Equal(t, wantDist2, got[i].Dist2, "workers %d query %d", workers, i)
		}
	}
}

func TestRunBatchEmpty(t *testing.T) {
	got, err := RunBatch(context.Background(), 4, nil, newTestScratch,
		func(q []float32, sc *kdtree.Scratch[float32]) (int32, float32, error) {
			return kdtree.None, 0, nil
		})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunBatchError(t *testing.T) {
	_, queries := newTestTree(t)

	sentinel := errors.New("boom")
	run := func(q []float32, sc *kdtree.Scratch[float32]) (int32, float32, error) {
		if q[0] == queries[7][0] {
			return kdtree.None, 0, sentinel
		}
		return 1, 1, nil
	}

	_, err := RunBatch(context.Background(), 4, queries, newTestScratch, run)
	assert.ErrorIs(t, err, sentinel)
}

func TestRunBatchContextCanceled(t *testing.T) {
	_, queries := newTestTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunBatch(ctx, 4, queries, newTestScratch,
		func(q []float32, sc *kdtree.Scratch[float32]) (int32, float32, error) {
			return kdtree.None, 0, nil
		})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunBatchMatchesPool(t *testing.T) {
	tree, queries := newTestTree(t)

	run := func(q []float32, sc *kdtree.Scratch[float32]) (int32, float32, error) {
		return tree.FindClosest(q, kdtree.DefaultSearchParams[float32](), sc)
	}

	fromFanOut, err := RunBatch(context.Background(), 4, queries, newTestScratch, run)
	require.NoError(t, err)

	pool := NewPool(4, newTestScratch)
	defer pool.Close()
	fromPool, err := pool.RunBatch(context.Background(), queries, run)
	require.NoError(t, err)

	assert.Equal(t, fromFanOut, fromPool)
}
