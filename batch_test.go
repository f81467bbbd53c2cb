package kdgo

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kdgo/kdtree"
	"github.com/hupe1980/kdgo/testutil"
)

func TestFindClosestBatchMatchesSerial(t *testing.T) {
	rng := testutil.NewRNG(21)

	const (
		numPoints  = 400
		dims       = 3
		numQueries = 100
	)
	data := testutil.UniformPoints[float32](rng, numPoints, dims, 100)

	db, err := New(data, dims)
	require.NoError(t, err)
	defer db.Close()

	queries := make([][]float32, numQueries)
	for i := range queries {
		queries[i] = testutil.QueryPoint[float32](rng, dims, 100, 10)
	}

	matches, err := db.FindClosestBatch(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, matches, numQueries)

	for i, q := range queries {
		want, err := db.FindClosest(q)
		require.NoError(t, err)
		assert.Equal(t, want, matches[i], "query %d", i)
	}
}

func TestFindClosestBatchWorkerPool(t *testing.T) {
	rng := testutil.NewRNG(22)

	const (
		numPoints  = 200
		dims       = 2
		numQueries = 64
	)
	data := testutil.UniformPoints[float32](rng, numPoints, dims, 50)

	db, err := New(data, dims, WithWorkerPool(), WithWorkers(4))
	require.NoError(t, err)
	defer db.Close()

	queries := make([][]float32, numQueries)
	for i := range queries {
		queries[i] = testutil.QueryPoint[float32](rng, dims, 50, 5)
	}

	matches, err := db.FindClosestBatch(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, matches, numQueries)

	for i, q := range queries {
		wantID, _ := testutil.BruteForceClosest(data, dims, q, float32(math.Inf(1)))
		assert.Equal(t, wantID, matches[i].ID, "query %d", i)
	}
}

func TestFindClosestBatchEmpty(t *testing.T) {
	db, err := New([]float32{0, 0}, 2)
	require.NoError(t, err)
	defer db.Close()

	matches, err := db.FindClosestBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFindClosestBatchValidatesDimensions(t *testing.T) {
	db, err := New([]float32{0, 0, 1, 1}, 2)
	require.NoError(t, err)
	defer db.Close()

	queries := [][]float32{
		{0, 0},
		{1, 1},
		{1, 2, 3},
	}

	_, err = db.FindClosestBatch(context.Background(), queries)
	require.Error(t, err)

	var dimErr *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dimErr)
	assert.Contains(t, err.Error(), "query 2")
}

func TestFindClosestBatchContextCanceled(t *testing.T) {
	rng := testutil.NewRNG(23)
	data := testutil.UniformPoints[float32](rng, 100, 2, 50)

	db, err := New(data, 2)
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	queries := make([][]float32, 1000)
	for i := range queries {
		queries[i] = testutil.QueryPoint[float32](rng, 2, 50, 5)
	}

	_, err = db.FindClosestBatch(ctx, queries)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindClosestBatchOptions(t *testing.T) {
	rng := testutil.NewRNG(24)

	const (
		dims   = 2
		cutoff = float32(3)
	)
	data := testutil.ClusteredPoints[float32](rng, 200, dims, 4, 1.5)

	db, err := New(data, dims)
	require.NoError(t, err)
	defer db.Close()

	queries := make([][]float32, 50)
	for i := range queries {
		queries[i] = testutil.QueryPoint[float32](rng, dims, 100, 10)
	}

	matches, err := db.FindClosestBatch(context.Background(), queries,
		WithCutoff(cutoff), WithStrategy[float32](kdtree.StrategySpatialStack))
	require.NoError(t, err)

	for i, q := range queries {
		wantID, _ := testutil.BruteForceClosest(data, dims, q, cutoff)
		assert.Equal(t, wantID, matches[i].ID, "query %d", i)
	}
}
