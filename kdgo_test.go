package kdgo

import (
	"context"
	"math"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kdgo/kdtree"
	"github.com/hupe1980/kdgo/testutil"
)

var allStrategies = []kdtree.Strategy{
	kdtree.StrategyDenseStack,
	kdtree.StrategySpatialStack,
	kdtree.StrategyDenseStackFree,
	kdtree.StrategySpatialStackFree,
}

func TestNew(t *testing.T) {
	points := []float32{
		0, 0,
		10, 10,
		5, 5,
	}

	db, err := New(points, 2)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 3, db.Len())
	assert.Equal(t, 2, db.Dims())
	assert.Equal(t, kdtree.StrategyDenseStack, db.Strategy())
	assert.Equal(t, []float32{5, 5}, db.PointAt(2))

	m, err := db.FindClosest([]float32{4, 4})
	require.NoError(t, err)

	assert.True(t, m.Found())
	assert.Equal(t, int32(2), m.ID)
	assert.Equal(t, float32(2), m.Dist2)
	assert.InDelta(t, math.Sqrt2, float64(m.Distance()), 1e-6)
}

func TestNewValidation(t *testing.T) {
	t.Run("zero dims", func(t *testing.T) {
		_, err := New([]float32{1, 2}, 0)
		assert.Error(t, err)
	})

	t.Run("ragged data", func(t *testing.T) {
		_, err := New([]float32{1, 2, 3}, 2)
		assert.Error(t, err)
	})

	t.Run("bad option", func(t *testing.T) {
		_, err := New([]float32{1, 2}, 2, WithLeafSize(-1))
		assert.Error(t, err)
	})

	t.Run("invalid strategy", func(t *testing.T) {
		_, err := New([]float32{1, 2}, 2, WithDefaultStrategy(kdtree.Strategy(99)))
		assert.ErrorIs(t, err, ErrInvalidStrategy)
	})
}

func TestNewEmpty(t *testing.T) {
	db, err := New[float32](nil, 4)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 0, db.Len())

	m, err := db.FindClosest([]float32{1, 2, 3, 4})
	require.NoError(t, err)
	assert.False(t, m.Found())
	assert.Equal(t, kdtree.None, m.ID)
}

func TestFindClosestCutoff(t *testing.T) {
	// A single point at distance exactly 5 from the query. The cutoff is
	// exclusive, so a radius of 5 misses it and anything larger hits.
	db, err := New([]float32{0, 0}, 2)
	require.NoError(t, err)
	defer db.Close()

	q := []float32{3, 4}

	m, err := db.FindClosest(q, WithCutoff[float32](5))
	require.NoError(t, err)
	assert.False(t, m.Found())

	m, err = db.FindClosest(q, WithCutoff[float32](5.01))
	require.NoError(t, err)
	assert.True(t, m.Found())
	assert.Equal(t, int32(0), m.ID)
	assert.Equal(t, float32(25), m.Dist2)
}

func TestFindClosestMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(42)

	const (
		numPoints  = 500
		dims       = 3
		numQueries = 100
	)
	data := testutil.UniformPoints[float32](rng, numPoints, dims, 100)

	db, err := New(data, dims)
	require.NoError(t, err)
	defer db.Close()

	for _, strat := range allStrategies {
		t.Run(strat.String(), func(t *testing.T) {
			rng.Reset()

			for i := 0; i < numQueries; i++ {
				q := testutil.QueryPoint[float32](rng, dims, 100, 10)

				wantID, wantDist2 := testutil.BruteForceClosest(data, dims, q, float32(math.Inf(1)))

				m, err := db.FindClosest(q, WithStrategy[float32](strat))
				require.NoError(t, err)

				assert.Equal(t, wantID, m.ID)
				assert.Equal(t, wantDist2, m.Dist2)
			}
		})
	}
}

func TestFindClosestCutoffMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(7)

	const (
		numPoints  = 300
		dims       = 2
		numQueries = 50
		cutoff     = float32(5)
	)
	data := testutil.ClusteredPoints[float32](rng, numPoints, dims, 5, 2)

	db, err := New(data, dims)
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < numQueries; i++ {
		q := testutil.QueryPoint[float32](rng, dims, 100, 10)

		wantID, wantDist2 := testutil.BruteForceClosest(data, dims, q, cutoff)

		m, err := db.FindClosest(q, WithCutoff(cutoff))
		require.NoError(t, err)

		assert.Equal(t, wantID, m.ID)
		if wantID != kdtree.None {
			assert.Equal(t, wantDist2, m.Dist2)
		}
	}
}

func TestFindClosestExclude(t *testing.T) {
	points := []float32{
		0, 0,
		10, 10,
		5, 5,
	}

	db, err := New(points, 2)
	require.NoError(t, err)
	defer db.Close()

	q := []float32{4, 4}

	m, err := db.FindClosest(q, WithExclude[float32](roaring.BitmapOf(2)))
	require.NoError(t, err)
	assert.Equal(t, int32(0), m.ID)
	assert.Equal(t, float32(32), m.Dist2)

	m, err = db.FindClosest(q, WithExclude[float32](roaring.BitmapOf(0, 1, 2)))
	require.NoError(t, err)
	assert.False(t, m.Found())

	// An empty bitmap excludes nothing.
	m, err = db.FindClosest(q, WithExclude[float32](roaring.New()))
	require.NoError(t, err)
	assert.Equal(t, int32(2), m.ID)
}

func TestFindClosestFilter(t *testing.T) {
	points := []float32{
		0, 0,
		10, 10,
		5, 5,
	}

	db, err := New(points, 2)
	require.NoError(t, err)
	defer db.Close()

	q := []float32{4, 4}

	m, err := db.FindClosest(q, WithFilter[float32](func(id int32) bool { return id != 2 }))
	require.NoError(t, err)
	assert.Equal(t, int32(0), m.ID)

	// Exclude and filter compose: the exclude set knocks out 2, the
	// filter knocks out 0, leaving 1 as the only eligible point.
	m, err = db.FindClosest(q,
		WithExclude[float32](roaring.BitmapOf(2)),
		WithFilter[float32](func(id int32) bool { return id != 0 }),
	)
	require.NoError(t, err)
	assert.Equal(t, int32(1), m.ID)
	assert.Equal(t, float32(72), m.Dist2)
}

func TestFindClosestBudget(t *testing.T) {
	rng := testutil.NewRNG(99)

	const (
		numPoints = 2000
		dims      = 3
	)
	data := testutil.UniformPoints[float32](rng, numPoints, dims, 100)

	db, err := New(data, dims)
	require.NoError(t, err)
	defer db.Close()

	q := testutil.QueryPoint[float32](rng, dims, 100, 0)
	wantID, _ := testutil.BruteForceClosest(data, dims, q, float32(math.Inf(1)))

	// Budget 0 descends straight to one leaf and never resumes a far
	// node. The result may be approximate but must exist on dense data.
	m, err := db.FindClosest(q, WithBudget[float32](0))
	require.NoError(t, err)
	assert.True(t, m.Found())

	// A negative budget means unbounded, which is exact.
	m, err = db.FindClosest(q, WithBudget[float32](-1))
	require.NoError(t, err)
	assert.Equal(t, wantID, m.ID)
}

func TestFindClosestDimensionMismatch(t *testing.T) {
	db, err := New([]float32{1, 2, 3}, 3)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.FindClosest([]float32{1, 2})
	require.Error(t, err)

	var dimErr *ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)
}

func TestFindClosestStackOverflow(t *testing.T) {
	// Collinear points build a deep tree, and with an unbounded cutoff
	// the first descent pushes a far node at every level. A stack of one
	// entry cannot hold that.
	const numPoints = 64
	data := make([]float32, numPoints)
	for i := range data {
		data[i] = float32(i)
	}

	db, err := New(data, 1, WithStackDepth(1))
	require.NoError(t, err)
	defer db.Close()

	q := []float32{31.5}

	_, err = db.FindClosest(q)
	assert.ErrorIs(t, err, ErrStackOverflow)

	// The stack-free strategies are immune by construction.
	m, err := db.FindClosest(q, WithStrategy[float32](kdtree.StrategyDenseStackFree))
	require.NoError(t, err)
	assert.True(t, m.Found())

	m2, err := db.FindClosest(q, WithStrategy[float32](kdtree.StrategySpatialStackFree))
	require.NoError(t, err)
	assert.Equal(t, m.ID, m2.ID)
}

func TestFindClosestInvalidStrategy(t *testing.T) {
	db, err := New([]float32{1, 2}, 2)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.FindClosest([]float32{1, 2}, WithStrategy[float32](kdtree.Strategy(42)))
	assert.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestStatsCollector(t *testing.T) {
	rng := testutil.NewRNG(11)
	data := testutil.UniformPoints[float32](rng, 200, 2, 50)

	collector := &kdtree.AtomicStatsCollector{}

	db, err := New(data, 2, WithStatsCollector(collector))
	require.NoError(t, err)
	defer db.Close()

	const numQueries = 10
	for i := 0; i < numQueries; i++ {
		_, err := db.FindClosest(testutil.QueryPoint[float32](rng, 2, 50, 0))
		require.NoError(t, err)
	}

	snap := collector.Snapshot()
	assert.Equal(t, int64(numQueries), snap.Queries)
	assert.Greater(t, snap.NodeVisits, int64(0))
	assert.Greater(t, snap.PrimTests, int64(0))
}

func TestMetricsCollector(t *testing.T) {
	metrics := &BasicMetricsCollector{}

	// Collinear data with a one-entry stack makes the stacked traversal
	// fail, which is the error path RecordSearch observes.
	const numPoints = 64
	data := make([]float32, numPoints)
	for i := range data {
		data[i] = float32(i)
	}

	db, err := New(data, 1, WithStackDepth(1), WithMetricsCollector(metrics))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.FindClosest([]float32{31.5}, WithStrategy[float32](kdtree.StrategyDenseStackFree))
	require.NoError(t, err)

	_, err = db.FindClosest([]float32{31.5})
	require.ErrorIs(t, err, ErrStackOverflow)

	_, err = db.FindClosestBatch(context.Background(), [][]float32{{1}, {9}},
		WithStrategy[float32](kdtree.StrategySpatialStackFree))
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.SearchCount)
	assert.Equal(t, int64(1), stats.SearchErrors)
	assert.Equal(t, int64(1), stats.BatchCount)
	assert.Equal(t, int64(2), stats.BatchQueries)
	assert.Equal(t, int64(0), stats.BatchErrors)
}

func TestStats(t *testing.T) {
	rng := testutil.NewRNG(3)
	data := testutil.UniformPoints[float32](rng, 100, 4, 10)

	db, err := New(data, 4, WithDefaultStrategy(kdtree.StrategySpatialStack))
	require.NoError(t, err)
	defer db.Close()

	stats := db.Stats()
	assert.Equal(t, 100, stats.Points)
	assert.Equal(t, 4, stats.Dims)
	assert.Equal(t, kdtree.StrategySpatialStack, stats.Strategy)
	assert.Greater(t, stats.DenseNodes, 0)
	assert.Greater(t, stats.DenseDepth, 0)
	assert.Greater(t, stats.SpatialNodes, 0)
	assert.Greater(t, stats.SpatialDepth, 0)
}

func TestFloat64(t *testing.T) {
	points := []float64{
		0, 0,
		10, 10,
		5, 5,
	}

	db, err := New(points, 2)
	require.NoError(t, err)
	defer db.Close()

	m, err := db.FindClosest([]float64{4, 4})
	require.NoError(t, err)
	assert.Equal(t, int32(2), m.ID)
	assert.Equal(t, float64(2), m.Dist2)
}
