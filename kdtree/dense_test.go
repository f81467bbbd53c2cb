package kdtree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threePoints is a tiny fixture whose nearest neighbor is easy to see:
// id 2 at (5,5) is closest to (4,4) with squared distance 2.
func threePoints() []float32 {
	return []float32{
		0, 0,
		10, 10,
		5, 5,
	}
}

func TestBuildDenseShape(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		dims      int
		leafSize  int
		wantDepth int
		wantNodes int
	}{
		{name: "single point", n: 1, dims: 3, leafSize: 8, wantDepth: 1, wantNodes: 1},
		{name: "one bucket", n: 8, dims: 3, leafSize: 8, wantDepth: 1, wantNodes: 1},
		{name: "one split", n: 9, dims: 3, leafSize: 8, wantDepth: 2, wantNodes: 3},
		{name: "singleton leaves", n: 8, dims: 2, leafSize: 1, wantDepth: 4, wantNodes: 15},
		{name: "clamped leaves", n: 3, dims: 2, leafSize: 1, wantDepth: 2, wantNodes: 3},
		{name: "hundred points", n: 100, dims: 3, leafSize: 8, wantDepth: 5, wantNodes: 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]float64, tt.n*tt.dims)
			for i := range data {
				data[i] = float64(i%17) * 1.25
			}

			tree, err := BuildDense(data, tt.dims, func(o *BuildOptions) { o.LeafSize = tt.leafSize })
			require.NoError(t, err)

			assert.Equal(t, tt.n, tree.Len())
			assert.Equal(t, tt.wantDepth, tree.Depth())
			assert.Equal(t, tt.wantNodes, len(tree.Nodes()))
			assert.NoError(t, tree.Validate())
		})
	}
}

func TestBuildDenseErrors(t *testing.T) {
	_, err := BuildDense([]float32{1, 2, 3}, 0)
	assert.ErrorIs(t, err, ErrInvalidDims)

	_, err = BuildDense([]float32{1, 2, 3}, 2)
	assert.ErrorIs(t, err, ErrRaggedData)
}

func TestBuildDenseDeterministic(t *testing.T) {
	data := []float32{3, 3, 1, 1, 1, 1, 2, 5, 0, 0, 2, 5}

	a, err := BuildDense(data, 2, func(o *BuildOptions) { o.LeafSize = 1 })
	require.NoError(t, err)
	b, err := BuildDense(data, 2, func(o *BuildOptions) { o.LeafSize = 1 })
	require.NoError(t, err)

	assert.Equal(t, a.Nodes(), b.Nodes())
	assert.Equal(t, a.Prims(), b.Prims())
}

func TestBuildDenseSplitLayout(t *testing.T) {
	tree, err := BuildDense(threePoints(), 2, func(o *BuildOptions) { o.LeafSize = 1 })
	require.NoError(t, err)

	// Median split on x: (0,0) | (5,5), (10,10).
	require.Equal(t, 3, len(tree.Nodes()))
	root := tree.Nodes()[0]
	assert.False(t, root.IsLeaf())
	assert.Equal(t, int32(0), root.Axis)
	assert.Equal(t, float32(5), root.Pos)
	assert.Equal(t, uint32(1), root.Offset)
	assert.Equal(t, []int32{0, 2, 1}, tree.Prims())
}

func TestDenseFindClosest(t *testing.T) {
	tests := []struct {
		name      string
		leafSize  int
		cutoff    float32
		wantID    int32
		wantDist2 float32
	}{
		{name: "unbounded single leaf", leafSize: 8, cutoff: float32(math.Inf(1)), wantID: 2, wantDist2: 2},
		{name: "unbounded split tree", leafSize: 1, cutoff: float32(math.Inf(1)), wantID: 2, wantDist2: 2},
		{name: "radius excludes all", leafSize: 1, cutoff: 1.0, wantID: None},
		{name: "radius includes best", leafSize: 1, cutoff: 1.5, wantID: 2, wantDist2: 2},
		{name: "zero radius", leafSize: 8, cutoff: 0, wantID: None},
		{name: "negative radius", leafSize: 8, cutoff: -3, wantID: None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := BuildDense(threePoints(), 2, func(o *BuildOptions) { o.LeafSize = tt.leafSize })
			require.NoError(t, err)

			params := DefaultSearchParams[float32]()
			params.CutoffRadius = tt.cutoff
			sc := NewScratch[float32](2, 0)

			id, dist2, err := tree.FindClosest([]float32{4, 4}, params, sc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			if tt.wantID != None {
				assert.Equal(t, tt.wantDist2, dist2)
			}

			id, dist2, err = tree.FindClosestStackFree([]float32{4, 4}, params, sc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			if tt.wantID != None {
				assert.Equal(t, tt.wantDist2, dist2)
			}
		})
	}
}

func TestDenseFindClosestEmpty(t *testing.T) {
	tree, err := BuildDense([]float64{}, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, 0, tree.Depth())

	sc := NewScratch[float64](3, 0)
	id, dist2, err := tree.FindClosest([]float64{1, 2, 3}, DefaultSearchParams[float64](), sc)
	require.NoError(t, err)
	assert.Equal(t, None, id)
	assert.Equal(t, float64(0), dist2)

	// No distance may ever be computed against an empty tree.
	assert.Equal(t, int64(0), sc.Stats.PrimTests)
	assert.Equal(t, int64(0), sc.Stats.NodeVisits)
}

func TestDenseBudgetZeroVisitsOneLeaf(t *testing.T) {
	tree, err := BuildDense(threePoints(), 2, func(o *BuildOptions) { o.LeafSize = 1 })
	require.NoError(t, err)

	params := DefaultSearchParams[float32]()
	params.FarNodeBudget = 0
	sc := NewScratch[float32](2, 0)

	// Direct descent lands in the leaf holding (0,0); with no budget the
	// closer far branch may not be resumed, so the approximate answer is
	// id 0.
	id, dist2, err := tree.FindClosest([]float32{4, 4}, params, sc)
	require.NoError(t, err)
	assert.Equal(t, int32(0), id)
	assert.Equal(t, float32(32), dist2)
	assert.Equal(t, int64(1), sc.Stats.PrimTests)
	assert.Equal(t, int64(tree.Depth()), sc.Stats.NodeVisits)
	assert.Equal(t, int64(0), sc.Stats.FarResumes)

	sc.Stats.Reset()
	id, dist2, err = tree.FindClosestStackFree([]float32{4, 4}, params, sc)
	require.NoError(t, err)
	assert.Equal(t, int32(0), id)
	assert.Equal(t, float32(32), dist2)
	assert.Equal(t, int64(1), sc.Stats.PrimTests)
	assert.Equal(t, int64(0), sc.Stats.FarResumes)
}

func TestDenseBudgetOneFindsExact(t *testing.T) {
	tree, err := BuildDense(threePoints(), 2, func(o *BuildOptions) { o.LeafSize = 1 })
	require.NoError(t, err)

	params := DefaultSearchParams[float32]()
	params.FarNodeBudget = 1
	sc := NewScratch[float32](2, 0)

	id, dist2, err := tree.FindClosest([]float32{4, 4}, params, sc)
	require.NoError(t, err)
	assert.Equal(t, int32(2), id)
	assert.Equal(t, float32(2), dist2)
	assert.Equal(t, int64(1), sc.Stats.FarResumes)
}

func TestDenseStackOverflow(t *testing.T) {
	// 64 collinear points force a 7-level tree with singleton leaves. A
	// query left of every point keeps the splitting plane within the cull
	// distance on the whole descent, suspending one far branch per
	// internal level.
	data := make([]float32, 64*2)
	for i := 0; i < 64; i++ {
		data[i*2] = float32(i)
	}
	tree, err := BuildDense(data, 2, func(o *BuildOptions) { o.LeafSize = 1 })
	require.NoError(t, err)
	require.Equal(t, 7, tree.Depth())

	q := []float32{-1, 0}
	params := DefaultSearchParams[float32]()

	t.Run("undersized scratch overflows", func(t *testing.T) {
		sc := NewScratch[float32](2, 3)
		id, dist2, err := tree.FindClosest(q, params, sc)
		assert.ErrorIs(t, err, ErrStackOverflow)
		assert.Equal(t, None, id)
		assert.Equal(t, float32(0), dist2)
		assert.Equal(t, int64(1), sc.Stats.Overflows)

		// Deterministic: the same query overflows again.
		_, _, err = tree.FindClosest(q, params, sc)
		assert.ErrorIs(t, err, ErrStackOverflow)
		assert.Equal(t, int64(2), sc.Stats.Overflows)
	})

	t.Run("depth minus one suffices", func(t *testing.T) {
		sc := NewScratch[float32](2, tree.Depth()-1)
		id, dist2, err := tree.FindClosest(q, params, sc)
		require.NoError(t, err)
		assert.Equal(t, int32(0), id)
		assert.Equal(t, float32(1), dist2)
		assert.Equal(t, int64(0), sc.Stats.Overflows)
	})

	t.Run("stack free never overflows", func(t *testing.T) {
		sc := NewScratch[float32](2, 1)
		id, dist2, err := tree.FindClosestStackFree(q, params, sc)
		require.NoError(t, err)
		assert.Equal(t, int32(0), id)
		assert.Equal(t, float32(1), dist2)
	})
}

func TestDenseFilter(t *testing.T) {
	tree, err := BuildDense(threePoints(), 2, func(o *BuildOptions) { o.LeafSize = 1 })
	require.NoError(t, err)

	params := DefaultSearchParams[float32]()
	params.Filter = func(id int32) bool { return id != 2 }
	sc := NewScratch[float32](2, 0)

	id, dist2, err := tree.FindClosest([]float32{4, 4}, params, sc)
	require.NoError(t, err)
	assert.Equal(t, int32(0), id)
	assert.Equal(t, float32(32), dist2)

	params.Filter = func(int32) bool { return false }
	id, _, err = tree.FindClosest([]float32{4, 4}, params, sc)
	require.NoError(t, err)
	assert.Equal(t, None, id)
}

func TestNewDense(t *testing.T) {
	built, err := BuildDense(threePoints(), 2, func(o *BuildOptions) { o.LeafSize = 1 })
	require.NoError(t, err)

	tree, err := NewDense(built.Nodes(), built.Prims(), built.Data(), 2)
	require.NoError(t, err)
	assert.Equal(t, built.Depth(), tree.Depth())

	sc := NewScratch[float32](2, 0)
	id, dist2, err := tree.FindClosest([]float32{4, 4}, DefaultSearchParams[float32](), sc)
	require.NoError(t, err)
	assert.Equal(t, int32(2), id)
	assert.Equal(t, float32(2), dist2)
}

func TestNewDenseRejectsCorrupt(t *testing.T) {
	valid := func() (nodes []Node[float32], prims []int32, data []float32) {
		built, err := BuildDense(threePoints(), 2, func(o *BuildOptions) { o.LeafSize = 1 })
		require.NoError(t, err)
		nodes = append(nodes, built.Nodes()...)
		prims = append(prims, built.Prims()...)
		return nodes, prims, built.Data()
	}

	t.Run("incomplete node array", func(t *testing.T) {
		nodes, prims, data := valid()
		_, err := NewDense(nodes[:2], prims, data, 2)
		assert.ErrorIs(t, err, ErrCorruptTree)
	})

	t.Run("wrong child offset", func(t *testing.T) {
		nodes, prims, data := valid()
		nodes[0].Offset = 2
		_, err := NewDense(nodes, prims, data, 2)
		assert.ErrorIs(t, err, ErrCorruptTree)
	})

	t.Run("axis out of range", func(t *testing.T) {
		nodes, prims, data := valid()
		nodes[0].Axis = 7
		_, err := NewDense(nodes, prims, data, 2)
		assert.ErrorIs(t, err, ErrCorruptTree)
	})

	t.Run("bucket escapes primitives", func(t *testing.T) {
		nodes, prims, data := valid()
		nodes[2].Count = 9
		_, err := NewDense(nodes, prims, data, 2)
		assert.ErrorIs(t, err, ErrCorruptTree)
	})

	t.Run("overlapping buckets", func(t *testing.T) {
		nodes, prims, data := valid()
		nodes[2].Offset = 0 // collides with the first leaf's slot
		_, err := NewDense(nodes, prims, data, 2)
		assert.ErrorIs(t, err, ErrCorruptTree)
	})

	t.Run("primitive id out of range", func(t *testing.T) {
		nodes, prims, data := valid()
		prims[0] = 99
		_, err := NewDense(nodes, prims, data, 2)
		assert.ErrorIs(t, err, ErrCorruptTree)
	})

	t.Run("duplicate primitive id", func(t *testing.T) {
		nodes, prims, data := valid()
		prims[0] = prims[1]
		_, err := NewDense(nodes, prims, data, 2)
		assert.ErrorIs(t, err, ErrCorruptTree)
	})

	t.Run("primitives without nodes", func(t *testing.T) {
		_, prims, data := valid()
		_, err := NewDense(nil, prims, data, 2)
		assert.ErrorIs(t, err, ErrCorruptTree)
	})
}
