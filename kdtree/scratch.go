package kdtree

import "github.com/hupe1980/kdgo/point"

// DefaultStackDepth is the backtracking bound used when NewScratch is
// called with a non-positive depth. It comfortably covers any balanced
// tree (depth 50 implies ~2^50 nodes) while keeping per-query memory
// fixed and small.
const DefaultStackDepth = 50

// denseEntry is one suspended far branch of the dense traversal: the far
// child to resume and the squared plane distance at push time.
type denseEntry[S point.Scalar] struct {
	node  int32
	dist2 S
}

// Scratch holds all per-query traversal state: the bounded backtracking
// stacks and the diagnostic counters. A Scratch is created once and
// reused across queries; it is not safe for concurrent use, so each
// parallel worker owns its own.
type Scratch[S point.Scalar] struct {
	// Stats accumulates across queries until the caller resets it.
	Stats TraversalStats

	depth   int
	dims    int
	dense   []denseEntry[S] // dense stack: (node, plane distance) entries
	nodes   []int32         // spatial stack: suspended node ids
	corners []S             // spatial stack: one corner point per entry
	corner  []S             // working corner of the active subtree
}

// NewScratch returns a Scratch for trees of the given dimensionality.
// depth bounds how many far branches may be suspended at once; a
// non-positive depth selects DefaultStackDepth. Exceeding the bound
// aborts the query with ErrStackOverflow.
func NewScratch[S point.Scalar](dims, depth int) *Scratch[S] {
	if depth <= 0 {
		depth = DefaultStackDepth
	}
	if dims < 0 {
		dims = 0
	}
	return &Scratch[S]{
		depth:   depth,
		dims:    dims,
		dense:   make([]denseEntry[S], depth),
		nodes:   make([]int32, depth),
		corners: make([]S, depth*dims),
		corner:  make([]S, dims),
	}
}

// StackDepth returns the backtracking bound.
func (sc *Scratch[S]) StackDepth() int { return sc.depth }

// Dims returns the dimensionality the Scratch was sized for.
func (sc *Scratch[S]) Dims() int { return sc.dims }
