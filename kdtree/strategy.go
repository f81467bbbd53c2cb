package kdtree

import (
	"fmt"

	"github.com/hupe1980/kdgo/point"
)

// Tree is the nearest-neighbor-queryable contract shared by both tree
// shapes. All implementations answer the same question with identical
// semantics: the id of the closest indexed point within the cutoff
// radius, or None.
type Tree[S point.Scalar] interface {
	// Dims returns the dimensionality of the indexed points.
	Dims() int

	// Len returns the number of indexed points.
	Len() int

	// Depth returns the number of tree levels, counting the root and the
	// leaf level. A Scratch whose stack depth is at least Depth()-1 can
	// never overflow on this tree.
	Depth() int

	// FindClosest runs the stack-bearing traversal.
	FindClosest(q []S, params SearchParams[S], sc *Scratch[S]) (int32, S, error)

	// FindClosestStackFree runs the parent-walk traversal. It needs no
	// backtracking stack and therefore cannot overflow.
	FindClosestStackFree(q []S, params SearchParams[S], sc *Scratch[S]) (int32, S, error)

	// Validate checks the structural invariants of the node arrays.
	Validate() error
}

// Strategy selects one of the four traversal implementations. All four
// share identical inputs and result semantics; they differ in pruning
// tightness and in whether they carry a backtracking stack.
type Strategy int

const (
	// StrategyDenseStack is the default: implicit balanced tree, bounded
	// stack, squared plane distance as the pruning bound.
	StrategyDenseStack Strategy = iota

	// StrategySpatialStack queries the explicit tree and tracks the
	// closest corner of the active subtree's bounding region, pruning
	// tighter at the cost of a point-sized stack entry.
	StrategySpatialStack

	// StrategyDenseStackFree walks the implicit tree via index arithmetic
	// with no per-query stack.
	StrategyDenseStackFree

	// StrategySpatialStackFree walks the explicit tree via parent links,
	// keeping the whole-tree bounding-box entry test.
	StrategySpatialStackFree
)

// StrategyFor maps the two binary configuration choices onto a Strategy.
func StrategyFor(tightPruning, stackFree bool) Strategy {
	switch {
	case tightPruning && stackFree:
		return StrategySpatialStackFree
	case tightPruning:
		return StrategySpatialStack
	case stackFree:
		return StrategyDenseStackFree
	default:
		return StrategyDenseStack
	}
}

// TightPruning reports whether the strategy maintains bounding regions
// for its pruning bound.
func (s Strategy) TightPruning() bool {
	return s == StrategySpatialStack || s == StrategySpatialStackFree
}

// StackFree reports whether the strategy runs without a backtracking
// stack.
func (s Strategy) StackFree() bool {
	return s == StrategyDenseStackFree || s == StrategySpatialStackFree
}

// Valid reports whether s names one of the four implementations.
func (s Strategy) Valid() bool {
	return s >= StrategyDenseStack && s <= StrategySpatialStackFree
}

func (s Strategy) String() string {
	switch s {
	case StrategyDenseStack:
		return "DenseStack"
	case StrategySpatialStack:
		return "SpatialStack"
	case StrategyDenseStackFree:
		return "DenseStackFree"
	case StrategySpatialStackFree:
		return "SpatialStackFree"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}
