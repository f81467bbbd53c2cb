package kdtree

import (
	"fmt"
	"math/bits"

	"github.com/hupe1980/kdgo/point"
)

// Dense is a k-d tree stored as a complete binary tree in array form:
// the children of internal node i sit at 2i+1 and 2i+2, every leaf lives
// on the last level, and no bounding boxes are kept. Builders record the
// left-child index in Node.Offset so traversals never recompute it.
//
// Dense keeps a reference to the caller's flat row-major point data; the
// data must stay unmodified while the tree is in use. All methods are
// safe for concurrent readers.
type Dense[S point.Scalar] struct {
	nodes []Node[S]
	prims []int32
	data  []S
	dims  int
	depth int // tree levels, including the leaf level
}

var _ Tree[float32] = (*Dense[float32])(nil)

// BuildDense builds a Dense tree over flat row-major data with
// len(data)/dims points. The data is referenced, not copied; only the
// internal primitive permutation is reordered during the build.
func BuildDense[S point.Scalar](data []S, dims int, optFns ...func(*BuildOptions)) (*Dense[S], error) {
	opts := applyBuildOptions(optFns)
	n, err := checkData(data, dims)
	if err != nil {
		return nil, err
	}

	t := &Dense[S]{data: data, dims: dims}
	if n == 0 {
		return t, nil
	}

	// Pick the unique complete shape: the smallest leaf level that meets
	// the leaf-size target, clamped so every leaf keeps at least one
	// point.
	levels := 0
	for (n+(1<<levels)-1)>>levels > opts.LeafSize {
		levels++
	}
	for 1<<levels > n {
		levels--
	}

	t.depth = levels + 1
	t.nodes = make([]Node[S], (1<<(levels+1))-1)
	t.prims = identityPerm(n)
	t.buildNode(0, 0, n, 0, levels)

	return t, nil
}

// buildNode fills the subtree rooted at node over prims[lo:hi]. Nodes at
// leafLevel become buckets; everything above is split at the median of
// the widest-spread axis.
func (t *Dense[S]) buildNode(node, lo, hi, level, leafLevel int) {
	if level == leafLevel {
		t.nodes[node] = Node[S]{Count: uint32(hi - lo), Offset: uint32(lo)}
		return
	}

	axis := widestAxis(t.data, t.dims, t.prims, lo, hi)
	sortByAxis(t.data, t.dims, t.prims, lo, hi, axis)
	mid := (lo + hi) / 2

	t.nodes[node] = Node[S]{
		Axis:   axis,
		Pos:    t.data[int(t.prims[mid])*t.dims+int(axis)],
		Offset: uint32(2*node + 1),
	}

	t.buildNode(2*node+1, lo, mid, level+1, leafLevel)
	t.buildNode(2*node+2, mid, hi, level+1, leafLevel)
}

// NewDense assembles a Dense tree from prebuilt arrays, typically read
// back from a snapshot. The arrays are validated before use.
func NewDense[S point.Scalar](nodes []Node[S], prims []int32, data []S, dims int) (*Dense[S], error) {
	if _, err := checkData(data, dims); err != nil {
		return nil, err
	}
	t := &Dense[S]{
		nodes: nodes,
		prims: prims,
		data:  data,
		dims:  dims,
		depth: bits.Len(uint(len(nodes)+1)) - 1,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Dims returns the dimensionality of the indexed points.
func (t *Dense[S]) Dims() int { return t.dims }

// Len returns the number of indexed points.
func (t *Dense[S]) Len() int { return len(t.prims) }

// Depth returns the number of tree levels, including the leaf level.
func (t *Dense[S]) Depth() int { return t.depth }

// Nodes exposes the node array for persistence.
func (t *Dense[S]) Nodes() []Node[S] { return t.nodes }

// Prims exposes the primitive id array for persistence.
func (t *Dense[S]) Prims() []int32 { return t.prims }

// Data exposes the flat point data the tree was built over.
func (t *Dense[S]) Data() []S { return t.data }

// PointAt returns the coordinates of primitive id.
func (t *Dense[S]) PointAt(id int32) []S {
	return t.data[int(id)*t.dims : (int(id)+1)*t.dims]
}

// Validate checks the complete-tree invariants: the array length encodes
// a complete binary tree, every node is exactly leaf or internal,
// internal children sit at the index-derived positions, and the leaf
// buckets tile the primitive array, which must hold unique in-range point
// ids.
func (t *Dense[S]) Validate() error {
	if len(t.nodes) == 0 {
		if len(t.prims) != 0 {
			return fmt.Errorf("%w: %d primitives but no nodes", ErrCorruptTree, len(t.prims))
		}
		return nil
	}
	if n := len(t.nodes) + 1; n&(n-1) != 0 {
		return fmt.Errorf("%w: %d nodes do not form a complete tree", ErrCorruptTree, len(t.nodes))
	}

	slots := make([]bool, len(t.prims))
	for i, n := range t.nodes {
		if n.IsLeaf() {
			lo, hi := int(n.Offset), int(n.Offset)+int(n.Count)
			if hi > len(t.prims) {
				return fmt.Errorf("%w: leaf %d bucket [%d,%d) exceeds %d primitives", ErrCorruptTree, i, lo, hi, len(t.prims))
			}
			for s := lo; s < hi; s++ {
				if slots[s] {
					return fmt.Errorf("%w: primitive slot %d claimed twice", ErrCorruptTree, s)
				}
				slots[s] = true
			}
			continue
		}
		if int(n.Offset) != 2*i+1 {
			return fmt.Errorf("%w: internal node %d has offset %d, want %d", ErrCorruptTree, i, n.Offset, 2*i+1)
		}
		if 2*i+2 >= len(t.nodes) {
			return fmt.Errorf("%w: internal node %d has out-of-range children", ErrCorruptTree, i)
		}
		if int(n.Axis) < 0 || int(n.Axis) >= t.dims {
			return fmt.Errorf("%w: internal node %d splits on axis %d of %d", ErrCorruptTree, i, n.Axis, t.dims)
		}
	}
	for s, used := range slots {
		if !used {
			return fmt.Errorf("%w: primitive slot %d unclaimed", ErrCorruptTree, s)
		}
	}
	return validatePerm(t.prims, len(t.data)/t.dims)
}

// FindClosest returns the id of the indexed point closest to q within
// params.CutoffRadius, along with its squared distance, or None when
// nothing qualifies. It is the stack-bearing traversal: an iterative
// descend/evaluate/backtrack state machine whose suspended far branches
// live in sc. Exceeding sc's stack bound aborts the query with
// ErrStackOverflow.
func (t *Dense[S]) FindClosest(q []S, params SearchParams[S], sc *Scratch[S]) (int32, S, error) {
	var res Result[S]
	res.Clear(squaredCutoff(params.CutoffRadius))
	if len(t.nodes) == 0 {
		return res.finish()
	}

	budget := normalizeBudget(params.FarNodeBudget)
	stack := sc.dense
	top := 0
	node := int32(0)

	for {
		n := &t.nodes[node]
		sc.Stats.NodeVisits++

		// Descend to a leaf. The far child is suspended whenever the
		// splitting plane is still within the cull distance.
		for !n.IsLeaf() {
			delta := q[n.Axis] - n.Pos
			near := int32(n.Offset)
			far := near + 1
			if delta >= 0 {
				near, far = far, near
			}
			if d2 := delta * delta; d2 < res.CullDist2() {
				if top == len(stack) {
					sc.Stats.Overflows++
					return None, 0, ErrStackOverflow
				}
				stack[top] = denseEntry[S]{node: far, dist2: d2}
				top++
			}
			node = near
			n = &t.nodes[node]
			sc.Stats.NodeVisits++
		}

		t.evalLeaf(n, q, &params, &res, sc)

		// Backtrack: drop branches the shrunken cull distance now proves
		// empty, resume the first survivor.
		resumed := false
		for top > 0 {
			top--
			e := stack[top]
			if e.dist2 >= res.CullDist2() {
				continue
			}
			if budget == 0 {
				return res.finish()
			}
			budget--
			sc.Stats.FarResumes++
			node = e.node
			resumed = true
			break
		}
		if !resumed {
			return res.finish()
		}
	}
}

// FindClosestStackFree answers the same query as FindClosest by walking
// parent links derived from index arithmetic. It keeps no per-query stack
// and therefore cannot overflow; its auxiliary state is two node ids.
func (t *Dense[S]) FindClosestStackFree(q []S, params SearchParams[S], sc *Scratch[S]) (int32, S, error) {
	var res Result[S]
	res.Clear(squaredCutoff(params.CutoffRadius))
	if len(t.nodes) == 0 {
		return res.finish()
	}

	budget := normalizeBudget(params.FarNodeBudget)
	prev := int32(-1)
	curr := int32(0)

	for curr >= 0 {
		parent := int32(-1)
		if curr > 0 {
			parent = (curr - 1) / 2
		}
		n := &t.nodes[curr]
		fromParent := prev == parent

		if n.IsLeaf() {
			if fromParent {
				sc.Stats.NodeVisits++
				t.evalLeaf(n, q, &params, &res, sc)
			}
			prev, curr = curr, parent
			continue
		}

		delta := q[n.Axis] - n.Pos
		near := int32(n.Offset)
		far := near + 1
		if delta >= 0 {
			near, far = far, near
		}

		var next int32
		switch {
		case fromParent:
			sc.Stats.NodeVisits++
			next = near
		case prev == near:
			// The near subtree is exhausted; enter the far subtree only
			// if the plane is still within the cull distance and the
			// budget allows it.
			if d2 := delta * delta; d2 < res.CullDist2() && budget != 0 {
				budget--
				sc.Stats.FarResumes++
				next = far
			} else {
				next = parent
			}
		default:
			next = parent
		}
		prev, curr = curr, next
	}

	return res.finish()
}

// evalLeaf feeds every primitive of the leaf bucket to the accumulator.
func (t *Dense[S]) evalLeaf(n *Node[S], q []S, params *SearchParams[S], res *Result[S], sc *Scratch[S]) {
	base := int(n.Offset)
	for i := 0; i < int(n.Count); i++ {
		id := t.prims[base+i]
		if params.Filter != nil && !params.Filter(id) {
			continue
		}
		sc.Stats.PrimTests++
		res.ProcessCandidate(id, point.SquaredL2(q, t.PointAt(id)))
	}
}

// validatePerm checks that prims is a permutation of ids below n.
func validatePerm(prims []int32, n int) error {
	seen := make([]bool, n)
	for _, id := range prims {
		if id < 0 || int(id) >= n {
			return fmt.Errorf("%w: primitive id %d out of range [0,%d)", ErrCorruptTree, id, n)
		}
		if seen[id] {
			return fmt.Errorf("%w: primitive id %d appears twice", ErrCorruptTree, id)
		}
		seen[id] = true
	}
	return nil
}
