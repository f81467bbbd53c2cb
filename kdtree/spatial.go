package kdtree

import (
	"fmt"

	"github.com/hupe1980/kdgo/point"
)

// Spatial is a k-d tree with explicit child offsets, parent links and a
// whole-tree bounding box. The tree need not be index-complete: leaves
// appear at whatever depth the split recursion bottoms out. Its
// traversals maintain the bounding region of the active subtree, which
// prunes tighter than the dense shape's plane-distance test at the cost
// of carrying a corner point per suspended branch.
//
// Like Dense, Spatial references the caller's flat point data and is safe
// for concurrent readers.
type Spatial[S point.Scalar] struct {
	nodes   []Node[S]
	prims   []int32
	parents []int32 // parent ids, -1 for the root; drives the stack-free walk
	bounds  Bounds[S]
	data    []S
	dims    int
	depth   int
}

var _ Tree[float64] = (*Spatial[float64])(nil)

// BuildSpatial builds a Spatial tree over flat row-major data with
// len(data)/dims points. Construction splits the widest-spread axis at
// the median until buckets reach the leaf-size target; children are
// allocated breadth-first so siblings stay adjacent.
func BuildSpatial[S point.Scalar](data []S, dims int, optFns ...func(*BuildOptions)) (*Spatial[S], error) {
	opts := applyBuildOptions(optFns)
	n, err := checkData(data, dims)
	if err != nil {
		return nil, err
	}

	t := &Spatial[S]{data: data, dims: dims, bounds: boundsOf(data, n, dims)}
	if n == 0 {
		return t, nil
	}

	t.prims = identityPerm(n)
	est := 2 * ((n + opts.LeafSize - 1) / opts.LeafSize)
	t.nodes = make([]Node[S], 1, est)
	t.parents = make([]int32, 1, est)
	t.parents[0] = -1

	type task struct {
		node   int32
		lo, hi int
		level  int
	}
	tasks := make([]task, 0, est)
	tasks = append(tasks, task{node: 0, lo: 0, hi: n, level: 1})

	for head := 0; head < len(tasks); head++ {
		tk := tasks[head]
		if tk.level > t.depth {
			t.depth = tk.level
		}
		if tk.hi-tk.lo <= opts.LeafSize {
			t.nodes[tk.node] = Node[S]{Count: uint32(tk.hi - tk.lo), Offset: uint32(tk.lo)}
			continue
		}

		axis := widestAxis(t.data, t.dims, t.prims, tk.lo, tk.hi)
		sortByAxis(t.data, t.dims, t.prims, tk.lo, tk.hi, axis)
		mid := (tk.lo + tk.hi) / 2

		left := int32(len(t.nodes))
		t.nodes = append(t.nodes, Node[S]{}, Node[S]{})
		t.parents = append(t.parents, tk.node, tk.node)
		t.nodes[tk.node] = Node[S]{
			Axis:   axis,
			Pos:    t.data[int(t.prims[mid])*t.dims+int(axis)],
			Offset: uint32(left),
		}

		tasks = append(tasks,
			task{node: left, lo: tk.lo, hi: mid, level: tk.level + 1},
			task{node: left + 1, lo: mid, hi: tk.hi, level: tk.level + 1},
		)
	}

	return t, nil
}

// NewSpatial assembles a Spatial tree from prebuilt arrays, typically
// read back from a snapshot. The arrays are validated before use.
func NewSpatial[S point.Scalar](nodes []Node[S], prims, parents []int32, bounds Bounds[S], data []S, dims int) (*Spatial[S], error) {
	if _, err := checkData(data, dims); err != nil {
		return nil, err
	}
	t := &Spatial[S]{
		nodes:   nodes,
		prims:   prims,
		parents: parents,
		bounds:  bounds,
		data:    data,
		dims:    dims,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.depth = t.computeDepth()
	return t, nil
}

// computeDepth derives the level count from the parent links.
func (t *Spatial[S]) computeDepth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	levels := make([]int, len(t.nodes))
	depth := 0
	for i := range t.nodes {
		if t.parents[i] < 0 {
			levels[i] = 1
		} else {
			levels[i] = levels[t.parents[i]] + 1
		}
		if levels[i] > depth {
			depth = levels[i]
		}
	}
	return depth
}

// Dims returns the dimensionality of the indexed points.
func (t *Spatial[S]) Dims() int { return t.dims }

// Len returns the number of indexed points.
func (t *Spatial[S]) Len() int { return len(t.prims) }

// Depth returns the number of tree levels, including the leaf level.
func (t *Spatial[S]) Depth() int { return t.depth }

// Nodes exposes the node array for persistence.
func (t *Spatial[S]) Nodes() []Node[S] { return t.nodes }

// Prims exposes the primitive id array for persistence.
func (t *Spatial[S]) Prims() []int32 { return t.prims }

// Parents exposes the parent-link array for persistence.
func (t *Spatial[S]) Parents() []int32 { return t.parents }

// Bounds returns the whole-tree bounding box.
func (t *Spatial[S]) Bounds() Bounds[S] { return t.bounds }

// Data exposes the flat point data the tree was built over.
func (t *Spatial[S]) Data() []S { return t.data }

// PointAt returns the coordinates of primitive id.
func (t *Spatial[S]) PointAt(id int32) []S {
	return t.data[int(id)*t.dims : (int(id)+1)*t.dims]
}

// Validate checks the explicit-tree invariants: children are adjacent and
// allocated after their parent, parent links mirror child offsets, leaf
// buckets tile the primitive array with unique in-range ids, and every
// indexed point lies inside the tree bounds.
func (t *Spatial[S]) Validate() error {
	if len(t.nodes) == 0 {
		if len(t.prims) != 0 {
			return fmt.Errorf("%w: %d primitives but no nodes", ErrCorruptTree, len(t.prims))
		}
		return nil
	}
	if len(t.parents) != len(t.nodes) {
		return fmt.Errorf("%w: %d parent links for %d nodes", ErrCorruptTree, len(t.parents), len(t.nodes))
	}
	if t.parents[0] != -1 {
		return fmt.Errorf("%w: root parent is %d", ErrCorruptTree, t.parents[0])
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
		left := int(n.Offset)
		if left <= i || left+1 >= len(t.nodes) {
			return fmt.Errorf("%w: internal node %d has children at [%d,%d]", ErrCorruptTree, i, left, left+1)
		}
		if t.parents[left] != int32(i) || t.parents[left+1] != int32(i) {
			return fmt.Errorf("%w: node %d children disown it", ErrCorruptTree, i)
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
	if err := validatePerm(t.prims, len(t.data)/t.dims); err != nil {
		return err
	}
	for _, id := range t.prims {
		if !t.bounds.Contains(t.PointAt(id)) {
			return fmt.Errorf("%w: point %d outside tree bounds", ErrCorruptTree, id)
		}
	}
	return nil
}

// FindClosest is the bounding-region-aware, stack-bearing traversal. It
// first projects the query onto the whole-tree bounds and returns None
// outright when even that projection lies beyond the cull distance. While
// descending it maintains the closest corner of the active subtree's
// remaining region; a suspended far branch stores its corner, and
// backtracking re-tests the stored corner against the current cull
// distance before resuming. Exceeding sc's stack bound aborts the query
// with ErrStackOverflow.
func (t *Spatial[S]) FindClosest(q []S, params SearchParams[S], sc *Scratch[S]) (int32, S, error) {
	var res Result[S]
	res.Clear(squaredCutoff(params.CutoffRadius))
	if len(t.nodes) == 0 {
		return res.finish()
	}

	corner := sc.corner[:t.dims]
	t.bounds.Project(q, corner)
	if point.SquaredL2(q, corner) > res.CullDist2() {
		return res.finish()
	}

	budget := normalizeBudget(params.FarNodeBudget)
	top := 0
	node := int32(0)

	for {
		n := &t.nodes[node]
		sc.Stats.NodeVisits++

		for !n.IsLeaf() {
			axis := int(n.Axis)
			delta := q[axis] - n.Pos
			near := int32(n.Offset)
			far := near + 1
			if delta >= 0 {
				near, far = far, near
			}

			// The far child's region is the current region clamped at the
			// split plane, so its closest corner differs from the current
			// one on the split axis alone.
			saved := corner[axis]
			corner[axis] = n.Pos
			if point.SquaredL2(q, corner) < res.CullDist2() {
				if top == sc.depth {
					sc.Stats.Overflows++
					return None, 0, ErrStackOverflow
				}
				copy(sc.corners[top*t.dims:(top+1)*t.dims], corner)
				sc.nodes[top] = far
				top++
			}
			corner[axis] = saved

			node = near
			n = &t.nodes[node]
			sc.Stats.NodeVisits++
		}

		t.evalLeaf(n, q, &params, &res, sc)

		resumed := false
		for top > 0 {
			top--
			stored := sc.corners[top*t.dims : (top+1)*t.dims]
			if point.SquaredL2(q, stored) >= res.CullDist2() {
				continue
			}
			if budget == 0 {
				return res.finish()
			}
			budget--
			sc.Stats.FarResumes++
			copy(corner, stored)
			node = sc.nodes[top]
			resumed = true
			break
		}
		if !resumed {
			return res.finish()
		}
	}
}

// FindClosestStackFree answers the same query by walking the explicit
// parent links. It keeps the whole-tree bounding-box entry test but
// prunes suspended subtrees by plane distance, since corner tracking
// needs per-level storage. It cannot overflow.
func (t *Spatial[S]) FindClosestStackFree(q []S, params SearchParams[S], sc *Scratch[S]) (int32, S, error) {
	var res Result[S]
	res.Clear(squaredCutoff(params.CutoffRadius))
	if len(t.nodes) == 0 {
		return res.finish()
	}

	corner := sc.corner[:t.dims]
	t.bounds.Project(q, corner)
	if point.SquaredL2(q, corner) > res.CullDist2() {
		return res.finish()
	}

	budget := normalizeBudget(params.FarNodeBudget)
	prev := int32(-1)
	curr := int32(0)

	for curr >= 0 {
		parent := t.parents[curr]
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
func (t *Spatial[S]) evalLeaf(n *Node[S], q []S, params *SearchParams[S], res *Result[S], sc *Scratch[S]) {
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
