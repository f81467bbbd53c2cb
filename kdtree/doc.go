// Package kdtree implements k-d tree spatial indexes and the
// find-closest-point traversals that query them.
//
// Two tree shapes implement the same queryable contract:
//
//   - Dense: an implicit, complete binary tree stored as a flat node
//     array. Children live at index-derived positions and no bounding
//     boxes are kept. Cheapest per node visited.
//   - Spatial: a general tree with explicit child offsets, parent links
//     and a whole-tree bounding box. Traversal tracks the closest corner
//     of the active subtree's bounding region for tighter pruning.
//
// Each shape supports a stack-bearing and a stack-free traversal, giving
// four interchangeable strategies behind one contract (see Strategy).
// Traversals are allocation-free, recursion-free and bounded in auxiliary
// memory: all per-query state lives in a caller-supplied Scratch, so one
// query can run per parallel worker with zero coordination.
//
// # Usage
//
//	tree, _ := kdtree.BuildDense(data, dims)
//	sc := kdtree.NewScratch[float32](dims, 0)
//	id, dist2, err := tree.FindClosest(query, kdtree.DefaultSearchParams[float32](), sc)
//	if id == kdtree.None {
//	    // nothing within the cutoff radius
//	}
//
// Tree and point data are read-only after build; any number of queries
// may run concurrently against them as long as each uses its own Scratch.
package kdtree
