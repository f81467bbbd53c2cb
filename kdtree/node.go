package kdtree

import "github.com/hupe1980/kdgo/point"

// Node is one cell of a k-d partition. The same layout serves both tree
// shapes; they differ only in how child positions are derived.
//
// A node is exactly one of leaf or internal:
//   - leaf: Count > 0, Offset is the first slot of the node's bucket in
//     the primitive id array.
//   - internal: Count == 0, Offset is the index of the left child; the
//     right child is always adjacent at Offset+1.
type Node[S point.Scalar] struct {
	Axis   int32  // split axis, meaningful for internal nodes only
	Pos    S      // split position along Axis
	Count  uint32 // primitives in the leaf bucket; 0 marks an internal node
	Offset uint32 // leaf: bucket base slot; internal: index of the left child
}

// IsLeaf reports whether n holds a primitive bucket.
func (n Node[S]) IsLeaf() bool { return n.Count > 0 }
