package kdtree

import "errors"

var (
	// ErrStackOverflow is returned when a stack-bearing traversal needs
	// more backtracking depth than its Scratch provides. The query carries
	// no result in that case; the outcome is deliberately distinct from a
	// None return, which means "no point within the cutoff radius".
	ErrStackOverflow = errors.New("kdtree: traversal stack overflow")

	// ErrInvalidDims is returned by builders when dims is not positive.
	ErrInvalidDims = errors.New("kdtree: dims must be positive")

	// ErrRaggedData is returned by builders when the flat data length is
	// not a multiple of dims.
	ErrRaggedData = errors.New("kdtree: data length is not a multiple of dims")

	// ErrCorruptTree is returned by Validate when a node array violates a
	// structural invariant.
	ErrCorruptTree = errors.New("kdtree: corrupt tree")
)
