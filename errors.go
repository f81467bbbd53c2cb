package kdgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/kdgo/kdtree"
)

var (
	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("index is closed")

	// ErrInvalidStrategy is returned when a strategy value does not name
	// one of the four traversal implementations.
	ErrInvalidStrategy = errors.New("invalid strategy")

	// ErrStackOverflow is returned by the stack-bearing strategies when a
	// query needs more backtracking room than the configured stack depth.
	// Retry with a larger depth (WithStackDepth) or a stack-free strategy.
	ErrStackOverflow = kdtree.ErrStackOverflow
)

// ErrDimensionMismatch indicates a query/index dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
