package kdgo

import (
	"fmt"

	"github.com/hupe1980/kdgo/point"
)

// Builder accumulates points one at a time for callers that do not have
// their data in one flat slice up front. Add calls chain; the first
// error is remembered and reported by Build.
//
//	db, err := kdgo.NewBuilder[float32](2).
//	    Add(0, 0).
//	    Add(10, 10).
//	    Add(5, 5).
//	    Build()
type Builder[S point.Scalar] struct {
	dims int
	data []S
	err  error
}

// NewBuilder returns a Builder for points of the given dimensionality.
func NewBuilder[S point.Scalar](dims int) *Builder[S] {
	b := &Builder[S]{dims: dims}
	if dims <= 0 {
		b.err = fmt.Errorf("dimensions must be positive, got %d", dims)
	}
	return b
}

// Add appends one point. Its id is the order of insertion, starting at
// zero.
func (b *Builder[S]) Add(p ...S) *Builder[S] {
	if b.err != nil {
		return b
	}
	if len(p) != b.dims {
		b.err = &ErrDimensionMismatch{Expected: b.dims, Actual: len(p)}
		return b
	}
	b.data = append(b.data, p...)
	return b
}

// AddAll appends flat row-major data holding len(data)/dims points.
func (b *Builder[S]) AddAll(data []S) *Builder[S] {
	if b.err != nil {
		return b
	}
	if len(data)%b.dims != 0 {
		b.err = fmt.Errorf("flat data length %d is not a multiple of %d dimensions", len(data), b.dims)
		return b
	}
	b.data = append(b.data, data...)
	return b
}

// Len returns the number of points added so far.
func (b *Builder[S]) Len() int {
	if b.dims <= 0 {
		return 0
	}
	return len(b.data) / b.dims
}

// Build constructs the index over the accumulated points. The builder
// must not be reused afterwards; the index references its data.
func (b *Builder[S]) Build(optFns ...Option) (*KDGo[S], error) {
	if b.err != nil {
		return nil, b.err
	}
	return New(b.data, b.dims, optFns...)
}
