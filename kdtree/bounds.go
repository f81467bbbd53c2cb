package kdtree

import "github.com/hupe1980/kdgo/point"

// Bounds is an axis-aligned bounding box.
type Bounds[S point.Scalar] struct {
	Min point.Vec[S]
	Max point.Vec[S]
}

// NewBounds returns an empty box (Min = +Inf, Max = -Inf per axis) ready
// to be extended.
func NewBounds[S point.Scalar](dims int) Bounds[S] {
	b := Bounds[S]{
		Min: make(point.Vec[S], dims),
		Max: make(point.Vec[S], dims),
	}
	for i := 0; i < dims; i++ {
		b.Min[i] = point.Inf[S]()
		b.Max[i] = -point.Inf[S]()
	}
	return b
}

// Dims returns the dimensionality of the box.
func (b *Bounds[S]) Dims() int { return len(b.Min) }

// Extend grows the box to contain p.
func (b *Bounds[S]) Extend(p []S) {
	for i := range b.Min {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Contains reports whether p lies inside the box (inclusive).
func (b *Bounds[S]) Contains(p []S) bool {
	for i := range b.Min {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Project writes the point of the box closest to q into out. For a query
// inside the box this is q itself.
func (b *Bounds[S]) Project(q []S, out []S) {
	for i := range out {
		c := q[i]
		if c < b.Min[i] {
			c = b.Min[i]
		} else if c > b.Max[i] {
			c = b.Max[i]
		}
		out[i] = c
	}
}
