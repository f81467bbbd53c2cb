package kdtree

import "github.com/hupe1980/kdgo/point"

// Result accumulates the best candidate seen by one query. Its cull
// distance is the sole pruning threshold of a traversal and never
// increases over the query's lifetime.
type Result[S point.Scalar] struct {
	id    int32
	dist2 S
}

// Clear resets the accumulator for a new query. initialDist2 is the
// squared cutoff radius; candidates at or beyond it are rejected.
func (r *Result[S]) Clear(initialDist2 S) {
	r.id = None
	r.dist2 = initialDist2
}

// ProcessCandidate adopts id as the best candidate iff dist2 is strictly
// below the current cull distance, and returns the (possibly shrunk) cull
// distance.
func (r *Result[S]) ProcessCandidate(id int32, dist2 S) S {
	if dist2 < r.dist2 {
		r.id = id
		r.dist2 = dist2
	}
	return r.dist2
}

// CullDist2 returns the current squared pruning threshold.
func (r *Result[S]) CullDist2() S { return r.dist2 }

// Value returns the best candidate id, or None if no candidate was ever
// accepted.
func (r *Result[S]) Value() int32 { return r.id }

// finish converts the accumulator into a traversal return value. The
// squared distance is only meaningful when a candidate was accepted.
func (r *Result[S]) finish() (int32, S, error) {
	if r.id == None {
		return None, 0, nil
	}
	return r.id, r.dist2, nil
}
