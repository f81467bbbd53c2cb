package kdtree

import (
	"math"

	"github.com/hupe1980/kdgo/point"
)

// None is the id returned when no point lies within the cutoff radius.
const None int32 = -1

// SearchParams configures one find-closest-point query.
type SearchParams[S point.Scalar] struct {
	// CutoffRadius bounds the search: a point is only a candidate when its
	// distance to the query is strictly below this radius. Defaults to
	// +Inf (unbounded). A non-positive radius matches nothing.
	CutoffRadius S

	// FarNodeBudget caps how many far branches the traversal may resume.
	// Negative means unbounded. A small budget trades completeness for
	// speed: with budget 0 the traversal inspects exactly the leaf reached
	// by direct descent and the result may be approximate.
	FarNodeBudget int

	// Filter, when non-nil, restricts candidates to ids it accepts.
	// It is invoked once per primitive encountered in a leaf bucket.
	Filter func(id int32) bool
}

// DefaultSearchParams returns an exact, unbounded query configuration.
func DefaultSearchParams[S point.Scalar]() SearchParams[S] {
	return SearchParams[S]{
		CutoffRadius:  point.Inf[S](),
		FarNodeBudget: -1,
	}
}

// squaredCutoff converts the cutoff radius into the initial cull distance.
func squaredCutoff[S point.Scalar](r S) S {
	if r <= 0 {
		return 0
	}
	return r * r
}

// normalizeBudget maps "negative = unbounded" onto a plain countdown.
func normalizeBudget(budget int) int {
	if budget < 0 {
		return math.MaxInt
	}
	return budget
}
