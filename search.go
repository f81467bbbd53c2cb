package kdgo

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/kdgo/engine"
	"github.com/hupe1980/kdgo/kdtree"
	"github.com/hupe1980/kdgo/point"
)

// Match is the result of one query: the id of the closest indexed point
// and its squared distance to the query. When no point lies within the
// cutoff radius, Found reports false.
type Match[S point.Scalar] struct {
	ID    int32
	Dist2 S
}

// Found reports whether a point was found within the cutoff radius.
func (m Match[S]) Found() bool { return m.ID != kdtree.None }

// Distance returns the Euclidean distance to the matched point.
func (m Match[S]) Distance() S { return point.Sqrt(m.Dist2) }

type searchOptions[S point.Scalar] struct {
	params   kdtree.SearchParams[S]
	strategy kdtree.Strategy
	exclude  *roaring.Bitmap
}

// SearchOption configures one query. The scalar type is inferred from
// the query, so call sites read kdgo.WithCutoff(2.5) without type
// arguments.
type SearchOption[S point.Scalar] func(*searchOptions[S])

// WithCutoff bounds the search radius: only points strictly closer than
// radius are candidates. A query with no candidate inside the radius
// yields a Match with Found() == false.
func WithCutoff[S point.Scalar](radius S) SearchOption[S] {
	return func(o *searchOptions[S]) {
		o.params.CutoffRadius = radius
	}
}

// WithBudget caps how many far branches the traversal may resume. With a
// small budget the result can be approximate; budget 0 inspects only the
// leaf reached by direct descent. Negative means unbounded, the default.
func WithBudget[S point.Scalar](budget int) SearchOption[S] {
	return func(o *searchOptions[S]) {
		o.params.FarNodeBudget = budget
	}
}

// WithStrategy overrides the index's default traversal strategy for this
// query.
func WithStrategy[S point.Scalar](s kdtree.Strategy) SearchOption[S] {
	return func(o *searchOptions[S]) {
		o.strategy = s
	}
}

// WithFilter restricts candidates to ids fn accepts. The filter runs
// once per primitive encountered in a leaf bucket, so it must be cheap
// and must not block.
func WithFilter[S point.Scalar](fn func(id int32) bool) SearchOption[S] {
	return func(o *searchOptions[S]) {
		o.params.Filter = fn
	}
}

// WithExclude skips the ids in the bitmap. Combines with WithFilter; a
// candidate must pass both.
func WithExclude[S point.Scalar](ex *roaring.Bitmap) SearchOption[S] {
	return func(o *searchOptions[S]) {
		o.exclude = ex
	}
}

// resolve computes the effective strategy and parameters of one query.
// The zero-option path stays allocation free; only queries that pass
// options build the intermediate struct and filter closures.
func (db *KDGo[S]) resolve(optFns []SearchOption[S]) (kdtree.Strategy, kdtree.SearchParams[S], error) {
	params := kdtree.DefaultSearchParams[S]()
	if len(optFns) == 0 {
		return db.strategy, params, nil
	}

	o := searchOptions[S]{params: params, strategy: db.strategy}
	for _, fn := range optFns {
		fn(&o)
	}
	if !o.strategy.Valid() {
		return 0, params, fmt.Errorf("%w: %s", ErrInvalidStrategy, o.strategy)
	}
	if o.exclude != nil && !o.exclude.IsEmpty() {
		o.params.Filter = bindExclude(o.exclude, o.params.Filter)
	}
	return o.strategy, o.params, nil
}

func bindExclude(ex *roaring.Bitmap, next func(id int32) bool) func(id int32) bool {
	return func(id int32) bool {
		if ex.Contains(uint32(id)) {
			return false
		}
		return next == nil || next(id)
	}
}

// find dispatches one query to the tree and traversal the strategy
// names.
func (db *KDGo[S]) find(q []S, strategy kdtree.Strategy, params kdtree.SearchParams[S], sc *kdtree.Scratch[S]) (int32, S, error) {
	switch strategy {
	case kdtree.StrategyDenseStack:
		return db.dense.FindClosest(q, params, sc)
	case kdtree.StrategySpatialStack:
		return db.spatial.FindClosest(q, params, sc)
	case kdtree.StrategyDenseStackFree:
		return db.dense.FindClosestStackFree(q, params, sc)
	case kdtree.StrategySpatialStackFree:
		return db.spatial.FindClosestStackFree(q, params, sc)
	default:
		return kdtree.None, 0, fmt.Errorf("%w: %s", ErrInvalidStrategy, strategy)
	}
}

// FindClosest returns the indexed point closest to q, or a Match with
// Found() == false when no point lies within the cutoff radius. The
// default configuration is exact and allocation free.
func (db *KDGo[S]) FindClosest(q []S, optFns ...SearchOption[S]) (Match[S], error) {
	none := Match[S]{ID: kdtree.None}
	if db.closed.Load() {
		return none, ErrClosed
	}
	if len(q) != db.dims {
		return none, &ErrDimensionMismatch{Expected: db.dims, Actual: len(q)}
	}
	strategy, params, err := db.resolve(optFns)
	if err != nil {
		return none, err
	}

	var start time.Time
	if db.metrics != nil {
		start = time.Now()
	}

	sc := db.scratch.Get().(*kdtree.Scratch[S])
	sc.Stats.Reset()
	id, dist2, err := db.find(q, strategy, params, sc)
	db.stats.Collect(sc.Stats)
	db.scratch.Put(sc)

	if db.metrics != nil {
		db.metrics.RecordSearch(time.Since(start), err)
	}
	if err != nil {
		// Logging stays off the success path so it costs nothing there.
		db.logger.Warn("query aborted", "strategy", strategy.String(), "error", err)
		return none, err
	}
	return Match[S]{ID: id, Dist2: dist2}, nil
}

// FindClosestBatch answers every query and returns matches in input
// order. Queries run in parallel on the configured workers, each with
// its own scratch; the first error cancels the batch.
func (db *KDGo[S]) FindClosestBatch(ctx context.Context, queries [][]S, optFns ...SearchOption[S]) ([]Match[S], error) {
	if db.closed.Load() {
		return nil, ErrClosed
	}
	for i, q := range queries {
		if len(q) != db.dims {
			return nil, fmt.Errorf("query %d: %w", i, &ErrDimensionMismatch{Expected: db.dims, Actual: len(q)})
		}
	}
	strategy, params, err := db.resolve(optFns)
	if err != nil {
		return nil, err
	}

	var start time.Time
	if db.metrics != nil {
		start = time.Now()
	}

	run := func(q []S, sc *kdtree.Scratch[S]) (int32, S, error) {
		sc.Stats.Reset()
		id, dist2, err := db.find(q, strategy, params, sc)
		db.stats.Collect(sc.Stats)
		return id, dist2, err
	}

	var results []engine.BatchResult[S]
	if db.pool != nil {
		results, err = db.pool.RunBatch(ctx, queries, run)
	} else {
		results, err = engine.RunBatch(ctx, db.workers, queries, db.newScratch, run)
	}

	if db.metrics != nil {
		db.metrics.RecordBatch(len(queries), time.Since(start), err)
	}
	db.logger.LogBatch(ctx, len(queries), err)
	if err != nil {
		return nil, err
	}

	matches := make([]Match[S], len(results))
	for i, r := range results {
		matches[i] = Match[S]{ID: r.ID, Dist2: r.Dist2}
	}
	return matches, nil
}
