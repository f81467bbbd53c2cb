package kdgo

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/kdgo/engine"
	"github.com/hupe1980/kdgo/kdtree"
	"github.com/hupe1980/kdgo/persistence"
	"github.com/hupe1980/kdgo/point"
	"github.com/hupe1980/kdgo/resource"
)

// KDGo is an immutable nearest-neighbor index over a fixed set of
// points. Building it constructs both tree layouts over one shared point
// array, so any of the four traversal strategies can be chosen per
// query. All query methods are safe for concurrent use.
type KDGo[S point.Scalar] struct {
	dense   *kdtree.Dense[S]
	spatial *kdtree.Spatial[S]
	dims    int

	strategy   kdtree.Strategy
	stackDepth int
	workers    int

	scratch sync.Pool
	pool    *engine.Pool[S]

	stats   kdtree.StatsCollector
	metrics MetricsCollector
	logger  *Logger
	comp    persistence.Compression
	rc      *resource.Controller

	closed atomic.Bool
}

// New builds an index over flat row-major data with len(data)/dims
// points. The data is referenced, not copied; callers must not mutate it
// afterwards. Point ids are the row positions in data.
func New[S point.Scalar](data []S, dims int, optFns ...Option) (*KDGo[S], error) {
	o, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}

	leaf := func(b *kdtree.BuildOptions) { b.LeafSize = o.leafSize }
	dense, err := kdtree.BuildDense(data, dims, leaf)
	if err != nil {
		o.logger.LogBuild(context.Background(), 0, dims, err)
		return nil, err
	}
	spatial, err := kdtree.BuildSpatial(data, dims, leaf)
	if err != nil {
		o.logger.LogBuild(context.Background(), 0, dims, err)
		return nil, err
	}

	db := newIndex(dense, spatial, o)
	db.logger.LogBuild(context.Background(), db.Len(), dims, nil)
	return db, nil
}

// newIndex wires a built tree pair to its runtime: scratch pool, worker
// pool, and observability hooks.
func newIndex[S point.Scalar](dense *kdtree.Dense[S], spatial *kdtree.Spatial[S], o options) *KDGo[S] {
	db := &KDGo[S]{
		dense:      dense,
		spatial:    spatial,
		dims:       dense.Dims(),
		strategy:   o.strategy,
		stackDepth: o.stackDepth,
		workers:    o.workers,
		stats:      o.stats,
		metrics:    o.metrics,
		logger:     o.logger,
		comp:       o.compression,
		rc:         o.controller,
	}
	db.scratch.New = func() any { return db.newScratch() }
	if o.workerPool {
		db.pool = engine.NewPool(o.workers, db.newScratch)
	}
	return db
}

// newScratch sizes per-query state so no configuration-free query can
// overflow: the stack bound covers the deeper of the two trees, with
// kdtree.DefaultStackDepth as the floor.
func (db *KDGo[S]) newScratch() *kdtree.Scratch[S] {
	depth := db.stackDepth
	if depth <= 0 {
		depth = kdtree.DefaultStackDepth
		if d := db.dense.Depth(); d > depth {
			depth = d
		}
		if d := db.spatial.Depth(); d > depth {
			depth = d
		}
	}
	return kdtree.NewScratch[S](db.dims, depth)
}

// Len returns the number of indexed points.
func (db *KDGo[S]) Len() int { return db.dense.Len() }

// Dims returns the dimensionality of the indexed points.
func (db *KDGo[S]) Dims() int { return db.dims }

// Strategy returns the default traversal strategy.
func (db *KDGo[S]) Strategy() kdtree.Strategy { return db.strategy }

// PointAt returns the coordinates of the point with the given id. The
// returned slice aliases the index data and must not be modified.
func (db *KDGo[S]) PointAt(id int32) []S { return db.dense.PointAt(id) }

// Stats describes the shape of a built index.
type Stats struct {
	Points       int
	Dims         int
	Strategy     kdtree.Strategy
	DenseNodes   int
	DenseDepth   int
	SpatialNodes int
	SpatialDepth int
}

// Stats returns the shape of the index.
func (db *KDGo[S]) Stats() Stats {
	return Stats{
		Points:       db.dense.Len(),
		Dims:         db.dims,
		Strategy:     db.strategy,
		DenseNodes:   len(db.dense.Nodes()),
		DenseDepth:   db.dense.Depth(),
		SpatialNodes: len(db.spatial.Nodes()),
		SpatialDepth: db.spatial.Depth(),
	}
}
