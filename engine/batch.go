package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/kdgo/kdtree"
	"github.com/hupe1980/kdgo/point"
)

// QueryFunc answers one query with the given scratch. The facade binds
// this to the tree and strategy selected for the batch.
type QueryFunc[S point.Scalar] func(q []S, sc *kdtree.Scratch[S]) (int32, S, error)

// BatchResult is one query's outcome: the id of the closest point (or
// kdtree.None) and its squared distance.
type BatchResult[S point.Scalar] struct {
	ID    int32
	Dist2 S
}

// RunBatch answers every query using up to workers goroutines, each with
// a private Scratch from newScratch, and returns the results in input
// order. workers <= 0 selects GOMAXPROCS. The first query error cancels
// the batch and is returned; queries are never split across goroutines.
func RunBatch[S point.Scalar](ctx context.Context, workers int, queries [][]S, newScratch func() *kdtree.Scratch[S], run QueryFunc[S]) ([]BatchResult[S], error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(queries) {
		workers = len(queries)
	}
	results := make([]BatchResult[S], len(queries))
	if len(queries) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)

	// Workers pull the next query index from a shared counter, so a few
	// expensive queries cannot stall a whole chunk.
	var next atomic.Int64

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			sc := newScratch()
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := int(next.Add(1)) - 1
				if i >= len(queries) {
					return nil
				}

				id, dist2, err := run(queries[i], sc)
				if err != nil {
					return fmt.Errorf("query %d: %w", i, err)
				}
				results[i] = BatchResult[S]{ID: id, Dist2: dist2}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
