package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/kdgo/kdtree"
	"github.com/hupe1980/kdgo/point"
)

// Task is one unit of work. It receives the Scratch owned by the worker
// executing it and must not retain the Scratch beyond the call.
type Task[S point.Scalar] func(sc *kdtree.Scratch[S])

// Pool manages a fixed set of goroutines for parallel queries. Each
// worker owns one Scratch for its lifetime, so query state never crosses
// goroutines and no per-task allocation is needed. A long-lived Pool
// eliminates the overhead of spawning goroutines per batch under high
// query load.
type Pool[S point.Scalar] struct {
	numWorkers int
	workCh     chan Task[S]
	stopCh     chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	submitMu   sync.RWMutex
}

// NewPool creates a pool with numWorkers goroutines, each holding a
// Scratch from newScratch. numWorkers <= 0 selects GOMAXPROCS.
func NewPool[S point.Scalar](numWorkers int, newScratch func() *kdtree.Scratch[S]) *Pool[S] {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool[S]{
		numWorkers: numWorkers,
		workCh:     make(chan Task[S], numWorkers*2), // 2x buffer for pipelining
		stopCh:     make(chan struct{}),
	}

	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.worker(newScratch())
	}

	return p
}

// NumWorkers returns the worker count.
func (p *Pool[S]) NumWorkers() int { return p.numWorkers }

// worker processes tasks with its private scratch.
func (p *Pool[S]) worker(sc *kdtree.Scratch[S]) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			// Drain remaining work before exiting.
			for {
				select {
				case task, ok := <-p.workCh:
					if !ok {
						return
					}
					task(sc)
				default:
					return
				}
			}
		case task, ok := <-p.workCh:
			if !ok {
				return
			}
			task(sc)
		}
	}
}

// Submit enqueues one task and returns as soon as it is accepted.
// It returns ErrPoolClosed after Close and the context error if ctx ends
// while the queue is full.
func (p *Pool[S]) Submit(ctx context.Context, task Task[S]) error {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}

	select {
	case p.workCh <- task:
		return nil
	case <-p.stopCh:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the pool down gracefully: already-queued tasks finish,
// further Submit calls fail. Close is idempotent.
func (p *Pool[S]) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	p.submitMu.Lock()
	close(p.stopCh)
	close(p.workCh)
	p.submitMu.Unlock()

	p.wg.Wait()
}

// RunBatch answers every query on the pool's workers and returns the
// results in input order. The first query error fails the batch;
// queries not yet submitted at that point are skipped.
func (p *Pool[S]) RunBatch(ctx context.Context, queries [][]S, run QueryFunc[S]) ([]BatchResult[S], error) {
	results := make([]BatchResult[S], len(queries))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	record := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	for i, q := range queries {
		if failed() {
			break
		}

		i, q := i, q
		wg.Add(1)
		err := p.Submit(ctx, func(sc *kdtree.Scratch[S]) {
			defer wg.Done()
			id, dist2, err := run(q, sc)
			if err != nil {
				record(fmt.Errorf("query %d: %w", i, err))
				return
			}
			results[i] = BatchResult[S]{ID: id, Dist2: dist2}
		})
		if err != nil {
			wg.Done()
			record(err)
			break
		}
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
