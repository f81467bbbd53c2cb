package kdgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus. For per-traversal counters (nodes visited, primitives
// tested) see kdtree.StatsCollector and WithStatsCollector.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    searchHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordSearch(duration time.Duration, err error) {
//	    p.searchHistogram.Observe(duration.Seconds())
//	    // ... record error state, etc.
//	}
type MetricsCollector interface {
	// RecordSearch is called after each single query.
	// duration is the total time taken, err is nil if successful.
	RecordSearch(duration time.Duration, err error)

	// RecordBatch is called after each batch query.
	// count is the number of queries attempted, duration is the total
	// time taken, err is nil if all queries succeeded.
	RecordBatch(count int, duration time.Duration, err error)

	// RecordSnapshotSave is called after each snapshot save.
	RecordSnapshotSave(duration time.Duration, err error)

	// RecordSnapshotLoad is called after each snapshot load.
	RecordSnapshotLoad(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSearch(time.Duration, error)       {}
func (NoopMetricsCollector) RecordBatch(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordSnapshotSave(time.Duration, error) {}
func (NoopMetricsCollector) RecordSnapshotLoad(time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SearchCount        atomic.Int64
	SearchErrors       atomic.Int64
	SearchTotalNanos   atomic.Int64
	BatchCount         atomic.Int64
	BatchQueries       atomic.Int64
	BatchErrors        atomic.Int64
	BatchTotalNanos    atomic.Int64
	SnapshotSaveCount  atomic.Int64
	SnapshotSaveErrors atomic.Int64
	SnapshotLoadCount  atomic.Int64
	SnapshotLoadErrors atomic.Int64
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(count int, duration time.Duration, err error) {
	b.BatchCount.Add(1)
	b.BatchQueries.Add(int64(count))
	b.BatchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BatchErrors.Add(1)
	}
}

// RecordSnapshotSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotSave(duration time.Duration, err error) {
	b.SnapshotSaveCount.Add(1)
	if err != nil {
		b.SnapshotSaveErrors.Add(1)
	}
}

// RecordSnapshotLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotLoad(duration time.Duration, err error) {
	b.SnapshotLoadCount.Add(1)
	if err != nil {
		b.SnapshotLoadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SearchCount:        b.SearchCount.Load(),
		SearchErrors:       b.SearchErrors.Load(),
		SearchAvgNanos:     avgNanos(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		BatchCount:         b.BatchCount.Load(),
		BatchQueries:       b.BatchQueries.Load(),
		BatchErrors:        b.BatchErrors.Load(),
		BatchAvgNanos:      avgNanos(b.BatchTotalNanos.Load(), b.BatchCount.Load()),
		SnapshotSaveCount:  b.SnapshotSaveCount.Load(),
		SnapshotSaveErrors: b.SnapshotSaveErrors.Load(),
		SnapshotLoadCount:  b.SnapshotLoadCount.Load(),
		SnapshotLoadErrors: b.SnapshotLoadErrors.Load(),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SearchCount        int64
	SearchErrors       int64
	SearchAvgNanos     int64
	BatchCount         int64
	BatchQueries       int64
	BatchErrors        int64
	BatchAvgNanos      int64
	SnapshotSaveCount  int64
	SnapshotSaveErrors int64
	SnapshotLoadCount  int64
	SnapshotLoadErrors int64
}
