package kdtree

import "sync/atomic"

// TraversalStats are the diagnostic counters of one or more queries.
// Traversals accumulate them into their Scratch; callers decide when to
// reset or flush them.
type TraversalStats struct {
	// NodeVisits counts tree nodes entered.
	NodeVisits int64
	// PrimTests counts primitives whose true distance was evaluated.
	PrimTests int64
	// FarResumes counts far branches actually resumed (budget consumption).
	FarResumes int64
	// Overflows counts queries aborted by ErrStackOverflow.
	Overflows int64
}

// Reset zeroes all counters.
func (s *TraversalStats) Reset() { *s = TraversalStats{} }

// Add accumulates o into s.
func (s *TraversalStats) Add(o TraversalStats) {
	s.NodeVisits += o.NodeVisits
	s.PrimTests += o.PrimTests
	s.FarResumes += o.FarResumes
	s.Overflows += o.Overflows
}

// StatsCollector receives per-query traversal counters. Implementations
// must be safe for concurrent use by many workers; accumulation is
// associative and order independent, so no further coordination is
// required. Implement this interface to integrate with monitoring systems
// like Prometheus.
type StatsCollector interface {
	// Collect accumulates one query's counters.
	Collect(s TraversalStats)
}

// NoopStatsCollector discards all counters. Use this when diagnostics are
// not needed; it is the default.
type NoopStatsCollector struct{}

func (NoopStatsCollector) Collect(TraversalStats) {}

// AtomicStatsCollector provides simple in-memory diagnostics without
// external dependencies. All fields are updated atomically and may be
// read while queries are in flight.
type AtomicStatsCollector struct {
	Queries    atomic.Int64
	NodeVisits atomic.Int64
	PrimTests  atomic.Int64
	FarResumes atomic.Int64
	Overflows  atomic.Int64
}

// Collect implements StatsCollector.
func (c *AtomicStatsCollector) Collect(s TraversalStats) {
	c.Queries.Add(1)
	c.NodeVisits.Add(s.NodeVisits)
	c.PrimTests.Add(s.PrimTests)
	c.FarResumes.Add(s.FarResumes)
	c.Overflows.Add(s.Overflows)
}

// StatsSnapshot is a point-in-time copy of an AtomicStatsCollector.
type StatsSnapshot struct {
	Queries    int64
	NodeVisits int64
	PrimTests  int64
	FarResumes int64
	Overflows  int64
}

// Snapshot returns the current counter values.
func (c *AtomicStatsCollector) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries:    c.Queries.Load(),
		NodeVisits: c.NodeVisits.Load(),
		PrimTests:  c.PrimTests.Load(),
		FarResumes: c.FarResumes.Load(),
		Overflows:  c.Overflows.Load(),
	}
}
