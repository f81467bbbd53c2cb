package kdgo

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/hupe1980/kdgo/kdtree"
	"github.com/hupe1980/kdgo/persistence"
	"github.com/hupe1980/kdgo/resource"
)

type options struct {
	leafSize    int
	stackDepth  int
	strategy    kdtree.Strategy
	workers     int
	workerPool  bool
	compression persistence.Compression
	stats       kdtree.StatsCollector
	metrics     MetricsCollector
	logger      *Logger
	controller  *resource.Controller
}

func defaultOptions() options {
	return options{
		leafSize:    kdtree.DefaultBuildOptions.LeafSize,
		strategy:    kdtree.StrategyDenseStack,
		workers:     runtime.GOMAXPROCS(0),
		compression: persistence.CompressionNone,
		stats:       kdtree.NoopStatsCollector{},
		logger:      NoopLogger(),
	}
}

func applyOptions(optFns []Option) (options, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	if o.leafSize <= 0 {
		return o, fmt.Errorf("leaf size must be positive, got %d", o.leafSize)
	}
	if o.stackDepth < 0 {
		return o, fmt.Errorf("stack depth must not be negative, got %d", o.stackDepth)
	}
	if !o.strategy.Valid() {
		return o, fmt.Errorf("%w: %s", ErrInvalidStrategy, o.strategy)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if !o.compression.Valid() {
		return o, fmt.Errorf("unknown compression codec: %s", o.compression)
	}
	if o.stats == nil {
		o.stats = kdtree.NoopStatsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o, nil
}

// Option configures index construction and load behavior.
type Option func(*options)

// WithLeafSize sets the leaf bucket capacity of both trees. Smaller
// leaves mean deeper trees and fewer distance evaluations per leaf;
// larger leaves trade traversal work for sequential scanning, which can
// win at low dimensionality. The default is 8.
func WithLeafSize(n int) Option {
	return func(o *options) {
		o.leafSize = n
	}
}

// WithStackDepth bounds how many far branches a stack-bearing query may
// suspend. By default the bound is derived from the built trees so
// overflow is impossible; setting it lower caps per-query memory and
// turns pathologically deep traversals into ErrStackOverflow instead.
func WithStackDepth(depth int) Option {
	return func(o *options) {
		o.stackDepth = depth
	}
}

// WithDefaultStrategy sets the traversal strategy used when a query does
// not choose one per call. The default is kdtree.StrategyDenseStack.
func WithDefaultStrategy(s kdtree.Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithWorkers sets the parallelism of batch queries. Non-positive values
// select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithWorkerPool keeps a persistent worker pool alive for the lifetime
// of the index instead of spawning goroutines per batch. Worth it when
// batches are frequent and small; Close releases the pool.
func WithWorkerPool() Option {
	return func(o *options) {
		o.workerPool = true
	}
}

// WithSnapshotCompression sets the codec applied to snapshot sections by
// SaveSnapshot and SaveToBlob. The default is no compression.
func WithSnapshotCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithStatsCollector wires a collector for per-query traversal counters.
// Pass nil to disable collection.
//
// Example with kdtree.AtomicStatsCollector:
//
//	stats := &kdtree.AtomicStatsCollector{}
//	db, _ := kdgo.New(data, 3, kdgo.WithStatsCollector(stats))
//	// ... run queries ...
//	fmt.Println(stats.Snapshot().NodeVisits)
func WithStatsCollector(c kdtree.StatsCollector) Option {
	return func(o *options) {
		o.stats = c
	}
}

// WithMetricsCollector wires a collector for operation-level metrics
// (latency, error counts). Pass nil to disable metrics collection.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLogger sets the structured logger. Pass nil to disable logging.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel is a convenience that installs a text logger to stderr at
// the given level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController subjects snapshot IO and background work to a
// shared resource budget. Useful when many indexes live in one process.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}
