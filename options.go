package dset

import (
	"log/slog"
)

// defaultGrowthFactor is the capacity multiplier applied when a column
// buffer must grow beyond its allocated row capacity.
const defaultGrowthFactor = 2.0

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	memoryLimit      int64
	growthFactor     float64
}

// Option configures Registry behavior.
type Option func(*options)

// WithMemoryLimit sets a hard budget in bytes for all column buffers and
// string pools owned by the registry's datasets. Operations whose
// allocations would exceed the budget fail with ErrAllocation and roll
// back. A limit of 0 (the default) disables enforcement; usage is still
// tracked and available via Registry.MemoryUsage.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithGrowthFactor sets the capacity multiplier used when row growth
// exhausts a column's allocated capacity. Larger factors trade memory
// slack for fewer buffer relocations; Defrag reclaims the slack on
// demand. Values <= 1 are ignored and the default (2.0) is kept.
func WithGrowthFactor(factor float64) Option {
	return func(o *options) {
		if factor > 1 {
			o.growthFactor = factor
		}
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &dset.BasicMetricsCollector{}
//	reg := dset.NewRegistry(dset.WithMetricsCollector(metrics))
//	// ... use reg ...
//	stats := metrics.GetStats()
//	fmt.Printf("AddRows: %d, Avg latency: %dns\n", stats.AddRowsCount, stats.AddRowsAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := dset.NewJSONLogger(slog.LevelInfo)
//	reg := dset.NewRegistry(dset.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		growthFactor:     defaultGrowthFactor,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
