package icemeta

import (
	"log/slog"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	specID           int32
}

// Option configures Table constructor behavior.
//
// Today options primarily exist to avoid exploding the API surface
// (e.g. logger-specific constructor variants).
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring
// rewrite passes. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &icemeta.BasicMetricsCollector{}
//	t, _ := icemeta.Open(ctx, store, icemeta.WithMetricsCollector(metrics))
//	// ... rewrite ...
//	stats := metrics.GetStats()
//	fmt.Printf("Rewrites: %d, Avg latency: %dns\n", stats.RewriteCount, stats.RewriteAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for rewrite passes.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := icemeta.NewJSONLogger(slog.LevelInfo)
//	t, _ := icemeta.Open(ctx, store, icemeta.WithLogger(logger))
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

// WithSpecID sets the partition spec ID recorded on manifests written by
// rewrite passes. Defaults to 0, the unpartitioned spec.
func WithSpecID(id int32) Option {
	return func(o *options) {
		o.specID = id
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
