package icemeta

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    rewriteCounter   prometheus.Counter
//	    rewriteHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordRewrite(duration time.Duration, err error) {
//	    p.rewriteCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordRewrite is called after each rewrite pass.
	// duration is the total time taken, err is nil if successful.
	RecordRewrite(duration time.Duration, err error)

	// RecordManifestsWritten is called once per successful rewrite with
	// the number of manifest objects written (carried manifests excluded).
	RecordManifestsWritten(count int)

	// RecordEntries is called once per successful rewrite with the
	// number of entries written into new manifests and the number
	// dropped by removal sets.
	RecordEntries(written, dropped int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRewrite(time.Duration, error) {}
func (NoopMetricsCollector) RecordManifestsWritten(int)         {}
func (NoopMetricsCollector) RecordEntries(int, int)             {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	RewriteCount      atomic.Int64
	RewriteErrors     atomic.Int64
	RewriteTotalNanos atomic.Int64
	ManifestsWritten  atomic.Int64
	EntriesWritten    atomic.Int64
	EntriesDropped    atomic.Int64
}

// RecordRewrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRewrite(duration time.Duration, err error) {
	b.RewriteCount.Add(1)
	b.RewriteTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RewriteErrors.Add(1)
	}
}

// RecordManifestsWritten implements MetricsCollector.
func (b *BasicMetricsCollector) RecordManifestsWritten(count int) {
	b.ManifestsWritten.Add(int64(count))
}

// RecordEntries implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEntries(written, dropped int) {
	b.EntriesWritten.Add(int64(written))
	b.EntriesDropped.Add(int64(dropped))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RewriteCount:     b.RewriteCount.Load(),
		RewriteErrors:    b.RewriteErrors.Load(),
		RewriteAvgNanos:  b.getAvgRewriteNanos(),
		ManifestsWritten: b.ManifestsWritten.Load(),
		EntriesWritten:   b.EntriesWritten.Load(),
		EntriesDropped:   b.EntriesDropped.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgRewriteNanos() int64 {
	count := b.RewriteCount.Load()
	if count == 0 {
		return 0
	}
	return b.RewriteTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RewriteCount     int64
	RewriteErrors    int64
	RewriteAvgNanos  int64
	ManifestsWritten int64
	EntriesWritten   int64
	EntriesDropped   int64
}
