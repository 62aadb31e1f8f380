package dset

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
//	    addRowsCounter  prometheus.Counter
//	    defragHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordAddRows(num uint64, duration time.Duration, err error) {
//	    p.addRowsCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordAddRows is called after each row growth operation.
	// num is the number of rows requested, duration is the total time
	// taken, err is nil if successful.
	RecordAddRows(num uint64, duration time.Duration, err error)

	// RecordAddColumn is called after each column creation.
	RecordAddColumn(duration time.Duration, err error)

	// RecordCopy is called after each deep copy.
	RecordCopy(duration time.Duration, err error)

	// RecordDelete is called after each dataset deletion.
	RecordDelete(duration time.Duration, err error)

	// RecordDefrag is called after each compaction run.
	// reclaimed is the number of bytes returned to the allocator (0 on error).
	RecordDefrag(reclaimed int64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAddRows(uint64, time.Duration, error) {}
func (NoopMetricsCollector) RecordAddColumn(time.Duration, error)       {}
func (NoopMetricsCollector) RecordCopy(time.Duration, error)            {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)          {}
func (NoopMetricsCollector) RecordDefrag(int64, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddRowsCount      atomic.Int64
	AddRowsErrors     atomic.Int64
	AddRowsTotalNanos atomic.Int64
	RowsAdded         atomic.Int64
	AddColumnCount    atomic.Int64
	AddColumnErrors   atomic.Int64
	CopyCount         atomic.Int64
	CopyErrors        atomic.Int64
	DeleteCount       atomic.Int64
	DeleteErrors      atomic.Int64
	DefragCount       atomic.Int64
	DefragErrors      atomic.Int64
	DefragTotalNanos  atomic.Int64
	BytesReclaimed    atomic.Int64
}

// RecordAddRows implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAddRows(num uint64, duration time.Duration, err error) {
	b.AddRowsCount.Add(1)
	b.AddRowsTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddRowsErrors.Add(1)
		return
	}
	b.RowsAdded.Add(int64(num))
}

// RecordAddColumn implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAddColumn(duration time.Duration, err error) {
	b.AddColumnCount.Add(1)
	if err != nil {
		b.AddColumnErrors.Add(1)
	}
}

// RecordCopy implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCopy(duration time.Duration, err error) {
	b.CopyCount.Add(1)
	if err != nil {
		b.CopyErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordDefrag implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDefrag(reclaimed int64, duration time.Duration, err error) {
	b.DefragCount.Add(1)
	b.DefragTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.DefragErrors.Add(1)
		return
	}
	b.BytesReclaimed.Add(reclaimed)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddRowsCount:    b.AddRowsCount.Load(),
		AddRowsErrors:   b.AddRowsErrors.Load(),
		AddRowsAvgNanos: b.getAvgAddRowsNanos(),
		RowsAdded:       b.RowsAdded.Load(),
		AddColumnCount:  b.AddColumnCount.Load(),
		AddColumnErrors: b.AddColumnErrors.Load(),
		CopyCount:       b.CopyCount.Load(),
		CopyErrors:      b.CopyErrors.Load(),
		DeleteCount:     b.DeleteCount.Load(),
		DeleteErrors:    b.DeleteErrors.Load(),
		DefragCount:     b.DefragCount.Load(),
		DefragErrors:    b.DefragErrors.Load(),
		DefragAvgNanos:  b.getAvgDefragNanos(),
		BytesReclaimed:  b.BytesReclaimed.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgAddRowsNanos() int64 {
	count := b.AddRowsCount.Load()
	if count == 0 {
		return 0
	}
	return b.AddRowsTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgDefragNanos() int64 {
	count := b.DefragCount.Load()
	if count == 0 {
		return 0
	}
	return b.DefragTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddRowsCount    int64
	AddRowsErrors   int64
	AddRowsAvgNanos int64
	RowsAdded       int64
	AddColumnCount  int64
	AddColumnErrors int64
	CopyCount       int64
	CopyErrors      int64
	DeleteCount     int64
	DeleteErrors    int64
	DefragCount     int64
	DefragErrors    int64
	DefragAvgNanos  int64
	BytesReclaimed  int64
}
