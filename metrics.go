package hcache

import (
	"sync/atomic"
	"time"
)

// FetchOutcome classifies a Fetch call.
type FetchOutcome uint8

const (
	// FetchHit returned an email.
	FetchHit FetchOutcome = iota
	// FetchMiss found no record.
	FetchMiss
	// FetchRejected found a record from another layout or UIDVALIDITY.
	FetchRejected
	// FetchCorrupt found a record that could not be decoded.
	FetchCorrupt
	// FetchError failed in the backend.
	FetchError
)

func (o FetchOutcome) String() string {
	switch o {
	case FetchHit:
		return "hit"
	case FetchMiss:
		return "miss"
	case FetchRejected:
		return "rejected"
	case FetchCorrupt:
		return "corrupt"
	case FetchError:
		return "error"
	default:
		return "unknown"
	}
}

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    fetches *prometheus.CounterVec
//	}
//
//	func (p *PrometheusCollector) RecordFetch(outcome hcache.FetchOutcome, d time.Duration) {
//	    p.fetches.WithLabelValues(outcome.String()).Inc()
//	}
type MetricsCollector interface {
	// RecordOpen is called after each Open, err is nil if successful.
	RecordOpen(duration time.Duration, err error)

	// RecordFetch is called after each Fetch.
	RecordFetch(outcome FetchOutcome, duration time.Duration)

	// RecordStore is called after each Store. bytes is the size of the
	// record written, compression included.
	RecordStore(bytes int, duration time.Duration, err error)

	// RecordDelete is called after each Delete.
	RecordDelete(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOpen(time.Duration, error)         {}
func (NoopMetricsCollector) RecordFetch(FetchOutcome, time.Duration) {}
func (NoopMetricsCollector) RecordStore(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)       {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OpenCount       atomic.Int64
	OpenErrors      atomic.Int64
	FetchHits       atomic.Int64
	FetchMisses     atomic.Int64
	FetchRejected   atomic.Int64
	FetchCorrupt    atomic.Int64
	FetchErrors     atomic.Int64
	FetchTotalNanos atomic.Int64
	StoreCount      atomic.Int64
	StoreErrors     atomic.Int64
	StoreBytes      atomic.Int64
	StoreTotalNanos atomic.Int64
	DeleteCount     atomic.Int64
	DeleteErrors    atomic.Int64
}

// RecordOpen implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOpen(duration time.Duration, err error) {
	b.OpenCount.Add(1)
	if err != nil {
		b.OpenErrors.Add(1)
	}
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(outcome FetchOutcome, duration time.Duration) {
	b.FetchTotalNanos.Add(duration.Nanoseconds())
	switch outcome {
	case FetchHit:
		b.FetchHits.Add(1)
	case FetchMiss:
		b.FetchMisses.Add(1)
	case FetchRejected:
		b.FetchRejected.Add(1)
	case FetchCorrupt:
		b.FetchCorrupt.Add(1)
	default:
		b.FetchErrors.Add(1)
	}
}

// RecordStore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStore(bytes int, duration time.Duration, err error) {
	b.StoreCount.Add(1)
	b.StoreTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.StoreErrors.Add(1)
		return
	}
	b.StoreBytes.Add(int64(bytes))
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		OpenCount:     b.OpenCount.Load(),
		OpenErrors:    b.OpenErrors.Load(),
		Hits:          b.FetchHits.Load(),
		Misses:        b.FetchMisses.Load(),
		Rejected:      b.FetchRejected.Load(),
		Corrupt:       b.FetchCorrupt.Load(),
		FetchErrors:   b.FetchErrors.Load(),
		FetchAvgNanos: b.getAvgFetchNanos(),
		StoreCount:    b.StoreCount.Load(),
		StoreErrors:   b.StoreErrors.Load(),
		StoreBytes:    b.StoreBytes.Load(),
		StoreAvgNanos: b.getAvgStoreNanos(),
		DeleteCount:   b.DeleteCount.Load(),
		DeleteErrors:  b.DeleteErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgFetchNanos() int64 {
	count := b.FetchHits.Load() + b.FetchMisses.Load() + b.FetchRejected.Load() +
		b.FetchCorrupt.Load() + b.FetchErrors.Load()
	if count == 0 {
		return 0
	}
	return b.FetchTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgStoreNanos() int64 {
	count := b.StoreCount.Load()
	if count == 0 {
		return 0
	}
	return b.StoreTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	OpenCount     int64
	OpenErrors    int64
	Hits          int64
	Misses        int64
	Rejected      int64
	Corrupt       int64
	FetchErrors   int64
	FetchAvgNanos int64
	StoreCount    int64
	StoreErrors   int64
	StoreBytes    int64
	StoreAvgNanos int64
	DeleteCount   int64
	DeleteErrors  int64
}
