// Package telemetry is a from-scratch port of
// original_source/src/telemetry/__init__.py's TelemetryStream: a
// minute-bucketed record of method latencies and errors, queryable as a
// stream and summarized into min/max aggregates.
//
// The source's @capture_telemetry decorator wrapped every async method
// call; Go has no equivalent, so Timed is an explicit wrapper called at
// each of those call sites instead.
package telemetry

import (
	"context"
	"iter"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// MethodLatency is one recorded call duration for a named method.
type MethodLatency struct {
	Method  string
	Latency time.Duration
}

// MethodError is one recorded failure for a named method.
type MethodError struct {
	Method string
	Error  string
}

// Bucket holds every latency and error recorded within one minute.
type Bucket struct {
	Latencies []MethodLatency
	Errors    []MethodError
}

// BucketView is a read-only snapshot of a Bucket returned by Stream.
type BucketView struct {
	Latencies []MethodLatency
	Errors    []MethodError
}

// AggregateStats summarizes a Stream's buckets.
type AggregateStats struct {
	HighestErrorsPerMinute  int
	LowestErrorsPerMinute   int
	HighestLatencyPerMethod map[string]time.Duration
	LowestLatencyPerMethod  map[string]time.Duration
}

// Stream captures per-minute telemetry buckets in a process's lifetime.
// All methods are safe for concurrent use.
type Stream struct {
	logger *slog.Logger

	mu      sync.Mutex
	buckets map[int64]*Bucket
	order   []int64
	methods map[string]struct{}
}

// New builds an empty Stream.
func New(logger *slog.Logger) *Stream {
	return &Stream{
		logger:  logger,
		buckets: make(map[int64]*Bucket),
		methods: make(map[string]struct{}),
	}
}

// Timed runs fn, recording its latency under name regardless of outcome.
// If fn returns an error, an error entry is also recorded and logged, but
// the error itself is swallowed — Timed always returns nil, matching the
// source decorator's "result = None" fallback on failure.
func (s *Stream) Timed(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	latency := time.Since(start)

	minute := currentMinute()
	s.mu.Lock()
	s.methods[name] = struct{}{}
	bucket := s.bucketLocked(minute)
	bucket.Latencies = append(bucket.Latencies, MethodLatency{Method: name, Latency: latency})
	if err != nil {
		bucket.Errors = append(bucket.Errors, MethodError{Method: name, Error: err.Error()})
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("telemetry captured error", slog.String("method", name), slog.Any("error", err))
	} else {
		s.logger.Debug("telemetry captured latency", slog.String("method", name), slog.Duration("latency", latency))
	}
	return nil
}

// bucketLocked returns the bucket for minute, creating it and appending to
// the insertion-order key slice if it doesn't exist yet. Callers must
// hold s.mu.
func (s *Stream) bucketLocked(minute int64) *Bucket {
	bucket, ok := s.buckets[minute]
	if !ok {
		bucket = &Bucket{}
		s.buckets[minute] = bucket
		s.order = append(s.order, minute)
	}
	return bucket
}

// Stream walks recorded buckets in insertion order. Go map iteration is
// unordered, so this walks the parallel order slice built up under the
// same lock rather than ranging over the map directly.
func (s *Stream) Stream() iter.Seq2[int64, BucketView] {
	return func(yield func(int64, BucketView) bool) {
		s.mu.Lock()
		order := append([]int64(nil), s.order...)
		snapshots := make(map[int64]BucketView, len(order))
		for _, minute := range order {
			b := s.buckets[minute]
			snapshots[minute] = BucketView{
				Latencies: append([]MethodLatency(nil), b.Latencies...),
				Errors:    append([]MethodError(nil), b.Errors...),
			}
		}
		s.mu.Unlock()

		for _, minute := range order {
			if !yield(minute, snapshots[minute]) {
				return
			}
		}
	}
}

// Aggregate computes highest/lowest errors-per-minute across all buckets
// and highest/lowest latency seen per method name.
func (s *Stream) Aggregate() AggregateStats {
	stats := AggregateStats{
		HighestLatencyPerMethod: make(map[string]time.Duration),
		LowestLatencyPerMethod:  make(map[string]time.Duration),
	}

	first := true
	for _, bucket := range s.Stream() {
		count := len(bucket.Errors)
		if first || count > stats.HighestErrorsPerMinute {
			stats.HighestErrorsPerMinute = count
		}
		if first || count < stats.LowestErrorsPerMinute {
			stats.LowestErrorsPerMinute = count
		}
		first = false

		for _, l := range bucket.Latencies {
			if cur, ok := stats.HighestLatencyPerMethod[l.Method]; !ok || l.Latency > cur {
				stats.HighestLatencyPerMethod[l.Method] = l.Latency
			}
			if cur, ok := stats.LowestLatencyPerMethod[l.Method]; !ok || l.Latency < cur {
				stats.LowestLatencyPerMethod[l.Method] = l.Latency
			}
		}
	}
	return stats
}

// Methods returns every method name ever passed to Timed, sorted.
func (s *Stream) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func currentMinute() int64 {
	return time.Now().Unix() / 60
}
