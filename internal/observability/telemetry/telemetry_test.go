package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestTimed_RecordsLatencyOnSuccess(t *testing.T) {
	s := New(testLogger())
	err := s.Timed(context.Background(), "scrape_news_yahoo", func() error { return nil })
	require.NoError(t, err)

	var bucket BucketView
	for _, b := range s.Stream() {
		bucket = b
	}
	require.Len(t, bucket.Latencies, 1)
	assert.Equal(t, "scrape_news_yahoo", bucket.Latencies[0].Method)
	assert.Empty(t, bucket.Errors)
}

func TestTimed_RecordsErrorAndSwallowsIt(t *testing.T) {
	s := New(testLogger())
	err := s.Timed(context.Background(), "parse_article", func() error { return errors.New("boom") })
	require.NoError(t, err)

	var bucket BucketView
	for _, b := range s.Stream() {
		bucket = b
	}
	require.Len(t, bucket.Errors, 1)
	assert.Equal(t, "parse_article", bucket.Errors[0].Method)
	assert.Equal(t, "boom", bucket.Errors[0].Error)
}

func TestMethods_ReturnsSortedObservedNames(t *testing.T) {
	s := New(testLogger())
	_ = s.Timed(context.Background(), "zeta", func() error { return nil })
	_ = s.Timed(context.Background(), "alpha", func() error { return nil })

	assert.Equal(t, []string{"alpha", "zeta"}, s.Methods())
}

func TestAggregate_TracksHighestAndLowestLatencyPerMethod(t *testing.T) {
	s := New(testLogger())
	s.mu.Lock()
	b := s.bucketLocked(100)
	b.Latencies = append(b.Latencies,
		MethodLatency{Method: "m1", Latency: 10},
		MethodLatency{Method: "m1", Latency: 30},
	)
	b2 := s.bucketLocked(101)
	b2.Latencies = append(b2.Latencies, MethodLatency{Method: "m1", Latency: 5})
	s.mu.Unlock()

	stats := s.Aggregate()
	assert.Equal(t, int64(30), int64(stats.HighestLatencyPerMethod["m1"]))
	assert.Equal(t, int64(5), int64(stats.LowestLatencyPerMethod["m1"]))
}

func TestAggregate_TracksErrorsPerMinuteBounds(t *testing.T) {
	s := New(testLogger())
	s.mu.Lock()
	b1 := s.bucketLocked(1)
	b1.Errors = append(b1.Errors, MethodError{Method: "m1", Error: "e"})
	b1.Errors = append(b1.Errors, MethodError{Method: "m1", Error: "e2"})
	s.bucketLocked(2)
	s.mu.Unlock()

	stats := s.Aggregate()
	assert.Equal(t, 2, stats.HighestErrorsPerMinute)
	assert.Equal(t, 0, stats.LowestErrorsPerMinute)
}

func TestStream_WalksBucketsInInsertionOrder(t *testing.T) {
	s := New(testLogger())
	s.mu.Lock()
	s.bucketLocked(50)
	s.bucketLocked(10)
	s.bucketLocked(30)
	s.mu.Unlock()

	var keys []int64
	for minute := range s.Stream() {
		keys = append(keys, minute)
	}
	assert.Equal(t, []int64{50, 10, 30}, keys)
}
