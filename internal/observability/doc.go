// Package observability provides production-grade observability infrastructure
// including structured logging, Prometheus metrics, and in-process
// per-minute latency/error telemetry. It has no distributed tracing.
//
// This package centralizes observability concerns to enable:
//   - Structured logging with context propagation
//   - Prometheus metrics for monitoring
//   - Performance profiling and debugging
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - telemetry: per-minute method latency and error buckets
//
// Example usage:
//
//	import (
//	    "catchup-feed/internal/observability/logging"
//	    "catchup-feed/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//
//	    metrics.RecordArticlesFetched("example-source", 10)
//	}
package observability
