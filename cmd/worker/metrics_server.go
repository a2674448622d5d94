package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"catchup-feed/internal/infra/worker"
	"catchup-feed/internal/observability/logging"
	"catchup-feed/internal/observability/telemetry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newAdminServer builds the Prometheus metrics + admin telemetry HTTP
// server. It serves /metrics for Prometheus scraping alongside the
// /_admin/telemetry/* surface the original FastAPI app exposed via
// admin_router and telemetry_router.
func newAdminServer(cfg *worker.WorkerConfig, stream *telemetry.Stream, logRing *logging.Ring, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/_admin/telemetry/stream", telemetryStreamHandler(stream))
	mux.HandleFunc("/_admin/telemetry/stats", telemetryStatsHandler(stream))
	mux.HandleFunc("/_admin/telemetry/stream-logs", streamLogsHandler(logRing))
	mux.HandleFunc("/_admin/admin", adminStubHandler)

	addr := fmt.Sprintf(":%d", cfg.MetricsPort)
	logger.Info("admin server listening", slog.String("addr", addr))

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// telemetryBucketJSON is one bucket's wire shape for the stream endpoint.
type telemetryBucketJSON struct {
	MinuteEpoch int64                     `json:"minute_epoch"`
	Latencies   []telemetry.MethodLatency `json:"latencies"`
	Errors      []telemetry.MethodError   `json:"errors"`
}

// telemetryStreamHandler writes one JSON object per telemetry bucket as a
// chunked response, walking Stream() in insertion order.
func telemetryStreamHandler(stream *telemetry.Stream) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher, canFlush := w.(http.Flusher)

		enc := json.NewEncoder(w)
		for minute, bucket := range stream.Stream() {
			_ = enc.Encode(telemetryBucketJSON{
				MinuteEpoch: minute,
				Latencies:   bucket.Latencies,
				Errors:      bucket.Errors,
			})
			if canFlush {
				flusher.Flush()
			}
		}
	}
}

// telemetryStatsHandler writes Telemetry.Aggregate() as a single JSON
// object.
func telemetryStatsHandler(stream *telemetry.Stream) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stream.Aggregate())
	}
}

// streamLogsHandler tails the most recent in-memory log lines. The ?n=
// query parameter caps how many lines come back; 0 or absent means "all
// retained lines".
func streamLogsHandler(ring *logging.Ring) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := 0
		if val := r.URL.Query().Get("n"); val != "" {
			if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
				n = parsed
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"lines": ring.Tail(n),
		})
	}
}

// adminStubHandler matches the original's admin_router: a reserved,
// never-implemented endpoint. Kept as a routed placeholder rather than
// dropped, since downstream tooling already points at it.
func adminStubHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotImplemented)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "not implemented",
	})
}
