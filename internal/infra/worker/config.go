package worker

import (
	"catchup-feed/internal/pkg/config"
	"fmt"
	"log/slog"
	"time"
)

// WorkerConfig holds the configuration for the ingestion worker component.
// This configuration controls the cron schedule, timezone, scraping
// concurrency, proxy fallback threshold, and other operational parameters.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have sensible defaults and validation rules so the worker can
// operate safely even with invalid or missing configuration.
type WorkerConfig struct {
	// CronSchedule is the cron expression used when SchedulerMode is
	// "interval". Format: "minute hour day month weekday".
	// Default: "*/10 * * * *" (every 10 minutes, matching the legacy
	// asyncio.sleep(600) loop).
	CronSchedule string

	// Timezone is the IANA timezone name the scheduler evaluates slot
	// times and cron ticks in.
	// Default: "America/New_York"
	Timezone string

	// SchedulerMode selects the admission strategy: "slot" (ScheduleSlot
	// time-match admission, ported from can_run_task) or "interval"
	// (cron-expression driven sweep).
	// Default: "slot"
	SchedulerMode string

	// ScrapeChunkConcurrency is the number of tickers fetched concurrently
	// within a single chunk during ArticleScraper fan-out.
	// Range: 1-50
	// Default: 10
	ScrapeChunkConcurrency int

	// ScrapeTimeout is the maximum duration for a single scheduled scrape
	// run across all chunks.
	// Default: 30 minutes
	ScrapeTimeout time.Duration

	// TickerRefreshInterval is how often the TickerDirectory snapshot is
	// refreshed. Default: 3 hours (matches the legacy 6*3 tick counter at
	// a 10-minute sleep interval).
	TickerRefreshInterval time.Duration

	// ProxyErrorThreshold is the number of ProxyClient errors (counted
	// since the last ResetErrorCount) at which it falls back to direct
	// HTTPFetcher calls.
	// Default: 60
	ProxyErrorThreshold int

	// HealthPort is the port number for the health check HTTP server.
	// Default: 9091
	HealthPort int

	// MetricsPort is the port number for the Prometheus /metrics and
	// admin telemetry HTTP server.
	// Default: 9090
	MetricsPort int
}

// DefaultConfig returns a WorkerConfig with sensible default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:           "*/10 * * * *",
		Timezone:               "America/New_York",
		SchedulerMode:          "slot",
		ScrapeChunkConcurrency: 10,
		ScrapeTimeout:          30 * time.Minute,
		TickerRefreshInterval:  3 * time.Hour,
		ProxyErrorThreshold:    60,
		HealthPort:             9091,
		MetricsPort:            9090,
	}
}

// Validate checks if the configuration values are valid.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if c.SchedulerMode != "slot" && c.SchedulerMode != "interval" {
		errs = append(errs, fmt.Errorf("scheduler mode: must be 'slot' or 'interval', got %q", c.SchedulerMode))
	}
	if err := config.ValidateIntRange(c.ScrapeChunkConcurrency, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("scrape chunk concurrency: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.ScrapeTimeout); err != nil {
		errs = append(errs, fmt.Errorf("scrape timeout: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.TickerRefreshInterval); err != nil {
		errs = append(errs, fmt.Errorf("ticker refresh interval: %w", err))
	}
	if err := config.ValidateIntRange(c.ProxyErrorThreshold, 1, 10000); err != nil {
		errs = append(errs, fmt.Errorf("proxy error threshold: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This implements the fail-open strategy: every field is loaded
// independently, validated, and falls back to its default (with a
// warning log and a metrics increment) rather than aborting startup.
//
// Environment variables:
//   - CRON_SCHEDULE
//   - WORKER_TIMEZONE
//   - SCHEDULER_MODE ("slot" or "interval")
//   - SCRAPE_CHUNK_CONCURRENCY
//   - SCRAPE_TIMEOUT
//   - TICKER_REFRESH_INTERVAL
//   - PROXY_ERROR_THRESHOLD
//   - WORKER_HEALTH_PORT
//   - METRICS_PORT
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	apply := func(field string, result config.ConfigLoadResult) {
		if !result.FallbackApplied {
			return
		}
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, warning := range result.Warnings {
			logger.Warn("configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	result := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	apply("cron_schedule", result)

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	apply("timezone", result)

	result = config.LoadEnvWithFallback("SCHEDULER_MODE", cfg.SchedulerMode, func(v string) error {
		if v != "slot" && v != "interval" {
			return fmt.Errorf("must be 'slot' or 'interval'")
		}
		return nil
	})
	cfg.SchedulerMode = result.Value.(string)
	apply("scheduler_mode", result)

	result = config.LoadEnvInt("SCRAPE_CHUNK_CONCURRENCY", cfg.ScrapeChunkConcurrency, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.ScrapeChunkConcurrency = result.Value.(int)
	apply("scrape_chunk_concurrency", result)

	result = config.LoadEnvDuration("SCRAPE_TIMEOUT", cfg.ScrapeTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 4*time.Hour)
	})
	cfg.ScrapeTimeout = result.Value.(time.Duration)
	apply("scrape_timeout", result)

	result = config.LoadEnvDuration("TICKER_REFRESH_INTERVAL", cfg.TickerRefreshInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 24*time.Hour)
	})
	cfg.TickerRefreshInterval = result.Value.(time.Duration)
	apply("ticker_refresh_interval", result)

	result = config.LoadEnvInt("PROXY_ERROR_THRESHOLD", cfg.ProxyErrorThreshold, func(v int) error {
		return config.ValidateIntRange(v, 1, 10000)
	})
	cfg.ProxyErrorThreshold = result.Value.(int)
	apply("proxy_error_threshold", result)

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	apply("health_port", result)

	result = config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.MetricsPort = result.Value.(int)
	apply("metrics_port", result)

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
