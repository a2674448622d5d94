// Package proxyclient routes outbound fetches through a Cloudflare Worker
// edge proxy, falling back to a direct HTTPFetcher once the number of proxy
// failures since the last ResetErrorCount reaches a threshold.
//
// Grounded in original_source/src/tasks/utils.py's CloudflareProxy, which
// posts to the worker URL with an X-SECURITY-TOKEN-equivalent auth header
// and swallows transport errors rather than propagating them to the caller.
package proxyclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"

	"catchup-feed/internal/infra/fetcher"
	"catchup-feed/internal/observability/metrics"
	"catchup-feed/internal/observability/telemetry"
)

// Config holds the Cloudflare Worker edge endpoint and the error-count
// threshold at which ProxyClient stops trying the proxy and calls
// HTTPFetcher directly.
type Config struct {
	WorkerURL      string // e.g. https://proxy.example.site
	SecurityToken  string
	ErrorThreshold int64
}

// DefaultErrorThreshold matches the teacher's tolerance for proxy flakiness
// before direct fetches take over.
const DefaultErrorThreshold = 60

// ProxyClient fetches URLs through the edge worker while its error count
// stays below the configured threshold, and falls back to a direct
// HTTPFetcher once the count reaches it. Successful proxy fetches do not
// lower the count; only ResetErrorCount clears it.
type ProxyClient struct {
	cfg        Config
	direct     *fetcher.HTTPFetcher
	telemetry  *telemetry.Stream
	errorCount atomic.Int64
}

// New builds a ProxyClient. direct is the fallback fetcher used once the
// error threshold is crossed. telemetry may be nil, in which case fetches
// aren't timed.
func New(cfg Config, direct *fetcher.HTTPFetcher, stream *telemetry.Stream) *ProxyClient {
	if cfg.ErrorThreshold <= 0 {
		cfg.ErrorThreshold = DefaultErrorThreshold
	}
	return &ProxyClient{cfg: cfg, direct: direct, telemetry: stream}
}

// Fetch retrieves targetURL's body. It never returns an error for a
// transport failure — callers get ("", false) instead, matching the
// original client's "return None on failure" behavior, and simply move on
// to the next article rather than aborting a scrape run.
func (c *ProxyClient) Fetch(ctx context.Context, targetURL string) (string, bool) {
	var body string
	var ok bool

	c.timed(ctx, func() error {
		if c.errorCount.Load() >= c.cfg.ErrorThreshold {
			b, err := c.direct.Fetch(ctx, targetURL)
			if err != nil {
				slog.Warn("direct fallback fetch failed", slog.String("url", targetURL), slog.Any("error", err))
				return err
			}
			body, ok = b, true
			return nil
		}

		edgeURL := fmt.Sprintf("%s?url=%s&method=GET", c.cfg.WorkerURL, url.QueryEscape(targetURL))
		b, err := c.direct.FetchWithHeader(ctx, edgeURL, "X-SECURITY-TOKEN", c.cfg.SecurityToken)
		if err != nil {
			n := c.errorCount.Add(1)
			metrics.SetProxyErrorCount(n)
			slog.Warn("proxy fetch failed", slog.String("url", targetURL), slog.Int64("error_count", n), slog.Any("error", err))
			if n >= c.cfg.ErrorThreshold {
				metrics.RecordProxyFallback()
				slog.Warn("proxy error threshold crossed, falling back to direct fetch", slog.Int64("threshold", c.cfg.ErrorThreshold))
			}
			return err
		}
		body, ok = b, true
		return nil
	})

	return body, ok
}

// timed runs fn through the telemetry stream's Timed wrapper when a stream
// is configured, otherwise runs it directly.
func (c *ProxyClient) timed(ctx context.Context, fn func() error) {
	if c.telemetry == nil {
		_ = fn()
		return
	}
	_ = c.telemetry.Timed(ctx, "proxy_fetch", fn)
}

// ResetErrorCount clears the proxy error counter. ArticleScraper calls
// this between tickers so a single bad chunk doesn't permanently pin the
// client onto the direct-fetch path.
func (c *ProxyClient) ResetErrorCount() {
	c.errorCount.Store(0)
	metrics.SetProxyErrorCount(0)
}

// ErrorCount returns the number of proxy failures since the last
// ResetErrorCount, chiefly for tests
// and the admin telemetry surface.
func (c *ProxyClient) ErrorCount() int64 {
	return c.errorCount.Load()
}
