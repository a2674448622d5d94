// Package tickerdirectory maintains a cached symbol -> display-name map
// scraped from MEME_TICKERS_URI, refreshed on a fixed cadence. It owns its
// own "last-known-good" state: a transient fetch failure returns the
// previous snapshot rather than propagating an error to the scheduler.
//
// Grounded in original_source/src/tasks/__init__.py's get_meme_tickers,
// which does the identical first-tbody/cell-0/cell-1 parse.
package tickerdirectory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"catchup-feed/internal/resilience/retry"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher retrieves raw HTML for a URL. HTTPFetcher and ProxyClient both
// satisfy this (ProxyClient via its bool-success signature adapted by the
// caller).
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Directory caches a snapshot of ticker symbol -> display name, refreshed
// no more often than Interval.
type Directory struct {
	fetcher   Fetcher
	sourceURL string
	interval  time.Duration

	mu       sync.Mutex
	snapshot map[string]string
	lastLoad time.Time
}

// New builds a Directory that fetches sourceURL no more than once per
// interval.
func New(fetcher Fetcher, sourceURL string, interval time.Duration) *Directory {
	return &Directory{
		fetcher:   fetcher,
		sourceURL: sourceURL,
		interval:  interval,
		snapshot:  make(map[string]string),
	}
}

// Snapshot returns the cached ticker map, refreshing it first if Interval
// has elapsed since the last successful or attempted load. A fetch or parse
// failure leaves the previous snapshot untouched and is logged, not
// returned, since the directory is a best-effort cache, not a hard
// dependency of the scrape loop.
func (d *Directory) Snapshot(ctx context.Context) map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lastLoad.IsZero() && time.Since(d.lastLoad) < d.interval {
		return d.copySnapshot()
	}
	d.lastLoad = time.Now()

	var html string
	err := retry.WithBackoff(ctx, retry.TickerDirectoryConfig(), func() error {
		var fetchErr error
		html, fetchErr = d.fetcher.Fetch(ctx, d.sourceURL)
		return fetchErr
	})
	if err != nil {
		slog.Warn("ticker directory fetch failed, keeping prior snapshot", slog.Any("error", err))
		return d.copySnapshot()
	}

	parsed, err := parseTickerTable(html)
	if err != nil {
		slog.Warn("ticker directory parse failed, keeping prior snapshot", slog.Any("error", err))
		return d.copySnapshot()
	}
	if len(parsed) == 0 {
		slog.Warn("ticker directory fetch returned no rows, keeping prior snapshot")
		return d.copySnapshot()
	}

	d.snapshot = parsed
	return d.copySnapshot()
}

func (d *Directory) copySnapshot() map[string]string {
	out := make(map[string]string, len(d.snapshot))
	for k, v := range d.snapshot {
		out[k] = v
	}
	return out
}

func parseTickerTable(html string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("tickerdirectory: parse html: %w", err)
	}

	tbody := doc.Find("tbody").First()
	if tbody.Length() == 0 {
		return map[string]string{}, nil
	}

	tickers := make(map[string]string)
	tbody.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		symbol := strings.ToUpper(strings.TrimSpace(cells.Eq(0).Text()))
		name := strings.TrimSpace(cells.Eq(1).Text())
		if symbol == "" {
			return
		}
		tickers[symbol] = name
	})

	return tickers, nil
}
