package metrics

import (
	"time"
)

// RecordArticlesFetched records the number of articles fetched for a ticker.
func RecordArticlesFetched(ticker string, count int) {
	ArticlesFetchedTotal.WithLabelValues(ticker).Add(float64(count))
}

// RecordTickerScrape records metrics for a single ticker scrape operation.
func RecordTickerScrape(ticker string, duration time.Duration, articlesFound int) {
	ScrapeTickerDuration.WithLabelValues(ticker).Observe(duration.Seconds())
	if articlesFound > 0 {
		RecordArticlesFetched(ticker, articlesFound)
	}
}

// RecordTickerScrapeError records an error while scraping a ticker.
func RecordTickerScrapeError(ticker, errorType string) {
	ScrapeTickerErrors.WithLabelValues(ticker, errorType).Inc()
}

// UpdateArticlesTotal updates the gauge tracking articles buffered in the
// data sink's in-memory store.
func UpdateArticlesTotal(count int) {
	ArticlesTotal.Set(float64(count))
}

// UpdateTickersTotal updates the gauge tracking the ticker directory
// snapshot size.
func UpdateTickersTotal(count int) {
	TickersTotal.Set(float64(count))
}

// RecordProxyFallback records a direct-fetch fallback after the proxy
// error threshold was crossed.
func RecordProxyFallback() {
	ProxyFallbackTotal.Inc()
}

// SetProxyErrorCount sets the gauge of proxy errors since the last reset.
func SetProxyErrorCount(count int64) {
	ProxyErrorCount.Set(float64(count))
}

// RecordContentFetchSuccess records a successful content fetch operation.
// This tracks both the duration and size of fetched article HTML.
func RecordContentFetchSuccess(duration time.Duration, size int) {
	ContentFetchAttemptsTotal.WithLabelValues("success").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
	ContentFetchSize.Observe(float64(size))
}

// RecordContentFetchFailed records a failed content fetch operation.
func RecordContentFetchFailed(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchSkipped records a skipped content fetch operation, e.g.
// when the interstitial filter rejects a fetched summary/body.
func RecordContentFetchSkipped() {
	ContentFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g. "insert_news", "insert_thumbnail").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
