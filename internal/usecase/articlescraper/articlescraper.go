// Package articlescraper fans out Yahoo Finance news search requests across
// a ticker list and turns the results into entity.Article values, enriching
// each with HTMLExtractor's parsed title/summary/body.
//
// Grounded in original_source/src/tasks/news_scraper.py's scrape_news_yahoo,
// with the per-ticker loop replaced by the teacher's errgroup fan-out
// pattern (internal/usecase/fetch/service.go's processFeedItems).
package articlescraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/observability/metrics"
	"catchup-feed/internal/observability/telemetry"

	"golang.org/x/sync/errgroup"
)

const yahooSearchEndpoint = "https://query2.finance.yahoo.com/v1/finance/search?q=%s"

const interstitialMarker = "not supported on your current browser version"

const chunkSize = 10

// Proxy fetches a URL through the edge proxy (or its direct fallback) and
// lets the caller clear its proxy error count via ResetErrorCount.
type Proxy interface {
	Fetch(ctx context.Context, url string) (string, bool)
	ResetErrorCount()
}

// Extractor parses fetched article HTML into title/summary/body.
type Extractor interface {
	Extract(ctx context.Context, html, sourceURL string) (title, summary, body *string, err error)
}

// SeenChecker reports whether an article UUID has already been ingested.
type SeenChecker interface {
	AlreadySeen(uuid string) bool
}

// Scraper scrapes Yahoo Finance news search results for a set of tickers.
type Scraper struct {
	proxy     Proxy
	extractor Extractor
	seen      SeenChecker
	telemetry *telemetry.Stream
}

// New builds a Scraper. stream may be nil, in which case ticker scrapes
// aren't timed.
func New(proxy Proxy, extractor Extractor, seen SeenChecker, stream *telemetry.Stream) *Scraper {
	return &Scraper{proxy: proxy, extractor: extractor, seen: seen, telemetry: stream}
}

// yahooSearchResponse mirrors the subset of Yahoo's finance search payload
// this worker consumes. News is decoded one item at a time (see
// doFetchForTicker) so a single malformed record can't drop the whole
// ticker's result.
type yahooSearchResponse struct {
	News []json.RawMessage `json:"news"`
}

type yahooNewsItem struct {
	UUID                string          `json:"uuid"`
	Title               string          `json:"title"`
	Publisher           string          `json:"publisher"`
	Link                string          `json:"link"`
	ProviderPublishTime int64           `json:"providerPublishTime"`
	Type                string          `json:"type"`
	Thumbnail           yahooThumbnail  `json:"thumbnail"`
	RelatedTickers      yahooTickerList `json:"relatedTickers"`
}

// yahooThumbnail tolerates Yahoo occasionally sending a bare string (or any
// other shape) in place of the usual {"resolutions": [...]} object: a
// malformed thumbnail degrades to zero resolutions rather than failing the
// whole news item.
type yahooThumbnail struct {
	Resolutions []yahooResolution
}

func (t *yahooThumbnail) UnmarshalJSON(data []byte) error {
	var shaped struct {
		Resolutions []yahooResolution `json:"resolutions"`
	}
	if err := json.Unmarshal(data, &shaped); err != nil {
		t.Resolutions = nil
		return nil
	}
	t.Resolutions = shaped.Resolutions
	return nil
}

type yahooResolution struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tag    string `json:"tag"`
}

// yahooTickerList accepts relatedTickers as either a JSON array of strings
// (the common case) or a single comma-separated string, upper-casing and
// trimming every entry either way.
type yahooTickerList []string

func (l *yahooTickerList) UnmarshalJSON(data []byte) error {
	var asArray []string
	if err := json.Unmarshal(data, &asArray); err == nil {
		*l = normalizeTickers(asArray)
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*l = normalizeTickers(strings.Split(asString, ","))
		return nil
	}

	*l = nil
	return nil
}

func normalizeTickers(raw []string) yahooTickerList {
	out := make(yahooTickerList, 0, len(raw))
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ScrapeYahoo fetches and enriches news articles for every ticker in
// tickers, processing them in fixed-size chunks with an errgroup fan-out
// per chunk. The returned slice preserves ticker order across chunks and
// within a chunk (result slots are indexed by position, not completion
// order).
func (s *Scraper) ScrapeYahoo(ctx context.Context, tickers []string) ([]entity.Article, error) {
	var all []entity.Article

	for _, chunk := range chunkStrings(tickers, chunkSize) {
		results := make([][]entity.Article, len(chunk))

		g, gctx := errgroup.WithContext(ctx)
		for i, ticker := range chunk {
			i, ticker := i, ticker
			g.Go(func() error {
				articles, err := s.fetchForTicker(gctx, ticker)
				if err != nil {
					slog.Warn("ticker scrape failed", slog.String("ticker", ticker), slog.Any("error", err))
					return nil // one ticker's failure must not abort the chunk
				}
				results[i] = articles
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return all, err
		}

		for _, articles := range results {
			all = append(all, articles...)
		}
	}

	return all, nil
}

func (s *Scraper) fetchForTicker(ctx context.Context, symbol string) ([]entity.Article, error) {
	var articles []entity.Article
	err := s.timed(ctx, func() error {
		var err error
		articles, err = s.doFetchForTicker(ctx, symbol)
		return err
	})
	return articles, err
}

// timed runs fn through the telemetry stream's Timed wrapper, named after
// the source's scrape_news_yahoo, when a stream is configured.
func (s *Scraper) timed(ctx context.Context, fn func() error) error {
	if s.telemetry == nil {
		return fn()
	}
	return s.telemetry.Timed(ctx, "scrape_news_yahoo", fn)
}

func (s *Scraper) doFetchForTicker(ctx context.Context, symbol string) ([]entity.Article, error) {
	start := time.Now()
	url := fmt.Sprintf(yahooSearchEndpoint, symbol)

	body, ok := s.proxy.Fetch(ctx, url)
	s.proxy.ResetErrorCount()
	if !ok {
		metrics.RecordTickerScrapeError(symbol, "fetch_failed")
		return nil, fmt.Errorf("articlescraper: fetch failed for ticker %s", symbol)
	}

	var resp yahooSearchResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		metrics.RecordTickerScrapeError(symbol, "decode_failed")
		return nil, fmt.Errorf("articlescraper: decode response for %s: %w", symbol, err)
	}

	articles := make([]entity.Article, 0, len(resp.News))
	for _, raw := range resp.News {
		var item yahooNewsItem
		if err := json.Unmarshal(raw, &item); err != nil {
			metrics.RecordTickerScrapeError(symbol, "item_decode_failed")
			slog.Debug("skipping malformed news item", slog.String("ticker", symbol), slog.Any("error", err))
			continue
		}

		article, err := s.buildArticle(ctx, symbol, item)
		if err != nil {
			var ve *entity.ValidationError
			if errors.As(err, &ve) {
				slog.Debug("skipping invalid article", slog.String("ticker", symbol), slog.Any("error", err))
				continue
			}
			slog.Warn("failed to build article", slog.String("ticker", symbol), slog.Any("error", err))
			continue
		}
		if article == nil {
			continue // already seen
		}
		articles = append(articles, *article)
	}

	metrics.RecordTickerScrape(symbol, time.Since(start), len(articles))
	return articles, nil
}

func (s *Scraper) buildArticle(ctx context.Context, tickerHint string, item yahooNewsItem) (*entity.Article, error) {
	if item.UUID == "" {
		return nil, &entity.ValidationError{Field: "uuid", Message: "uuid is required"}
	}
	if item.Title == "" {
		return nil, &entity.ValidationError{Field: "title", Message: "title is required"}
	}
	normalizedLink, err := entity.NormalizeURL(item.Link)
	if err != nil {
		return nil, err
	}

	if s.seen != nil && s.seen.AlreadySeen(item.UUID) {
		return nil, nil
	}

	articleType := item.Type
	if articleType == "" {
		articleType = "Story"
	}

	related := []string(item.RelatedTickers)

	thumbnails := normalizeThumbnails(item.UUID, &item.Thumbnail)

	article := &entity.Article{
		UUID:            item.UUID,
		Title:           item.Title,
		Publisher:       item.Publisher,
		Link:            normalizedLink,
		ProviderPublish: item.ProviderPublishTime,
		CreatedAt:       time.Now().Unix(),
		Type:            articleType,
		RelatedTickers:  related,
		Thumbnails:      thumbnails,
	}

	if s.extractor != nil {
		html, ok := s.proxy.Fetch(ctx, normalizedLink)
		if ok {
			title, summary, body, err := s.extractor.Extract(ctx, html, normalizedLink)
			if err != nil {
				slog.Debug("html extraction failed", slog.String("uuid", item.UUID), slog.Any("error", err))
			} else {
				if title != nil {
					article.Title = *title
				}
				if summary != nil {
					article.Summary = filterInterstitial(*summary)
				}
				if body != nil {
					article.Body = filterInterstitial(*body)
				}
			}
		}
	}

	return article, nil
}

func normalizeThumbnails(articleUUID string, thumb *yahooThumbnail) []entity.Thumbnail {
	if thumb == nil {
		return nil
	}
	out := make([]entity.Thumbnail, 0, len(thumb.Resolutions))
	for _, r := range thumb.Resolutions {
		out = append(out, entity.Thumbnail{
			ArticleUUID: articleUUID,
			URL:         r.URL,
			Width:       r.Width,
			Height:      r.Height,
			Tag:         r.Tag,
		})
	}
	return out
}

func filterInterstitial(text string) string {
	if strings.Contains(strings.ToLower(text), interstitialMarker) {
		return ""
	}
	return text
}

func chunkStrings(items []string, size int) [][]string {
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
