// Package datasink buffers scraped articles in memory and flushes them to
// Postgres in fixed-size batches, one independent transaction per entity
// kind (news, thumbnail, related_tickers, news_sentiment).
//
// Grounded in original_source/src/connector/data_connector.py's
// DataConnector: incoming_articles dedups by uuid into a set plus a
// buffer, send_to_database batches by 20 and fans each batch out into
// four independent per-kind saves (create_news_instance /
// create_news_sentiment / create_thumbnails_instance /
// create_related_tickers), each tolerating individual row failures.
package datasink

import (
	"context"
	"log/slog"
	"sync"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/observability/metrics"
	"catchup-feed/internal/observability/telemetry"
	"catchup-feed/internal/repository"
)

const batchSize = 20

// FailedArticleSink receives articles that could not be persisted after a
// flush attempt, so they aren't silently lost. The default NoopFailedSink
// just drops them (matching the original's never-finished pickle-to-disk
// TODO); DiskFallbackSink in internal/infra/datasink persists them instead.
type FailedArticleSink interface {
	SaveFailed(ctx context.Context, article entity.Article) error
}

// NoopFailedSink discards failed articles.
type NoopFailedSink struct{}

// SaveFailed does nothing.
func (NoopFailedSink) SaveFailed(ctx context.Context, article entity.Article) error { return nil }

// Sink buffers articles in memory and flushes them to the four Postgres
// repositories in batches.
type Sink struct {
	news       repository.NewsRepository
	thumbnails repository.ThumbnailRepository
	tickers    repository.RelatedTickerRepository
	sentiment  repository.SentimentRepository
	failed     FailedArticleSink
	telemetry  *telemetry.Stream

	mu      sync.Mutex
	seen    map[string]bool
	pending []entity.Article
}

// New builds a Sink. failed may be nil, in which case failed articles are
// dropped (NoopFailedSink). stream may be nil, in which case flushes
// aren't timed.
func New(news repository.NewsRepository, thumbnails repository.ThumbnailRepository, tickers repository.RelatedTickerRepository, sentiment repository.SentimentRepository, failed FailedArticleSink, stream *telemetry.Stream) *Sink {
	if failed == nil {
		failed = NoopFailedSink{}
	}
	return &Sink{
		news:       news,
		thumbnails: thumbnails,
		tickers:    tickers,
		sentiment:  sentiment,
		failed:     failed,
		telemetry:  stream,
		seen:       make(map[string]bool),
	}
}

// AlreadySeen reports whether uuid has already been buffered or persisted
// by this sink. It only reflects state local to this process's lifetime —
// it is not a substitute for the unique constraint enforced at insert time.
func (s *Sink) AlreadySeen(uuid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[uuid]
}

// Ingest buffers new articles, skipping any whose uuid has already been
// seen. Matches incoming_articles: uuid-dedup on the way in, not at flush
// time.
func (s *Sink) Ingest(articles []entity.Article) {
	if len(articles) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range articles {
		if a.UUID == "" || s.seen[a.UUID] {
			continue
		}
		s.seen[a.UUID] = true
		s.pending = append(s.pending, a)
	}
	metrics.UpdateArticlesTotal(len(s.pending))
}

// Flush drains the pending buffer in batches of 20, inserting each batch
// into all four tables. Each table gets its own independent transaction
// per batch, so a bad related_tickers row doesn't roll back the news row
// it's attached to.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	flush := func() error {
		for start := 0; start < len(batch); start += batchSize {
			end := start + batchSize
			if end > len(batch) {
				end = len(batch)
			}
			s.flushBatch(ctx, batch[start:end])
		}
		metrics.UpdateArticlesTotal(0)
		return nil
	}

	if s.telemetry == nil {
		return flush()
	}
	return s.telemetry.Timed(ctx, "flush_articles", flush)
}

func (s *Sink) flushBatch(ctx context.Context, articles []entity.Article) {
	newsRows := make([]*entity.Article, 0, len(articles))
	var thumbnailRows []*entity.Thumbnail
	var tickerRows []*entity.RelatedTickerLink
	var sentimentRows []*entity.SentimentRow

	for i := range articles {
		a := &articles[i]
		newsRows = append(newsRows, a)

		for j := range a.Thumbnails {
			thumbnailRows = append(thumbnailRows, &a.Thumbnails[j])
		}

		for _, ticker := range a.RelatedTickers {
			tickerRows = append(tickerRows, &entity.RelatedTickerLink{ArticleUUID: a.UUID, Ticker: ticker})
		}

		if a.Summary != "" || a.Body != "" {
			sentimentRows = append(sentimentRows, &entity.SentimentRow{
				ArticleUUID: a.UUID,
				StockCodes:  joinTickers(a.RelatedTickers),
				Title:       a.Title,
				Link:        a.Link,
				Article:     a.Body,
				ArticleTLDR: a.Summary,
			})
		}
	}

	insertedNews, err := s.news.InsertBatch(ctx, newsRows)
	if err != nil {
		slog.Error("failed to flush news batch", slog.Any("error", err))
		s.saveAllFailed(ctx, articles)
	} else if insertedNews < len(newsRows) {
		slog.Warn("partial news batch insert", slog.Int("inserted", insertedNews), slog.Int("total", len(newsRows)))
	}

	if _, err := s.thumbnails.InsertBatch(ctx, thumbnailRows); err != nil {
		slog.Error("failed to flush thumbnail batch", slog.Any("error", err))
	}
	if _, err := s.tickers.InsertBatch(ctx, tickerRows); err != nil {
		slog.Error("failed to flush related ticker batch", slog.Any("error", err))
	}
	if _, err := s.sentiment.InsertBatch(ctx, sentimentRows); err != nil {
		slog.Error("failed to flush sentiment batch", slog.Any("error", err))
	}
}

func (s *Sink) saveAllFailed(ctx context.Context, articles []entity.Article) {
	for _, a := range articles {
		if err := s.failed.SaveFailed(ctx, a); err != nil {
			slog.Error("failed to persist article to fallback sink", slog.String("uuid", a.UUID), slog.Any("error", err))
		}
	}
}

func joinTickers(tickers []string) string {
	out := ""
	for i, t := range tickers {
		if i > 0 {
			out += ","
		}
		out += t
	}
	return out
}
