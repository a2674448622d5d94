package repository

import (
	"context"

	"catchup-feed/internal/domain/entity"
)

// NewsRepository persists the news table: one row per ingested article,
// keyed by uuid.
type NewsRepository interface {
	// InsertBatch inserts articles one row at a time inside its own
	// transaction, skipping (and counting, not erroring on) uuid
	// collisions. Returns the number of rows actually inserted.
	InsertBatch(ctx context.Context, articles []*entity.Article) (inserted int, err error)
	// ExistsByUUIDBatch reports which of the given uuids are already
	// present in one query. DataSink.AlreadySeen does not call it; it
	// consults only the sink's in-memory set.
	ExistsByUUIDBatch(ctx context.Context, uuids []string) (map[string]bool, error)
}

// ThumbnailRepository persists the thumbnail table, FK'd to news.uuid.
type ThumbnailRepository interface {
	InsertBatch(ctx context.Context, thumbnails []*entity.Thumbnail) (inserted int, err error)
}

// RelatedTickerRepository persists the related_tickers table, FK'd to
// news.uuid.
type RelatedTickerRepository interface {
	InsertBatch(ctx context.Context, links []*entity.RelatedTickerLink) (inserted int, err error)
}

// SentimentRepository persists the news_sentiment table, FK'd to
// news.uuid. Sentiment columns are reserved for a future inference stage
// and are left null by this worker.
type SentimentRepository interface {
	InsertBatch(ctx context.Context, rows []*entity.SentimentRow) (inserted int, err error)
}
