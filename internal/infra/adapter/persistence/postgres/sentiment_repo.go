package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
)

// SentimentRepo persists entity.SentimentRow rows into the news_sentiment
// table. The sentiment columns themselves are left null by this worker;
// the row exists so a downstream sentiment job has somewhere to write.
type SentimentRepo struct{ db *sql.DB }

func NewSentimentRepo(db *sql.DB) repository.SentimentRepository {
	return &SentimentRepo{db: db}
}

// InsertBatch runs in its own *sql.Tx, one INSERT per row. article_uuid is
// the table's primary key, so ON CONFLICT DO NOTHING on it keeps a
// re-inserted row from aborting the transaction for its siblings, matching
// the teacher's ON CONFLICT idiom (see ArticleEmbeddingRepo.Upsert).
func (r *SentimentRepo) InsertBatch(ctx context.Context, rows []*entity.SentimentRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("SentimentRepo.InsertBatch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO news_sentiment (article_uuid, stock_codes, title, link, article, article_tldr, sentiment_title, sentiment_article)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (article_uuid) DO NOTHING`

	inserted := 0
	for _, row := range rows {
		res, err := tx.ExecContext(ctx, query,
			row.ArticleUUID, row.StockCodes, row.Title, row.Link, row.Article, row.ArticleTLDR,
			row.SentimentTitle, row.SentimentArticle,
		)
		if err != nil {
			return inserted, fmt.Errorf("SentimentRepo.InsertBatch: insert %s: %w", row.ArticleUUID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		} else {
			slog.Warn("news_sentiment row already exists, skipping", slog.String("article_uuid", row.ArticleUUID))
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("SentimentRepo.InsertBatch: commit: %w", err)
	}
	return inserted, nil
}
