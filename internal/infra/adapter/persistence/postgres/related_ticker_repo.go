package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"

	"github.com/google/uuid"
)

// RelatedTickerRepo persists entity.RelatedTickerLink rows into the
// related_tickers table.
type RelatedTickerRepo struct{ db *sql.DB }

func NewRelatedTickerRepo(db *sql.DB) repository.RelatedTickerRepository {
	return &RelatedTickerRepo{db: db}
}

// InsertBatch runs in its own *sql.Tx, one INSERT per link. id is a
// freshly generated UUID on every call, so the natural duplicate key is
// (uuid, ticker), enforced by a unique index in the schema; ON CONFLICT
// DO NOTHING on that key keeps a re-inserted link from aborting the
// transaction for its siblings, matching the teacher's ON CONFLICT idiom
// (see ArticleEmbeddingRepo.Upsert).
func (r *RelatedTickerRepo) InsertBatch(ctx context.Context, links []*entity.RelatedTickerLink) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("RelatedTickerRepo.InsertBatch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO related_tickers (id, uuid, ticker, stock_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT (uuid, ticker) DO NOTHING`

	inserted := 0
	for _, link := range links {
		res, err := tx.ExecContext(ctx, query,
			uuid.NewString(), link.ArticleUUID, link.Ticker, uuid.NewString(),
		)
		if err != nil {
			return inserted, fmt.Errorf("RelatedTickerRepo.InsertBatch: insert %s/%s: %w", link.ArticleUUID, link.Ticker, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		} else {
			slog.Warn("related_tickers row already exists, skipping",
				slog.String("article_uuid", link.ArticleUUID), slog.String("ticker", link.Ticker))
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("RelatedTickerRepo.InsertBatch: commit: %w", err)
	}
	return inserted, nil
}
