// Package postgres provides PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/repository"
	"catchup-feed/internal/resilience/circuitbreaker"

	"github.com/lib/pq"
)

// NewsRepo persists entity.Article rows into the news table. Reads go
// through a circuit breaker so a database outage fails ExistsByUUIDBatch
// fast instead of piling up blocked scrape goroutines; batch writes stay
// on the raw connection since they need real transactions, which gobreaker
// has no notion of.
type NewsRepo struct {
	db      *sql.DB
	breaker *circuitbreaker.DBCircuitBreaker
}

func NewNewsRepo(db *sql.DB) repository.NewsRepository {
	return &NewsRepo{db: db, breaker: circuitbreaker.NewDBCircuitBreaker(db)}
}

// InsertBatch runs in its own *sql.Tx, one INSERT per article. A unique
// violation on uuid aborts the whole transaction on a real Postgres
// connection (every later ExecContext would fail with "current transaction
// is aborted"), so duplicates are handled with ON CONFLICT DO NOTHING
// instead of catching a 23505 error — the row is simply a no-op, and the
// transaction stays healthy for its siblings. Matches the teacher's own
// ON CONFLICT idiom (see ArticleEmbeddingRepo.Upsert).
func (r *NewsRepo) InsertBatch(ctx context.Context, articles []*entity.Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("NewsRepo.InsertBatch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO news (uuid, title, publisher, link, provider_publish_time, created_at, type, summary, body)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (uuid) DO NOTHING`

	inserted := 0
	for _, article := range articles {
		res, err := tx.ExecContext(ctx, query,
			article.UUID, article.Title, article.Publisher, article.Link,
			article.ProviderPublish, article.CreatedAt, article.Type,
			article.Summary, article.Body,
		)
		if err != nil {
			return inserted, fmt.Errorf("NewsRepo.InsertBatch: insert %s: %w", article.UUID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		} else {
			slog.Warn("news row already exists, skipping", slog.String("uuid", article.UUID))
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("NewsRepo.InsertBatch: commit: %w", err)
	}
	return inserted, nil
}

func (r *NewsRepo) ExistsByUUIDBatch(ctx context.Context, uuids []string) (map[string]bool, error) {
	result := make(map[string]bool, len(uuids))
	if len(uuids) == 0 {
		return result, nil
	}

	const query = `SELECT uuid FROM news WHERE uuid = ANY($1)`
	rows, err := r.breaker.QueryContext(ctx, query, pq.Array(uuids))
	if err != nil {
		return nil, fmt.Errorf("NewsRepo.ExistsByUUIDBatch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var uuid string
		if err := rows.Scan(&uuid); err != nil {
			return nil, fmt.Errorf("NewsRepo.ExistsByUUIDBatch: scan: %w", err)
		}
		result[uuid] = true
	}
	return result, rows.Err()
}
