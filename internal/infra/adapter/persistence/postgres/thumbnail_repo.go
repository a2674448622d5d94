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

// ThumbnailRepo persists entity.Thumbnail rows into the thumbnail table.
type ThumbnailRepo struct{ db *sql.DB }

func NewThumbnailRepo(db *sql.DB) repository.ThumbnailRepository {
	return &ThumbnailRepo{db: db}
}

// InsertBatch runs in its own *sql.Tx, one INSERT per thumbnail.
// thumbnail_id is a freshly generated UUID on every call, so the natural
// duplicate key is (uuid, url, tag), enforced by a unique index in the
// schema; ON CONFLICT DO NOTHING on that key keeps a re-inserted thumbnail
// from aborting the transaction for its siblings, matching the teacher's
// ON CONFLICT idiom (see ArticleEmbeddingRepo.Upsert).
func (r *ThumbnailRepo) InsertBatch(ctx context.Context, thumbnails []*entity.Thumbnail) (int, error) {
	if len(thumbnails) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("ThumbnailRepo.InsertBatch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `
INSERT INTO thumbnail (thumbnail_id, uuid, url, width, height, tag)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (uuid, url, tag) DO NOTHING`

	inserted := 0
	for _, thumb := range thumbnails {
		res, err := tx.ExecContext(ctx, query,
			uuid.NewString(), thumb.ArticleUUID, thumb.URL, thumb.Width, thumb.Height, thumb.Tag,
		)
		if err != nil {
			return inserted, fmt.Errorf("ThumbnailRepo.InsertBatch: insert %s: %w", thumb.ArticleUUID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		} else {
			slog.Warn("thumbnail row already exists, skipping", slog.String("article_uuid", thumb.ArticleUUID))
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("ThumbnailRepo.InsertBatch: commit: %w", err)
	}
	return inserted, nil
}
