// Package datasink provides an optional disk-backed implementation of
// usecase/datasink.FailedArticleSink, for the one TODO the original
// connector never finished: save_to_local_drive pickled an article and
// left a note that it never learned how to actually persist it anywhere.
// This writes each failed article as JSON instead of a pickle.
package datasink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"catchup-feed/internal/domain/entity"
)

// DiskFallbackSink writes failed articles as one JSON file per article
// under Dir, named by uuid.
type DiskFallbackSink struct {
	Dir string
}

// NewDiskFallbackSink builds a DiskFallbackSink rooted at dir, creating the
// directory if it doesn't exist.
func NewDiskFallbackSink(dir string) (*DiskFallbackSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diskfallback: create dir: %w", err)
	}
	return &DiskFallbackSink{Dir: dir}, nil
}

// SaveFailed writes article to <Dir>/<uuid>.json.
func (s *DiskFallbackSink) SaveFailed(ctx context.Context, article entity.Article) error {
	if article.UUID == "" {
		return fmt.Errorf("diskfallback: article has no uuid")
	}
	data, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("diskfallback: marshal article %s: %w", article.UUID, err)
	}
	path := filepath.Join(s.Dir, article.UUID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("diskfallback: write %s: %w", path, err)
	}
	return nil
}
