package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// ContentStore persists content items and media rows in Postgres.
type ContentStore struct {
	pool pgxPool
}

// NewContentStore constructs a ContentStore from an existing pool.
func NewContentStore(pool pgxPool) (*ContentStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ContentStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ContentStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateContentItem implements scan.ContentStore. The transcript is stored
// as a jsonb column; a nil transcript stores SQL NULL.
func (s *ContentStore) CreateContentItem(ctx context.Context, item scan.ContentItem) error {
	if item.ID == "" {
		return errors.New("content item id is required")
	}
	var transcriptJSON []byte
	if item.Transcript != nil {
		data, err := json.Marshal(item.Transcript)
		if err != nil {
			return fmt.Errorf("marshal transcript: %w", err)
		}
		transcriptJSON = data
	}
	const query = `
INSERT INTO content_items (id, job_id, run_id, platform, title, caption, url, transcript, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, query,
		item.ID,
		item.JobID,
		item.RunID,
		string(item.Platform),
		item.Title,
		item.Caption,
		item.URL,
		transcriptJSON,
		item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert content item: %w", err)
	}
	return nil
}

// CreateContentMedia implements scan.ContentStore.
func (s *ContentStore) CreateContentMedia(ctx context.Context, media scan.ContentMedia) error {
	if media.ID == "" {
		return errors.New("content media id is required")
	}
	const query = `
INSERT INTO content_media (id, content_item_id, storage_path, content_hash, kind, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query,
		media.ID,
		media.ContentItemID,
		media.StoragePath,
		media.ContentHash,
		string(media.Kind),
		media.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert content media: %w", err)
	}
	return nil
}
