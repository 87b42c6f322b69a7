package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// ContentStore keeps content items and media rows in process memory.
type ContentStore struct {
	mu    sync.RWMutex
	items map[string]scan.ContentItem
	media map[string][]scan.ContentMedia
}

// NewContentStore constructs an empty ContentStore.
func NewContentStore() *ContentStore {
	return &ContentStore{
		items: make(map[string]scan.ContentItem),
		media: make(map[string][]scan.ContentMedia),
	}
}

// CreateContentItem implements scan.ContentStore.
func (s *ContentStore) CreateContentItem(_ context.Context, item scan.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; ok {
		return fmt.Errorf("content item %s already exists", item.ID)
	}
	s.items[item.ID] = item
	return nil
}

// CreateContentMedia implements scan.ContentStore.
func (s *ContentStore) CreateContentMedia(_ context.Context, media scan.ContentMedia) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[media.ContentItemID]; !ok {
		return fmt.Errorf("content item %s not found", media.ContentItemID)
	}
	s.media[media.ContentItemID] = append(s.media[media.ContentItemID], media)
	return nil
}

// GetContentItem returns a stored item. Mostly useful in tests.
func (s *ContentStore) GetContentItem(id string) (scan.ContentItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	return item, ok
}

// MediaFor returns the media rows stored for a content item.
func (s *ContentStore) MediaFor(contentItemID string) []scan.ContentMedia {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]scan.ContentMedia(nil), s.media[contentItemID]...)
}

// ItemCount reports how many content items are stored.
func (s *ContentStore) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
