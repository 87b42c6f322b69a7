// Package platform normalizes raw provider result items into the fields the
// ingestion pipeline persists. One Extractor exists per supported platform;
// adding a platform means adding an Extractor and registering it.
package platform

import (
	"fmt"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// MediaRef points at one downloadable media asset on a result item.
type MediaRef struct {
	URL  string
	Kind scan.MediaKind
}

// NormalizedItem is the platform-independent view of one result item.
type NormalizedItem struct {
	Title         string
	Caption       string
	URL           string
	Media         []MediaRef
	TranscriptRef string
}

// Extractor maps a raw provider item onto a NormalizedItem.
type Extractor interface {
	Platform() scan.Platform
	ExtractFields(raw scan.RawItem) (NormalizedItem, error)
}

// Registry selects an Extractor by platform tag.
type Registry struct {
	byPlatform map[scan.Platform]Extractor
}

// NewRegistry builds a Registry from the given extractors.
func NewRegistry(extractors ...Extractor) *Registry {
	byPlatform := make(map[scan.Platform]Extractor, len(extractors))
	for _, ex := range extractors {
		byPlatform[ex.Platform()] = ex
	}
	return &Registry{byPlatform: byPlatform}
}

// DefaultRegistry returns a Registry covering every supported platform.
func DefaultRegistry() *Registry {
	return NewRegistry(
		YouTubeExtractor{},
		TikTokExtractor{},
		InstagramExtractor{},
	)
}

// ForPlatform returns the Extractor registered for the platform.
func (r *Registry) ForPlatform(p scan.Platform) (Extractor, error) {
	ex, ok := r.byPlatform[p]
	if !ok {
		return nil, fmt.Errorf("no extractor registered for platform %q", p)
	}
	return ex, nil
}
