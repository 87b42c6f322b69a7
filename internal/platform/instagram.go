package platform

import (
	"encoding/json"
	"fmt"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// instagramItem mirrors the fields of the provider's Instagram scraper output
// we care about.
type instagramItem struct {
	Caption    string   `json:"caption"`
	URL        string   `json:"url"`
	DisplayURL string   `json:"displayUrl"`
	VideoURL   string   `json:"videoUrl"`
	Images     []string `json:"images"`
}

// InstagramExtractor normalizes Instagram post items.
type InstagramExtractor struct{}

// Platform implements Extractor.
func (InstagramExtractor) Platform() scan.Platform {
	return scan.PlatformInstagram
}

// ExtractFields implements Extractor.
func (InstagramExtractor) ExtractFields(raw scan.RawItem) (NormalizedItem, error) {
	var item instagramItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return NormalizedItem{}, fmt.Errorf("decode instagram item: %w", err)
	}
	if item.URL == "" {
		return NormalizedItem{}, fmt.Errorf("instagram item has no url")
	}

	norm := NormalizedItem{
		Caption: item.Caption,
		URL:     item.URL,
	}
	if item.VideoURL != "" {
		norm.Media = append(norm.Media, MediaRef{URL: item.VideoURL, Kind: scan.MediaKindVideo})
	}
	if item.DisplayURL != "" {
		norm.Media = append(norm.Media, MediaRef{URL: item.DisplayURL, Kind: scan.MediaKindImage})
	}
	for _, img := range item.Images {
		if img != "" {
			norm.Media = append(norm.Media, MediaRef{URL: img, Kind: scan.MediaKindImage})
		}
	}
	return norm, nil
}
