package platform

import (
	"encoding/json"
	"fmt"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// youtubeItem mirrors the fields of the provider's YouTube scraper output we
// care about.
type youtubeItem struct {
	Title        string `json:"title"`
	Text         string `json:"text"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Subtitles    []struct {
		SrtURL string `json:"srtUrl"`
		VttURL string `json:"vttUrl"`
	} `json:"subtitles"`
}

// YouTubeExtractor normalizes YouTube video items.
type YouTubeExtractor struct{}

// Platform implements Extractor.
func (YouTubeExtractor) Platform() scan.Platform {
	return scan.PlatformYouTube
}

// ExtractFields implements Extractor.
func (YouTubeExtractor) ExtractFields(raw scan.RawItem) (NormalizedItem, error) {
	var item youtubeItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return NormalizedItem{}, fmt.Errorf("decode youtube item: %w", err)
	}
	if item.URL == "" {
		return NormalizedItem{}, fmt.Errorf("youtube item has no url")
	}

	norm := NormalizedItem{
		Title:   item.Title,
		Caption: item.Text,
		URL:     item.URL,
	}
	if item.ThumbnailURL != "" {
		norm.Media = append(norm.Media, MediaRef{URL: item.ThumbnailURL, Kind: scan.MediaKindThumbnail})
	}
	for _, sub := range item.Subtitles {
		switch {
		case sub.SrtURL != "":
			norm.TranscriptRef = sub.SrtURL
		case sub.VttURL != "":
			norm.TranscriptRef = sub.VttURL
		default:
			continue
		}
		break
	}
	return norm, nil
}
