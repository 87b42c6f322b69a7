package platform

import (
	"encoding/json"
	"fmt"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// tiktokItem mirrors the fields of the provider's TikTok scraper output we
// care about.
type tiktokItem struct {
	Text        string `json:"text"`
	WebVideoURL string `json:"webVideoUrl"`
	VideoMeta   struct {
		CoverURL     string `json:"coverUrl"`
		DownloadAddr string `json:"downloadAddr"`
		SubtitleURL  string `json:"subtitleUrl"`
	} `json:"videoMeta"`
}

// TikTokExtractor normalizes TikTok post items.
type TikTokExtractor struct{}

// Platform implements Extractor.
func (TikTokExtractor) Platform() scan.Platform {
	return scan.PlatformTikTok
}

// ExtractFields implements Extractor.
func (TikTokExtractor) ExtractFields(raw scan.RawItem) (NormalizedItem, error) {
	var item tiktokItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return NormalizedItem{}, fmt.Errorf("decode tiktok item: %w", err)
	}
	if item.WebVideoURL == "" {
		return NormalizedItem{}, fmt.Errorf("tiktok item has no url")
	}

	norm := NormalizedItem{
		Caption:       item.Text,
		URL:           item.WebVideoURL,
		TranscriptRef: item.VideoMeta.SubtitleURL,
	}
	if item.VideoMeta.CoverURL != "" {
		norm.Media = append(norm.Media, MediaRef{URL: item.VideoMeta.CoverURL, Kind: scan.MediaKindThumbnail})
	}
	if item.VideoMeta.DownloadAddr != "" {
		norm.Media = append(norm.Media, MediaRef{URL: item.VideoMeta.DownloadAddr, Kind: scan.MediaKindVideo})
	}
	return norm, nil
}
