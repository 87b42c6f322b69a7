// Package ingest normalizes one provider result item into durable content and
// media records, then signals downstream analysis.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/LeoVertizBP/content-scan-engine/internal/fetch"
	"github.com/LeoVertizBP/content-scan-engine/internal/metrics"
	"github.com/LeoVertizBP/content-scan-engine/internal/platform"
	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
	"github.com/LeoVertizBP/content-scan-engine/internal/transcript"
)

// Fetcher downloads media assets. Satisfied by *fetch.Client.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (fetch.Response, error)
}

// ResourceFetcher retrieves auxiliary resources (subtitle files) referenced
// by result items. Satisfied by any scan.Provider.
type ResourceFetcher interface {
	FetchResource(ctx context.Context, ref string) ([]byte, error)
}

// Config controls Pipeline behavior.
type Config struct {
	BlobPrefix string
}

// Pipeline converts raw result items into ContentItem and ContentMedia rows.
type Pipeline struct {
	extractors *platform.Registry
	resources  ResourceFetcher
	downloader Fetcher
	content    scan.ContentStore
	blobs      scan.BlobStore
	notifier   scan.Notifier
	hasher     scan.Hasher
	clock      scan.Clock
	ids        scan.IDGenerator
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Pipeline.
func New(
	extractors *platform.Registry,
	resources ResourceFetcher,
	downloader Fetcher,
	content scan.ContentStore,
	blobs scan.BlobStore,
	notifier scan.Notifier,
	hasher scan.Hasher,
	clock scan.Clock,
	ids scan.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		extractors: extractors,
		resources:  resources,
		downloader: downloader,
		content:    content,
		blobs:      blobs,
		notifier:   notifier,
		hasher:     hasher,
		clock:      clock,
		ids:        ids,
		cfg:        cfg,
		logger:     logger,
	}
}

// IngestResultItem persists one raw result item as a ContentItem plus its
// media rows and notifies downstream analysis once everything is durable.
//
// Transcript and media failures degrade the item rather than failing it; the
// returned error is non-nil only when the item itself cannot be extracted or
// written.
func (p *Pipeline) IngestResultItem(ctx context.Context, run scan.Run, raw scan.RawItem) (scan.ContentItem, error) {
	extractor, err := p.extractors.ForPlatform(run.Platform)
	if err != nil {
		metrics.ObserveItem(string(run.Platform), "unsupported")
		return scan.ContentItem{}, err
	}
	norm, err := extractor.ExtractFields(raw)
	if err != nil {
		metrics.ObserveItem(string(run.Platform), "extract_error")
		return scan.ContentItem{}, fmt.Errorf("extract fields: %w", err)
	}

	itemID, err := p.ids.NewID()
	if err != nil {
		return scan.ContentItem{}, fmt.Errorf("generate content id: %w", err)
	}

	item := scan.ContentItem{
		ID:        itemID,
		JobID:     run.JobID,
		RunID:     run.ID,
		Platform:  run.Platform,
		Title:     norm.Title,
		Caption:   norm.Caption,
		URL:       norm.URL,
		CreatedAt: p.clock.Now(),
	}
	item.Transcript = p.fetchTranscript(ctx, run, norm.TranscriptRef)

	mediaRows := p.storeMedia(ctx, run, itemID, norm.Media)

	// The item row must exist before its media rows, and both before the
	// downstream notification.
	if err := p.content.CreateContentItem(ctx, item); err != nil {
		metrics.ObserveItem(string(run.Platform), "persist_error")
		return scan.ContentItem{}, fmt.Errorf("persist content item: %w", err)
	}
	for _, media := range mediaRows {
		if err := p.content.CreateContentMedia(ctx, media); err != nil {
			p.logger.Error("persist content media failed",
				zap.String("content_item_id", itemID),
				zap.String("storage_path", media.StoragePath),
				zap.Error(err),
			)
		}
	}

	if err := p.notifier.NotifyContentReady(ctx, itemID); err != nil {
		// Fire-and-forget: the content is durable, analysis can be re-triggered.
		p.logger.Warn("downstream notification failed",
			zap.String("content_item_id", itemID),
			zap.Error(err),
		)
	}

	metrics.ObserveItem(string(run.Platform), "ok")
	return item, nil
}

// fetchTranscript retrieves and parses the referenced subtitle resource.
// Any failure downgrades to "no transcript".
func (p *Pipeline) fetchTranscript(ctx context.Context, run scan.Run, ref string) []scan.TranscriptSegment {
	if ref == "" {
		return nil
	}
	data, err := p.resources.FetchResource(ctx, ref)
	if err != nil {
		p.logger.Warn("transcript fetch failed; continuing without transcript",
			zap.String("run_id", run.ID),
			zap.String("ref", ref),
			zap.Error(err),
		)
		return nil
	}
	segments, err := transcript.Parse(data)
	if err != nil {
		p.logger.Warn("transcript parse failed; continuing without transcript",
			zap.String("run_id", run.ID),
			zap.String("ref", ref),
			zap.Error(err),
		)
		return nil
	}
	return segments
}

// storeMedia downloads, hashes, and uploads each referenced asset, returning
// one ContentMedia row per unique asset. Per-asset failures are logged and
// skipped.
func (p *Pipeline) storeMedia(ctx context.Context, run scan.Run, itemID string, refs []platform.MediaRef) []scan.ContentMedia {
	var rows []scan.ContentMedia
	seenHashes := make(map[string]struct{}, len(refs))

	for _, ref := range refs {
		resp, err := p.downloader.Get(ctx, ref.URL)
		if err != nil || !resp.OK() {
			metrics.ObserveMediaUpload("download_error")
			p.logger.Warn("media download failed",
				zap.String("run_id", run.ID),
				zap.String("url", ref.URL),
				zap.Error(err),
			)
			continue
		}

		hash, err := p.hasher.Hash(resp.Body)
		if err != nil {
			metrics.ObserveMediaUpload("hash_error")
			p.logger.Warn("media hash failed", zap.String("url", ref.URL), zap.Error(err))
			continue
		}
		if _, dup := seenHashes[hash]; dup {
			continue
		}
		seenHashes[hash] = struct{}{}

		blobPath := p.buildBlobPath(run.JobID, hash)
		storagePath, err := p.blobs.PutObject(ctx, blobPath, resp.ContentType, resp.Body)
		if err != nil {
			metrics.ObserveMediaUpload("upload_error")
			p.logger.Warn("media upload failed",
				zap.String("run_id", run.ID),
				zap.String("url", ref.URL),
				zap.Error(err),
			)
			continue
		}

		mediaID, err := p.ids.NewID()
		if err != nil {
			p.logger.Warn("media id generation failed", zap.Error(err))
			continue
		}
		metrics.ObserveMediaUpload("ok")
		rows = append(rows, scan.ContentMedia{
			ID:            mediaID,
			ContentItemID: itemID,
			StoragePath:   storagePath,
			ContentHash:   hash,
			Kind:          ref.Kind,
			CreatedAt:     p.clock.Now(),
		})
	}
	return rows
}

func (p *Pipeline) buildBlobPath(jobID, hash string) string {
	prefix := strings.Trim(p.cfg.BlobPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s", jobID, hash)
	}
	return fmt.Sprintf("%s/%s/%s", prefix, jobID, hash)
}
