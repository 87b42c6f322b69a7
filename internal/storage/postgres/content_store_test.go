package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

func TestCreateContentItemInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewContentStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	item := scan.ContentItem{
		ID:       "item-1",
		JobID:    "job-1",
		RunID:    "run-1",
		Platform: scan.PlatformYouTube,
		Title:    "A Video",
		URL:      "https://youtube.com/watch?v=1",
		Transcript: []scan.TranscriptSegment{
			{StartMs: 0, EndMs: 1000, Text: "hello"},
		},
		CreatedAt: now,
	}

	mock.ExpectExec("INSERT INTO content_items").
		WithArgs(
			item.ID,
			item.JobID,
			item.RunID,
			string(item.Platform),
			item.Title,
			item.Caption,
			item.URL,
			[]byte(`[{"start_ms":0,"end_ms":1000,"text":"hello"}]`),
			item.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateContentItem(context.Background(), item))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateContentItemNilTranscriptStoresNull(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewContentStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	item := scan.ContentItem{
		ID:        "item-2",
		JobID:     "job-1",
		RunID:     "run-1",
		Platform:  scan.PlatformInstagram,
		URL:       "https://instagram.com/p/abc",
		CreatedAt: now,
	}

	mock.ExpectExec("INSERT INTO content_items").
		WithArgs(
			item.ID,
			item.JobID,
			item.RunID,
			string(item.Platform),
			item.Title,
			item.Caption,
			item.URL,
			[]byte(nil),
			item.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateContentItem(context.Background(), item))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateContentMediaInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewContentStore(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	media := scan.ContentMedia{
		ID:            "media-1",
		ContentItemID: "item-1",
		StoragePath:   "gs://bucket/media/job-1/abc123",
		ContentHash:   "abc123",
		Kind:          scan.MediaKindThumbnail,
		CreatedAt:     now,
	}

	mock.ExpectExec("INSERT INTO content_media").
		WithArgs(media.ID, media.ContentItemID, media.StoragePath, media.ContentHash, string(media.Kind), media.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateContentMedia(context.Background(), media))
	require.NoError(t, mock.ExpectationsWereMet())
}
