package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/LeoVertizBP/content-scan-engine/internal/orchestrator"
	providermem "github.com/LeoVertizBP/content-scan-engine/internal/provider/memory"
	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
	storagemem "github.com/LeoVertizBP/content-scan-engine/internal/storage/memory"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakeIDs struct {
	seq int
}

func (g *fakeIDs) NewID() (string, error) {
	g.seq++
	return fmt.Sprintf("id-%d", g.seq), nil
}

// fakeIngestor records ingested items and fails payloads containing "bad".
type fakeIngestor struct {
	ingested []scan.RawItem
}

func (f *fakeIngestor) IngestResultItem(_ context.Context, _ scan.Run, raw scan.RawItem) (scan.ContentItem, error) {
	var payload struct {
		Bad bool `json:"bad"`
	}
	_ = json.Unmarshal(raw, &payload)
	if payload.Bad {
		return scan.ContentItem{}, errors.New("extraction failed")
	}
	f.ingested = append(f.ingested, raw)
	return scan.ContentItem{ID: "item"}, nil
}

// flakyProvider fails TaskStatus a set number of times before delegating.
type flakyProvider struct {
	scan.Provider
	statusFailures int
	resultsErr     error
}

func (p *flakyProvider) TaskStatus(ctx context.Context, handle string) (scan.TaskState, error) {
	if p.statusFailures > 0 {
		p.statusFailures--
		return "", errors.New("status check timed out")
	}
	return p.Provider.TaskStatus(ctx, handle)
}

func (p *flakyProvider) TaskResults(ctx context.Context, handle string) ([]scan.RawItem, error) {
	if p.resultsErr != nil {
		return nil, p.resultsErr
	}
	return p.Provider.TaskResults(ctx, handle)
}

type fixture struct {
	store    *storagemem.JobStore
	provider *providermem.Provider
	ingestor *fakeIngestor
	monitor  *Monitor
	job      scan.Job
	runs     []scan.Run
}

func newFixture(t *testing.T, provider scan.Provider, mem *providermem.Provider, targets ...scan.ChannelTarget) *fixture {
	t.Helper()

	store := storagemem.NewJobStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	orch := orchestrator.New(store, provider, &fakeIDs{}, clock, nil)

	job, err := orch.StartScan(context.Background(), targets, nil)
	require.NoError(t, err)

	runs, err := store.ListRunsByJob(context.Background(), job.ID)
	require.NoError(t, err)

	ingestor := &fakeIngestor{}
	return &fixture{
		store:    store,
		provider: mem,
		ingestor: ingestor,
		monitor:  New(store, provider, ingestor, orch, Config{Interval: time.Minute}, nil),
		job:      job,
		runs:     runs,
	}
}

func singleTarget() scan.ChannelTarget {
	return scan.ChannelTarget{ChannelID: "ch-yt", Platform: scan.PlatformYouTube, URL: "https://youtube.com/@acme"}
}

func (f *fixture) runStatus(t *testing.T, runID string) scan.RunStatus {
	t.Helper()
	runs, err := f.store.ListRunsByJob(context.Background(), f.job.ID)
	require.NoError(t, err)
	for _, run := range runs {
		if run.ID == runID {
			return run.Status
		}
	}
	t.Fatalf("run %s not found", runID)
	return ""
}

func TestPollLeavesPendingRunAlone(t *testing.T) {
	t.Parallel()

	mem := providermem.New()
	f := newFixture(t, mem, mem, singleTarget())

	require.NoError(t, f.monitor.PollActiveRuns(context.Background()))
	require.Equal(t, scan.RunStatusStarted, f.runStatus(t, f.runs[0].ID))
}

func TestPollRetriesAfterTransientStatusError(t *testing.T) {
	t.Parallel()

	mem := providermem.New()
	flaky := &flakyProvider{Provider: mem, statusFailures: 1}
	f := newFixture(t, flaky, mem, singleTarget())

	mem.SetState(f.runs[0].TaskHandle, scan.TaskStateSucceeded)
	mem.SetResults(f.runs[0].TaskHandle, []scan.RawItem{json.RawMessage(`{"url":"u"}`)})

	// First cycle hits the transient error and must not touch the run.
	require.NoError(t, f.monitor.PollActiveRuns(context.Background()))
	require.Equal(t, scan.RunStatusStarted, f.runStatus(t, f.runs[0].ID))

	// Second cycle sees the real state and drains the run.
	require.NoError(t, f.monitor.PollActiveRuns(context.Background()))
	require.Equal(t, scan.RunStatusCompleted, f.runStatus(t, f.runs[0].ID))
}

func TestPollDrainsSucceededRun(t *testing.T) {
	t.Parallel()

	mem := providermem.New()
	f := newFixture(t, mem, mem, singleTarget())

	mem.SetState(f.runs[0].TaskHandle, scan.TaskStateSucceeded)
	mem.SetResults(f.runs[0].TaskHandle, []scan.RawItem{
		json.RawMessage(`{"url":"https://youtube.com/watch?v=1"}`),
		json.RawMessage(`{"url":"https://youtube.com/watch?v=2"}`),
	})

	require.NoError(t, f.monitor.PollActiveRuns(context.Background()))

	require.Equal(t, scan.RunStatusCompleted, f.runStatus(t, f.runs[0].ID))
	require.Len(t, f.ingestor.ingested, 2)

	job, err := f.store.GetJob(context.Background(), f.job.ID)
	require.NoError(t, err)
	require.Equal(t, scan.JobStatusCompleted, job.Status)
	require.NotNil(t, job.EndTime)
}

func TestPollMarksResultsFetchFailure(t *testing.T) {
	t.Parallel()

	mem := providermem.New()
	flaky := &flakyProvider{Provider: mem, resultsErr: errors.New("dataset unavailable")}
	f := newFixture(t, flaky, mem, singleTarget())

	mem.SetState(f.runs[0].TaskHandle, scan.TaskStateSucceeded)

	require.NoError(t, f.monitor.PollActiveRuns(context.Background()))
	require.Equal(t, scan.RunStatusProcessingFailed, f.runStatus(t, f.runs[0].ID))

	job, err := f.store.GetJob(context.Background(), f.job.ID)
	require.NoError(t, err)
	require.Equal(t, scan.JobStatusCompletedWithErrors, job.Status)
}

func TestPollMarksPartialIngestionFailure(t *testing.T) {
	t.Parallel()

	mem := providermem.New()
	f := newFixture(t, mem, mem, singleTarget())

	mem.SetState(f.runs[0].TaskHandle, scan.TaskStateSucceeded)
	mem.SetResults(f.runs[0].TaskHandle, []scan.RawItem{
		json.RawMessage(`{"url":"ok"}`),
		json.RawMessage(`{"bad":true}`),
		json.RawMessage(`{"url":"also ok"}`),
	})

	require.NoError(t, f.monitor.PollActiveRuns(context.Background()))

	// Good items were still ingested even though the run is marked failed.
	require.Len(t, f.ingestor.ingested, 2)
	require.Equal(t, scan.RunStatusProcessingFailed, f.runStatus(t, f.runs[0].ID))
}

func TestPollFailsRunOnProviderFailure(t *testing.T) {
	t.Parallel()

	for _, state := range []scan.TaskState{scan.TaskStateFailed, scan.TaskStateTimedOut, scan.TaskStateAborted} {
		state := state
		t.Run(string(state), func(t *testing.T) {
			t.Parallel()

			mem := providermem.New()
			f := newFixture(t, mem, mem, singleTarget())

			mem.SetState(f.runs[0].TaskHandle, state)

			require.NoError(t, f.monitor.PollActiveRuns(context.Background()))
			require.Equal(t, scan.RunStatusFailed, f.runStatus(t, f.runs[0].ID))

			job, err := f.store.GetJob(context.Background(), f.job.ID)
			require.NoError(t, err)
			require.Equal(t, scan.JobStatusCompletedWithErrors, job.Status)
		})
	}
}

func TestPollMixedOutcomesAcrossRuns(t *testing.T) {
	t.Parallel()

	mem := providermem.New()
	f := newFixture(t, mem, mem,
		scan.ChannelTarget{ChannelID: "ch-a", Platform: scan.PlatformYouTube, URL: "https://youtube.com/@a"},
		scan.ChannelTarget{ChannelID: "ch-b", Platform: scan.PlatformTikTok, URL: "https://tiktok.com/@b"},
	)

	mem.SetState(f.runs[0].TaskHandle, scan.TaskStateSucceeded)
	mem.SetResults(f.runs[0].TaskHandle, []scan.RawItem{json.RawMessage(`{"url":"u"}`)})
	mem.SetState(f.runs[1].TaskHandle, scan.TaskStateFailed)

	require.NoError(t, f.monitor.PollActiveRuns(context.Background()))

	require.Equal(t, scan.RunStatusCompleted, f.runStatus(t, f.runs[0].ID))
	require.Equal(t, scan.RunStatusFailed, f.runStatus(t, f.runs[1].ID))

	job, err := f.store.GetJob(context.Background(), f.job.ID)
	require.NoError(t, err)
	require.Equal(t, scan.JobStatusCompletedWithErrors, job.Status)
	require.NotNil(t, job.EndTime)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	mem := providermem.New()
	f := newFixture(t, mem, mem, singleTarget())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.monitor.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}
