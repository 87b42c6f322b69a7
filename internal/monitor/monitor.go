// Package monitor polls active runs against the provider, drains finished
// tasks through the ingestion pipeline, and settles run outcomes.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LeoVertizBP/content-scan-engine/internal/metrics"
	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// DefaultInterval is the poll cadence used when none is configured.
const DefaultInterval = 30 * time.Second

// Ingestor processes one raw result item. Satisfied by *ingest.Pipeline.
type Ingestor interface {
	IngestResultItem(ctx context.Context, run scan.Run, raw scan.RawItem) (scan.ContentItem, error)
}

// Finalizer settles a job once its runs are terminal. Satisfied by
// *orchestrator.Orchestrator.
type Finalizer interface {
	FinalizeIfComplete(ctx context.Context, jobID string) error
}

// Config controls Monitor behavior.
type Config struct {
	Interval time.Duration
}

// Monitor drives active runs to completion.
type Monitor struct {
	jobs      scan.JobStore
	provider  scan.Provider
	ingestor  Ingestor
	finalizer Finalizer
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Monitor.
func New(
	jobs scan.JobStore,
	provider scan.Provider,
	ingestor Ingestor,
	finalizer Finalizer,
	cfg Config,
	logger *zap.Logger,
) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		jobs:      jobs,
		provider:  provider,
		ingestor:  ingestor,
		finalizer: finalizer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run polls on a fixed interval until the context is canceled. The first
// poll happens immediately.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := m.PollActiveRuns(ctx); err != nil {
			m.logger.Error("poll cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PollActiveRuns checks every STARTED run against the provider once. Runs
// whose tasks are still pending stay STARTED; transient status errors leave
// the run untouched for the next cycle.
func (m *Monitor) PollActiveRuns(ctx context.Context) error {
	runs, err := m.jobs.ListRunsByStatus(ctx, scan.RunStatusStarted)
	if err != nil {
		return fmt.Errorf("list active runs: %w", err)
	}

	for _, run := range runs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.pollRun(ctx, run)
	}
	return nil
}

func (m *Monitor) pollRun(ctx context.Context, run scan.Run) {
	state, err := m.provider.TaskStatus(ctx, run.TaskHandle)
	if err != nil {
		metrics.ObservePoll("error")
		m.logger.Warn("task status check failed, will retry",
			zap.String("run_id", run.ID),
			zap.String("task_handle", run.TaskHandle),
			zap.Error(err),
		)
		return
	}
	metrics.ObservePoll(strings.ToLower(string(state)))

	switch {
	case !state.Terminal():
		return
	case state.Succeeded():
		m.drainRun(ctx, run)
	default:
		m.failRun(ctx, run, state)
	}
}

// drainRun moves a successful run through result fetching and ingestion.
func (m *Monitor) drainRun(ctx context.Context, run scan.Run) {
	if err := m.transition(ctx, run, scan.RunStatusFetchingResults, ""); err != nil {
		return
	}

	items, err := m.provider.TaskResults(ctx, run.TaskHandle)
	if err != nil {
		m.logger.Error("task results fetch failed",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
		_ = m.transition(ctx, run, scan.RunStatusProcessingFailed, fmt.Sprintf("fetch results: %v", err))
		m.finalize(ctx, run.JobID)
		return
	}

	failures := 0
	for _, raw := range items {
		if _, err := m.ingestor.IngestResultItem(ctx, run, raw); err != nil {
			failures++
			m.logger.Error("item ingestion failed",
				zap.String("run_id", run.ID),
				zap.Error(err),
			)
		}
	}

	if failures > 0 {
		errText := fmt.Sprintf("%d of %d items failed ingestion", failures, len(items))
		_ = m.transition(ctx, run, scan.RunStatusProcessingFailed, errText)
	} else {
		_ = m.transition(ctx, run, scan.RunStatusCompleted, "")
		m.logger.Info("run completed",
			zap.String("run_id", run.ID),
			zap.Int("items", len(items)),
		)
	}
	m.finalize(ctx, run.JobID)
}

// failRun settles a run whose provider task ended unsuccessfully.
func (m *Monitor) failRun(ctx context.Context, run scan.Run, state scan.TaskState) {
	errText := fmt.Sprintf("provider task ended %s", state)
	if err := m.transition(ctx, run, scan.RunStatusFailed, errText); err != nil {
		return
	}
	m.logger.Warn("run failed",
		zap.String("run_id", run.ID),
		zap.String("task_state", string(state)),
	)
	m.finalize(ctx, run.JobID)
}

func (m *Monitor) transition(ctx context.Context, run scan.Run, to scan.RunStatus, errText string) error {
	if err := m.jobs.TransitionRun(ctx, run.ID, to, errText); err != nil {
		m.logger.Error("run transition failed",
			zap.String("run_id", run.ID),
			zap.String("to", string(to)),
			zap.Error(err),
		)
		return err
	}
	metrics.ObserveRun(string(to))
	return nil
}

func (m *Monitor) finalize(ctx context.Context, jobID string) {
	if err := m.finalizer.FinalizeIfComplete(ctx, jobID); err != nil {
		m.logger.Error("job finalize failed",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}
