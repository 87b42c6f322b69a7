// Package orchestrator creates scan jobs, fans out one provider task per
// channel, and aggregates run outcomes into the job's terminal state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/LeoVertizBP/content-scan-engine/internal/metrics"
	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// ErrNoTargets is returned when StartScan is called without channel targets.
var ErrNoTargets = errors.New("orchestrator: no channel targets")

// Orchestrator starts scan jobs and finalizes them once every run is terminal.
type Orchestrator struct {
	jobs     scan.JobStore
	provider scan.Provider
	ids      scan.IDGenerator
	clock    scan.Clock
	logger   *zap.Logger
}

// New constructs an Orchestrator.
func New(
	jobs scan.JobStore,
	provider scan.Provider,
	ids scan.IDGenerator,
	clock scan.Clock,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		jobs:     jobs,
		provider: provider,
		ids:      ids,
		clock:    clock,
		logger:   logger,
	}
}

// StartScan creates one job and requests a provider task per channel target,
// recording a STARTED run for each task that launched. It returns as soon as
// every task request has been issued; it never waits for task completion.
//
// The job leaves this call as RUNNING when every channel started, PARTIAL
// when some failed to start, and FAILED when none started.
func (o *Orchestrator) StartScan(
	ctx context.Context,
	targets []scan.ChannelTarget,
	selections scan.PlatformSelections,
) (scan.Job, error) {
	if len(targets) == 0 {
		return scan.Job{}, ErrNoTargets
	}

	jobID, err := o.ids.NewID()
	if err != nil {
		return scan.Job{}, fmt.Errorf("generate job id: %w", err)
	}
	job := scan.Job{
		ID:        jobID,
		Status:    scan.JobStatusInitializing,
		StartTime: o.clock.Now(),
	}
	if err := o.jobs.CreateJob(ctx, job); err != nil {
		return scan.Job{}, fmt.Errorf("create job: %w", err)
	}

	started, failed := 0, 0
	for _, target := range targets {
		if err := o.startRun(ctx, jobID, target, selections[target.Platform]); err != nil {
			failed++
			o.logger.Warn("channel task failed to start",
				zap.String("job_id", jobID),
				zap.String("channel_id", target.ChannelID),
				zap.String("platform", string(target.Platform)),
				zap.Error(err),
			)
			continue
		}
		started++
	}

	job.Status = deriveStartStatus(started, failed)
	var endTime *time.Time
	if job.Status == scan.JobStatusFailed {
		end := o.clock.Now()
		endTime = &end
		job.EndTime = endTime
	}
	if err := o.jobs.UpdateJobStatus(ctx, jobID, job.Status, endTime); err != nil {
		return scan.Job{}, fmt.Errorf("update job status: %w", err)
	}
	metrics.ObserveJob(string(job.Status))
	o.logger.Info("scan started",
		zap.String("job_id", jobID),
		zap.String("status", string(job.Status)),
		zap.Int("runs_started", started),
		zap.Int("runs_failed_to_start", failed),
	)
	return job, nil
}

// startRun asks the provider for a task and records the run holding its handle.
func (o *Orchestrator) startRun(ctx context.Context, jobID string, target scan.ChannelTarget, maxResults int) error {
	if target.URL == "" {
		return fmt.Errorf("channel %q has no url", target.ChannelID)
	}
	handle, err := o.provider.StartTask(ctx, target.Platform, scan.TaskParams{
		ChannelURL: target.URL,
		MaxResults: maxResults,
	})
	if err != nil {
		return fmt.Errorf("start provider task: %w", err)
	}

	runID, err := o.ids.NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	now := o.clock.Now()
	run := scan.Run{
		ID:         runID,
		JobID:      jobID,
		ChannelID:  target.ChannelID,
		Platform:   target.Platform,
		TaskHandle: handle,
		Status:     scan.RunStatusStarted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.jobs.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	metrics.ObserveRun(string(scan.RunStatusStarted))
	return nil
}

// FinalizeIfComplete aggregates run outcomes into the job's terminal status.
// It is a no-op while any run is non-terminal or the job is already terminal.
func (o *Orchestrator) FinalizeIfComplete(ctx context.Context, jobID string) error {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job.Status.Terminal() {
		return nil
	}

	runs, err := o.jobs.ListRunsByJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		return nil
	}

	allCompleted := true
	for _, run := range runs {
		if !run.Status.Terminal() {
			return nil
		}
		if run.Status != scan.RunStatusCompleted {
			allCompleted = false
		}
	}

	status := scan.JobStatusCompletedWithErrors
	if allCompleted {
		status = scan.JobStatusCompleted
	}
	end := o.clock.Now()
	if err := o.jobs.UpdateJobStatus(ctx, jobID, status, &end); err != nil {
		return fmt.Errorf("finalize job: %w", err)
	}
	metrics.ObserveJob(string(status))
	o.logger.Info("job finalized",
		zap.String("job_id", jobID),
		zap.String("status", string(status)),
	)
	return nil
}

func deriveStartStatus(started, failed int) scan.JobStatus {
	switch {
	case started == 0:
		return scan.JobStatusFailed
	case failed > 0:
		return scan.JobStatusPartial
	default:
		return scan.JobStatusRunning
	}
}
