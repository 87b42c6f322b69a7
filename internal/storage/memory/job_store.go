// Package memory provides in-memory store implementations for local runs and
// tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// JobStore keeps jobs and runs in process memory.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]scan.Job
	runs map[string]scan.Run
}

// NewJobStore constructs an empty JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]scan.Job),
		runs: make(map[string]scan.Run),
	}
}

// CreateJob implements scan.JobStore.
func (s *JobStore) CreateJob(_ context.Context, job scan.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus implements scan.JobStore.
func (s *JobStore) UpdateJobStatus(_ context.Context, jobID string, status scan.JobStatus, endTime *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s not found", jobID)
	}
	job.Status = status
	if endTime != nil {
		job.EndTime = endTime
	}
	s.jobs[jobID] = job
	return nil
}

// GetJob implements scan.JobStore.
func (s *JobStore) GetJob(_ context.Context, jobID string) (scan.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scan.Job{}, fmt.Errorf("job %s not found", jobID)
	}
	return job, nil
}

// CreateRun implements scan.JobStore.
func (s *JobStore) CreateRun(_ context.Context, run scan.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

// TransitionRun implements scan.JobStore. Disallowed transitions are rejected
// so a run can never move backwards or leave a terminal status.
func (s *JobStore) TransitionRun(_ context.Context, runID string, to scan.RunStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}
	if !scan.CanTransition(run.Status, to) {
		return fmt.Errorf("run %s cannot transition from %s to %s", runID, run.Status, to)
	}
	run.Status = to
	run.ErrorText = errText
	run.UpdatedAt = time.Now().UTC()
	s.runs[runID] = run
	return nil
}

// ListRunsByStatus implements scan.JobStore.
func (s *JobStore) ListRunsByStatus(_ context.Context, status scan.RunStatus) ([]scan.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scan.Run
	for _, run := range s.runs {
		if run.Status == status {
			out = append(out, run)
		}
	}
	sortRuns(out)
	return out, nil
}

// ListRunsByJob implements scan.JobStore.
func (s *JobStore) ListRunsByJob(_ context.Context, jobID string) ([]scan.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scan.Run
	for _, run := range s.runs {
		if run.JobID == jobID {
			out = append(out, run)
		}
	}
	sortRuns(out)
	return out, nil
}

func sortRuns(runs []scan.Run) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})
}
