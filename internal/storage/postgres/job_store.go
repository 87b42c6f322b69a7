// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/LeoVertizBP/content-scan-engine/internal/scan"
)

// pgxPool is the subset of pgxpool.Pool the stores use. pgxmock satisfies it.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PoolConfig controls the Postgres connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// NewPool opens a pgx connection pool from config.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// JobStore persists jobs and runs in Postgres.
type JobStore struct {
	pool pgxPool
}

// NewJobStore constructs a JobStore from an existing pool.
func NewJobStore(pool pgxPool) (*JobStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &JobStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateJob implements scan.JobStore.
func (s *JobStore) CreateJob(ctx context.Context, job scan.Job) error {
	if job.ID == "" {
		return errors.New("job id is required")
	}
	const query = `
INSERT INTO scan_jobs (id, status, start_time, end_time)
VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, job.ID, string(job.Status), job.StartTime, job.EndTime); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJobStatus implements scan.JobStore.
func (s *JobStore) UpdateJobStatus(ctx context.Context, jobID string, status scan.JobStatus, endTime *time.Time) error {
	const query = `
UPDATE scan_jobs SET status = $2, end_time = COALESCE($3, end_time)
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, jobID, string(status), endTime)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", jobID)
	}
	return nil
}

// GetJob implements scan.JobStore.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (scan.Job, error) {
	const query = `
SELECT id, status, start_time, end_time
FROM scan_jobs WHERE id = $1`
	var (
		job    scan.Job
		status string
	)
	err := s.pool.QueryRow(ctx, query, jobID).Scan(&job.ID, &status, &job.StartTime, &job.EndTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return scan.Job{}, fmt.Errorf("job %s not found", jobID)
	}
	if err != nil {
		return scan.Job{}, fmt.Errorf("select job: %w", err)
	}
	job.Status = scan.JobStatus(status)
	return job, nil
}

// CreateRun implements scan.JobStore.
func (s *JobStore) CreateRun(ctx context.Context, run scan.Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	const query = `
INSERT INTO scan_runs (id, job_id, channel_id, platform, task_handle, status, error_text, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, query,
		run.ID,
		run.JobID,
		run.ChannelID,
		string(run.Platform),
		run.TaskHandle,
		string(run.Status),
		run.ErrorText,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// TransitionRun implements scan.JobStore. The WHERE clause restricts the
// update to statuses that may legally precede the target, so concurrent or
// repeated transitions cannot move a run backwards.
func (s *JobStore) TransitionRun(ctx context.Context, runID string, to scan.RunStatus, errText string) error {
	froms := transitionSources(to)
	if len(froms) == 0 {
		return fmt.Errorf("run status %s is not a valid transition target", to)
	}
	const query = `
UPDATE scan_runs SET status = $2, error_text = $3, updated_at = $4
WHERE id = $1 AND status = ANY($5)`
	tag, err := s.pool.Exec(ctx, query, runID, string(to), errText, time.Now().UTC(), froms)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run %s not found or cannot transition to %s", runID, to)
	}
	return nil
}

// ListRunsByStatus implements scan.JobStore.
func (s *JobStore) ListRunsByStatus(ctx context.Context, status scan.RunStatus) ([]scan.Run, error) {
	const query = `
SELECT id, job_id, channel_id, platform, task_handle, status, error_text, created_at, updated_at
FROM scan_runs WHERE status = $1 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// ListRunsByJob implements scan.JobStore.
func (s *JobStore) ListRunsByJob(ctx context.Context, jobID string) ([]scan.Run, error) {
	const query = `
SELECT id, job_id, channel_id, platform, task_handle, status, error_text, created_at, updated_at
FROM scan_runs WHERE job_id = $1 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

func scanRuns(rows pgx.Rows) ([]scan.Run, error) {
	var out []scan.Run
	for rows.Next() {
		var (
			run      scan.Run
			platform string
			status   string
		)
		err := rows.Scan(
			&run.ID,
			&run.JobID,
			&run.ChannelID,
			&platform,
			&run.TaskHandle,
			&status,
			&run.ErrorText,
			&run.CreatedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Platform = scan.Platform(platform)
		run.Status = scan.RunStatus(status)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// transitionSources lists the statuses allowed to precede a target status.
func transitionSources(to scan.RunStatus) []string {
	all := []scan.RunStatus{
		scan.RunStatusStarted,
		scan.RunStatusFetchingResults,
		scan.RunStatusCompleted,
		scan.RunStatusProcessingFailed,
		scan.RunStatusFailed,
	}
	var froms []string
	for _, from := range all {
		if scan.CanTransition(from, to) {
			froms = append(froms, string(from))
		}
	}
	return froms
}
