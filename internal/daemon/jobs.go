package daemon

import (
	"context"
	"errors"

	"log/slog"

	"lectern/internal/api"
	"lectern/internal/artifacts"
	"lectern/internal/logging"
	"lectern/internal/queue"
)

// ListJobs returns jobs filtered by optional statuses, oldest first.
func (d *Daemon) ListJobs(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("job store unavailable")
	}
	return d.store.List(ctx, statuses...)
}

// GetJob returns one job by identifier, or nil when it does not exist.
func (d *Daemon) GetJob(ctx context.Context, id string) (*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("job store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// RetryJobs resets failed jobs back to pending. An empty id list retries every
// failed job the store allows; explicit ids report a per-job outcome.
func (d *Daemon) RetryJobs(ctx context.Context, ids []string) (api.RetryJobsResult, error) {
	if d.store == nil {
		return api.RetryJobsResult{}, errors.New("job store unavailable")
	}
	if len(ids) == 0 {
		updated, err := d.store.RetryFailed(ctx)
		return api.RetryJobsResult{UpdatedCount: updated}, err
	}
	return api.RetryFailedJobsByID(ctx, d.actions(), ids)
}

// StopJobs requests cancellation for the given jobs.
func (d *Daemon) StopJobs(ctx context.Context, ids []string) (api.StopJobsResult, error) {
	if d.store == nil {
		return api.StopJobsResult{}, errors.New("job store unavailable")
	}
	if len(ids) == 0 {
		return api.StopJobsResult{}, errors.New("stop requires at least one job id")
	}
	return api.StopJobsByID(ctx, d.actions(), ids)
}

// RemoveJobs deletes job records together with their artifact directories.
func (d *Daemon) RemoveJobs(ctx context.Context, ids []string) (api.RemoveJobsResult, error) {
	if d.store == nil {
		return api.RemoveJobsResult{}, errors.New("job store unavailable")
	}
	if len(ids) == 0 {
		return api.RemoveJobsResult{}, errors.New("remove requires at least one job id")
	}
	return api.RemoveJobsByID(ctx, d.actions(), ids)
}

func (d *Daemon) actions() *jobActions {
	return &jobActions{
		store:     d.store,
		jobs:      api.NewJobService(d.store),
		artifacts: d.artifacts,
		logger:    d.logger,
	}
}

// jobActions binds the store and artifact layer behind the api package's
// action workflows.
type jobActions struct {
	store     *queue.Store
	jobs      *api.JobService
	artifacts *artifacts.Store
	logger    *slog.Logger
}

func (a *jobActions) Describe(ctx context.Context, id string) (*api.Job, error) {
	return a.jobs.Describe(ctx, id)
}

func (a *jobActions) Retry(ctx context.Context, ids []string) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

func (a *jobActions) Stop(ctx context.Context, id string) (bool, error) {
	return a.store.RequestCancel(ctx, id)
}

// Remove deletes the row first; the store refuses jobs a worker still holds.
// Artifact cleanup failure leaves orphaned files but the job is gone, so the
// removal still counts.
func (a *jobActions) Remove(ctx context.Context, id string) (bool, error) {
	removed, err := a.store.Remove(ctx, id)
	if err != nil || !removed {
		return removed, err
	}
	if a.artifacts != nil {
		if cleanupErr := a.artifacts.RemoveJob(id); cleanupErr != nil && a.logger != nil {
			a.logger.Warn("failed to remove job artifacts",
				logging.Error(cleanupErr),
				logging.String(logging.FieldJobID, id),
				logging.String(logging.FieldEventType, "artifact_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "remove the job directory under the artifact root manually"))
		}
	}
	return true, nil
}
