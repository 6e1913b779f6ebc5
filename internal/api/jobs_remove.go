package api

import (
	"context"

	"lectern/internal/queue"
)

// JobRemoveService captures queue operations needed by per-job remove workflows.
// Remove is expected to delete the job record and its artifact directory
// together; the store refuses rows a worker currently holds.
type JobRemoveService interface {
	Describe(ctx context.Context, id string) (*Job, error)
	Remove(ctx context.Context, id string) (bool, error)
}

type RemoveJobOutcome string

const (
	RemoveJobRemoved    RemoveJobOutcome = "removed"
	RemoveJobNotFound   RemoveJobOutcome = "not_found"
	RemoveJobProcessing RemoveJobOutcome = "processing"
)

type RemoveJobResult struct {
	ID      string           `json:"id"`
	Outcome RemoveJobOutcome `json:"outcome"`
}

type RemoveJobsResult struct {
	RemovedCount int64             `json:"removedCount"`
	Jobs         []RemoveJobResult `json:"jobs"`
}

// RemoveJobsByID removes jobs one-by-one so each ID can report its outcome.
// Processing jobs are refused; stop the job first, then remove it.
func RemoveJobsByID(ctx context.Context, service JobRemoveService, ids []string) (RemoveJobsResult, error) {
	result := RemoveJobsResult{Jobs: make([]RemoveJobResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Describe(ctx, id)
		if err != nil {
			return RemoveJobsResult{}, err
		}
		if job == nil {
			result.Jobs = append(result.Jobs, RemoveJobResult{ID: id, Outcome: RemoveJobNotFound})
			continue
		}
		if job.Status == string(queue.StatusProcessing) {
			result.Jobs = append(result.Jobs, RemoveJobResult{ID: id, Outcome: RemoveJobProcessing})
			continue
		}
		removed, err := service.Remove(ctx, id)
		if err != nil {
			return RemoveJobsResult{}, err
		}
		if removed {
			result.RemovedCount++
			result.Jobs = append(result.Jobs, RemoveJobResult{ID: id, Outcome: RemoveJobRemoved})
			continue
		}
		// The row slipped into processing or vanished between the describe
		// and the delete. The store's guard decides which.
		result.Jobs = append(result.Jobs, RemoveJobResult{ID: id, Outcome: RemoveJobNotFound})
	}
	return result, nil
}
