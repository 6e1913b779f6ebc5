package api

import (
	"context"

	"lectern/internal/queue"
)

// JobActionService captures queue operations needed by per-job retry/stop workflows.
type JobActionService interface {
	Describe(ctx context.Context, id string) (*Job, error)
	Retry(ctx context.Context, ids []string) (int64, error)
	Stop(ctx context.Context, id string) (bool, error)
}

type RetryJobOutcome string

const (
	RetryJobUpdated      RetryJobOutcome = "retried"
	RetryJobNotFound     RetryJobOutcome = "not_found"
	RetryJobNotFailed    RetryJobOutcome = "not_failed"
	RetryJobNotRetryable RetryJobOutcome = "not_retryable"
)

type RetryJobResult struct {
	ID        string          `json:"id"`
	Outcome   RetryJobOutcome `json:"outcome"`
	NewStatus string          `json:"new_status,omitempty"`
}

type RetryJobsResult struct {
	UpdatedCount int64            `json:"updatedCount"`
	Jobs         []RetryJobResult `json:"jobs"`
}

type StopJobOutcome string

const (
	StopJobUpdated          StopJobOutcome = "stopped"
	StopJobNotFound         StopJobOutcome = "not_found"
	StopJobAlreadyCompleted StopJobOutcome = "already_completed"
	StopJobAlreadyFailed    StopJobOutcome = "already_failed"
	StopJobAlreadyStopped   StopJobOutcome = "already_stopped"
)

type StopJobResult struct {
	ID          string         `json:"id"`
	Outcome     StopJobOutcome `json:"outcome"`
	PriorStatus string         `json:"prior_status,omitempty"`
}

type StopJobsResult struct {
	UpdatedCount int64           `json:"updatedCount"`
	Jobs         []StopJobResult `json:"jobs"`
}

// RetryFailedJobsByID validates IDs and retries only failed jobs. Timeline
// validation failures are refused up front; rerunning generation on the same
// document reproduces the same rejected timeline, so those need a new upload.
func RetryFailedJobsByID(ctx context.Context, service JobActionService, ids []string) (RetryJobsResult, error) {
	result := RetryJobsResult{Jobs: make([]RetryJobResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Describe(ctx, id)
		if err != nil {
			return RetryJobsResult{}, err
		}
		if job == nil {
			result.Jobs = append(result.Jobs, RetryJobResult{ID: id, Outcome: RetryJobNotFound})
			continue
		}
		status, ok := queue.ParseStatus(job.Status)
		if !ok || status != queue.StatusFailed {
			result.Jobs = append(result.Jobs, RetryJobResult{ID: id, Outcome: RetryJobNotFailed})
			continue
		}
		if job.ErrorStage == string(queue.StageGenerate) && job.ErrorKind == queue.ErrorKindValidation {
			result.Jobs = append(result.Jobs, RetryJobResult{ID: id, Outcome: RetryJobNotRetryable})
			continue
		}
		updated, err := service.Retry(ctx, []string{id})
		if err != nil {
			return RetryJobsResult{}, err
		}
		if updated > 0 {
			result.UpdatedCount += updated
			result.Jobs = append(result.Jobs, RetryJobResult{
				ID:        id,
				Outcome:   RetryJobUpdated,
				NewStatus: string(queue.StatusPending),
			})
			continue
		}
		result.Jobs = append(result.Jobs, RetryJobResult{ID: id, Outcome: RetryJobNotFailed})
	}
	return result, nil
}

// StopJobsByID validates IDs and requests cancellation unless already terminal.
func StopJobsByID(ctx context.Context, service JobActionService, ids []string) (StopJobsResult, error) {
	result := StopJobsResult{Jobs: make([]StopJobResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Describe(ctx, id)
		if err != nil {
			return StopJobsResult{}, err
		}
		if job == nil {
			result.Jobs = append(result.Jobs, StopJobResult{ID: id, Outcome: StopJobNotFound})
			continue
		}
		status := job.Status
		if parsed, ok := queue.ParseStatus(status); ok {
			switch parsed {
			case queue.StatusCompleted:
				result.Jobs = append(result.Jobs, StopJobResult{ID: id, Outcome: StopJobAlreadyCompleted, PriorStatus: status})
				continue
			case queue.StatusFailed:
				result.Jobs = append(result.Jobs, StopJobResult{ID: id, Outcome: StopJobAlreadyFailed, PriorStatus: status})
				continue
			case queue.StatusCancelled:
				result.Jobs = append(result.Jobs, StopJobResult{ID: id, Outcome: StopJobAlreadyStopped, PriorStatus: status})
				continue
			}
		}
		if job.CancelRequested {
			result.Jobs = append(result.Jobs, StopJobResult{ID: id, Outcome: StopJobAlreadyStopped, PriorStatus: status})
			continue
		}

		updated, err := service.Stop(ctx, id)
		if err != nil {
			return StopJobsResult{}, err
		}
		if updated {
			result.UpdatedCount++
			result.Jobs = append(result.Jobs, StopJobResult{ID: id, Outcome: StopJobUpdated, PriorStatus: status})
			continue
		}
		result.Jobs = append(result.Jobs, StopJobResult{ID: id, Outcome: StopJobAlreadyStopped, PriorStatus: status})
	}
	return result, nil
}
