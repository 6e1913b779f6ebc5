package stage

import (
	"lectern/internal/artifacts"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/timeline"
)

// LoadTimeline reads and validates the stored timeline for a job. Stages past
// generation depend on a well formed timeline, so a missing or corrupt file is
// a validation failure: re-running the same stage cannot repair it and the
// document must go back through generation.
func LoadTimeline(store *artifacts.Store, stageName string, job *queue.Job) (*timeline.Timeline, error) {
	if job.TimelinePath == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "load timeline",
			"job has no timeline reference", nil)
	}
	tl, err := store.ReadTimeline(job.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "load timeline",
			"stored timeline is missing or invalid", err)
	}
	return tl, nil
}
