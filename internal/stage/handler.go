// Package stage defines the contract between the workflow manager and the
// pipeline stage handlers. A handler runs exactly one stage of one job and
// reports readiness of its collaborators through HealthCheck.
package stage

import (
	"context"
	"log/slog"

	"lectern/internal/queue"
)

// Handler executes a single pipeline stage for a claimed job.
//
// Prepare mutates the job's presentation fields (progress message, percent,
// cleared error) before work begins; the caller persists the job afterwards.
// Execute performs the stage work and records resulting artifact references
// on the job; again the caller persists. Errors returned from either method
// should be tagged with a services sentinel so the workflow can classify them.
type Handler interface {
	Prepare(ctx context.Context, job *queue.Job) error
	Execute(ctx context.Context, job *queue.Job) error
	HealthCheck(ctx context.Context) Health
}

// LoggerAware is implemented by handlers that accept a replacement logger
// after construction. The workflow rebinds handlers to its own logger when
// stages are configured; job-scoped attributes travel in the context.
type LoggerAware interface {
	SetLogger(logger *slog.Logger)
}
