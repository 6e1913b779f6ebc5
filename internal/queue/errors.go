package queue

import "errors"

// ErrNotFound indicates the requested job does not exist.
var ErrNotFound = errors.New("job not found")

// ErrConflict indicates a compare-and-swap transition lost to a concurrent
// writer: the job's (status, current_stage) no longer matched the expected
// values. Callers re-read the job and decide whether their work still applies.
var ErrConflict = errors.New("job was modified concurrently")

// ErrRetryNotAllowed indicates a failed job cannot be retried because the
// failure invalidated its inputs; the source document must be resubmitted.
var ErrRetryNotAllowed = errors.New("job cannot be retried")
