// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal queue models into transport-friendly DTOs
// that the CLI and HTTP consumers can render without coupling to internal
// types.
//
// # Key Types
//
// Job: transport representation of a pipeline job with progress, artifact
// references, retry bookkeeping, and per-stage durations.
//
// WorkflowStatus: daemon running state, queue stats, stage health, and last job.
//
// DaemonStatus: aggregated runtime information including preflight results.
//
// LogTailResponse: a window of daemon log lines for offset-based tailing.
//
// # Converters
//
// FromJob: queue.Job -> Job with grouped artifact references, stage duration
// decoding, and millisecond RFC3339 timestamps.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// StageHealthSlice: stage health map ordered by pipeline position.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Internal
// enums (queue.Status, queue.Stage) are exposed as lowercase strings.
// Timestamps use RFC3339 with milliseconds.
//
// Per-job actions (retry, stop, remove) report a string outcome per ID so
// batch requests can succeed partially without inventing an error type for
// each refusal.
package api
