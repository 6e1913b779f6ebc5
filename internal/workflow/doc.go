// Package workflow advances queue jobs through the production pipeline.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// jobs into registered stage handlers (extractor, generator, imager, narrator,
// renderer) while capturing progress and failure metadata. It also aggregates
// queue stats, calls stage health checks, and emits notifications when jobs
// and queue batches finish.
//
// The manager runs a configurable number of workers. Each worker claims one
// pending job at a time with a compare-and-swap transition, runs exactly one
// stage, and releases the job back to pending, so a long render on one job
// never blocks extraction of another. Stage selection is derived from recorded
// artifact references rather than a stored cursor, which makes interrupted or
// retried jobs resume at their first missing artifact.
//
// Add new lifecycle stages by extending StageSet, adding the stage constant
// and artifact reference to the queue package, and teaching Job.NextStage how
// to order it; this package is the authoritative home for that coordination
// logic.
package workflow
