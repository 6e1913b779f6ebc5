// Package queue persists pipeline jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats queries,
// heartbeat tracking, stale-job recovery, and status transitions. Jobs capture
// artifact references, progress, retry bookkeeping, and error provenance so
// stages can coordinate without additional state.
//
// Every lifecycle transition goes through UpdateTransition, a compare-and-swap
// on (status, current_stage). Two daemons or goroutines racing over the same
// job produce exactly one winner; the loser observes ErrConflict and moves on.
// Advisory writes such as progress and heartbeats deliberately bypass the CAS
// and are guarded by status instead, so they can never resurrect a job that
// finished or failed concurrently.
//
// The database is treated as transient storage for in-flight jobs rather than
// a long-term archive. Schema changes bump the version in schema.go; users
// delete the database to adopt the new schema.
package queue
