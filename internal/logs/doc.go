// Package logs provides file tailing and offset helpers shared by the CLI and
// the daemon's log endpoint.
//
// It streams the daemon log with bounded memory usage, supports negative
// offsets for "last N lines" requests, and powers follow-mode updates for
// `lectern logs --follow`. Callers supply context deadlines so background
// polling shuts down cleanly when the CLI exits.
//
// Use this package whenever you need consistent log viewing semantics instead
// of re-implementing ad-hoc tail logic.
package logs
