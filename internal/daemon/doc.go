// Package daemon coordinates the long-running Lectern process and its
// operator-facing surfaces.
//
// It wires configuration, the job store, the workflow manager, and the inbox
// watcher into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon owns PDF submission (HTTP upload, watched inbox, and
// IPC file enqueue all funnel through the same path), serves the HTTP API with
// optional bearer auth, and exposes queue maintenance helpers to the IPC layer.
//
// Keep orchestration logic here: pipeline stages live in their own packages
// while the daemon focuses on startup, shutdown, and high level coordination.
package daemon
