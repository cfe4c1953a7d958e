// Package daemon owns the long-running shortreel process: it enforces
// single-instance execution with a file lock, runs the workflow manager,
// sweeps stale job workspaces on startup, and serves the HTTP API used by
// the CLI and external clients.
package daemon
