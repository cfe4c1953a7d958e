// Package queue persists generation jobs in SQLite and models their lifecycle
// from submission through the pipeline stages to a terminal state. The store is
// the single source of truth for job status, progress, cancellation flags, and
// stage artifacts recorded along the way.
package queue
