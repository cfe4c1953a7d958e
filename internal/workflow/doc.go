// Package workflow drives queued generation jobs through the pipeline
// stages. A manager polls the queue, executes the stage registered for each
// status, keeps item heartbeats fresh while a stage runs, honors cancellation
// requests between and during stages, and reclaims items orphaned by a
// previous daemon crash.
package workflow
