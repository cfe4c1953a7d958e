// Package aligner wraps the optional word-level alignment service.
//
// The backend transcribes narration audio and returns per-word timestamps
// used to build subtitle cues. Every failure here is recoverable: the
// subtitle stage falls back to local character-proportional timing.
package aligner
