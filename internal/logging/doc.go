// Package logging wraps log/slog with shortreel conventions: a pretty console
// handler for interactive use, a JSON handler for machine consumption, shared
// field-name constants, and context carriers so stage logs automatically pick
// up job and stage attributes.
package logging
