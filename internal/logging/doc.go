// Package logging wraps log/slog with the handlers and helpers the pipeline
// and CLI share.
//
// It provides a console handler that renders compact key=value lines, a JSON
// handler for machine consumption, typed attribute constructors, standardized
// field keys, and context-derived fields (episode id, stage, run id) so every
// component logs with consistent structure.
package logging
