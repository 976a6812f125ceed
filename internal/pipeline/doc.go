// Package pipeline runs the per-episode processing steps.
//
// A run is download, transcribe, embed, cleanup, in that order. Every step
// is idempotent against its own artifact, so the queue layer can retry the
// whole pipeline after any failure and only the missing work repeats. A
// missing or markerless transcript skips the embed step by policy instead
// of failing: search quality rests on transcript-derived semantics, never
// on metadata alone.
package pipeline
