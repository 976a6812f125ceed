// Package config loads, normalizes, and validates tellmemore configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// EMBEDDING_API_KEY. The Config type centralizes every knob the pipeline and
// CLI need so storage directories, external service credentials, and retry
// schedules are discovered in one pass and passed explicitly to constructors.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
