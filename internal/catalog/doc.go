// Package catalog models podcast episodes and the sources that supply them.
//
// The pipeline treats the catalog as an opaque input list: a JSON file written
// by the catalog collaborator, or a podcast RSS feed fetched directly. Episode
// records are immutable once ingested; the queue stores a snapshot so a later
// catalog rewrite cannot change an in-flight episode.
package catalog
