// Package episodekey derives and parses simplified episode identifiers.
//
// A key is "{topic}_{NNN}": a normalized topic label plus a zero-padded
// sequence assigned once at ingestion time. Assigning at ingestion (instead
// of recounting the catalog's topic listing on every run) keeps ids stable
// when the upstream catalog order changes.
package episodekey
