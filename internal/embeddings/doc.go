// Package embeddings persists episode embedding records and ranks them
// against query vectors.
//
// Records are keyed by simplified episode id and overwritten on reprocess.
// Vectors are stored as msgpack blobs inside the shared SQLite state
// database. Ranking is deliberately forgiving: dimension mismatches score 0
// instead of erroring so the search path stays available with heterogeneous
// records.
package embeddings
