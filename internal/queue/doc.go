// Package queue persists the episode processing lifecycle in SQLite.
//
// An episode enters as a pending queue item with a stable per-topic
// simplified id, moves to processing while a run works on it, and either
// leaves a processed marker behind on success or re-enters the queue with an
// increased retry count and a scheduled next attempt on failure. Episodes
// that exhaust their retry budget, or that fail with a non-retryable error,
// migrate to a separate permanent failure table and never run again without
// operator action. Every transition happens in a single transaction, so an
// episode is referenced by exactly one of the queue, the permanent failure
// table, or the processed markers at any point in time.
package queue
