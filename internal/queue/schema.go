package queue

import (
	"context"
	"fmt"
)

const schemaStatements = `
CREATE TABLE IF NOT EXISTS queue_items (
    simplified_id TEXT PRIMARY KEY,
    external_id TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL DEFAULT 'pending',
    retry_count INTEGER NOT NULL DEFAULT 0,
    last_error TEXT,
    failed_at TEXT,
    next_attempt_at TEXT,
    enqueued_at TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    episode_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_queue_items_status ON queue_items(status);
CREATE INDEX IF NOT EXISTS idx_queue_items_enqueued_at ON queue_items(enqueued_at);

CREATE TABLE IF NOT EXISTS permanent_failures (
    simplified_id TEXT PRIMARY KEY,
    external_id TEXT NOT NULL UNIQUE,
    final_error TEXT NOT NULL,
    retry_count INTEGER NOT NULL,
    failed_at TEXT NOT NULL,
    episode_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_items (
    simplified_id TEXT PRIMARY KEY,
    external_id TEXT NOT NULL UNIQUE,
    completed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS topic_sequences (
    topic TEXT PRIMARY KEY,
    next_seq INTEGER NOT NULL DEFAULT 1
);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaStatements); err != nil {
		return fmt.Errorf("apply queue schema: %w", err)
	}
	return nil
}
