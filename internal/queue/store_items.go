package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tellmemore/internal/catalog"
	"tellmemore/internal/episodekey"
)

// ErrClaimOutstanding is returned by ClaimNext when another item is already
// in the processing state. The queue is single-consumer; a second claim
// means either a concurrent run slipped past the lock or a previous run
// crashed without resetting its item.
var ErrClaimOutstanding = errors.New("queue: another item is already claimed")

const itemColumns = `simplified_id, external_id, status, retry_count, last_error,
    failed_at, next_attempt_at, enqueued_at, created_at, updated_at, episode_json`

// Enqueue registers an episode for processing and assigns its stable
// simplified id. Episodes that are already queued return the existing item;
// episodes that already completed or permanently failed are skipped and
// return nil.
func (s *Store) Enqueue(ctx context.Context, ep catalog.Episode) (*Item, error) {
	if !ep.Valid() {
		return nil, fmt.Errorf("enqueue: episode %q is missing required fields", ep.ExternalID)
	}
	ctx = ensureContext(ctx)

	var item *Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM processed_items WHERE external_id = ?`, ep.ExternalID,
		).Scan(&existing); err != nil {
			return fmt.Errorf("check processed: %w", err)
		}
		if existing > 0 {
			return nil
		}
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM permanent_failures WHERE external_id = ?`, ep.ExternalID,
		).Scan(&existing); err != nil {
			return fmt.Errorf("check permanent failures: %w", err)
		}
		if existing > 0 {
			return nil
		}

		row := tx.QueryRowContext(ctx,
			`SELECT `+itemColumns+` FROM queue_items WHERE external_id = ?`, ep.ExternalID)
		found, err := scanItem(row)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check queued: %w", err)
		}
		if found != nil {
			item = found
			return nil
		}

		topic := episodekey.NormalizeTopic(ep.Topic)
		seq, err := nextSequence(ctx, tx, topic)
		if err != nil {
			return err
		}
		key, err := episodekey.New(topic, seq)
		if err != nil {
			return fmt.Errorf("assign simplified id: %w", err)
		}

		snapshot, err := json.Marshal(ep)
		if err != nil {
			return fmt.Errorf("encode episode snapshot: %w", err)
		}

		now := time.Now().UTC()
		nowStr := now.Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO queue_items (
                simplified_id, external_id, status, retry_count,
                enqueued_at, created_at, updated_at, episode_json
            ) VALUES (?, ?, ?, 0, ?, ?, ?, ?)`,
			key.String(), ep.ExternalID, StatusPending, nowStr, nowStr, nowStr, string(snapshot),
		); err != nil {
			return fmt.Errorf("insert queue item: %w", err)
		}

		item = &Item{
			SimplifiedID: key.String(),
			ExternalID:   ep.ExternalID,
			Status:       StatusPending,
			EnqueuedAt:   now,
			CreatedAt:    now,
			UpdatedAt:    now,
			Episode:      ep,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// nextSequence allocates the next per-topic sequence number. Ids are
// assigned once at enqueue and never reshuffled, so later ingests cannot
// change an episode's id.
func nextSequence(ctx context.Context, tx *sql.Tx, topic string) (int, error) {
	var seq int
	err := tx.QueryRowContext(ctx,
		`SELECT next_seq FROM topic_sequences WHERE topic = ?`, topic).Scan(&seq)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO topic_sequences (topic, next_seq) VALUES (?, 2)`, topic); err != nil {
			return 0, fmt.Errorf("init topic sequence: %w", err)
		}
		return 1, nil
	case err != nil:
		return 0, fmt.Errorf("read topic sequence: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE topic_sequences SET next_seq = next_seq + 1 WHERE topic = ?`, topic); err != nil {
		return 0, fmt.Errorf("advance topic sequence: %w", err)
	}
	return seq, nil
}

// ClaimNext transitions the oldest eligible pending item to processing and
// returns it. Items scheduled for a future retry are skipped until their
// next_attempt_at passes. Returns nil when nothing is eligible.
func (s *Store) ClaimNext(ctx context.Context, now time.Time) (*Item, error) {
	ctx = ensureContext(ctx)
	nowStr := now.UTC().Format(time.RFC3339Nano)

	var item *Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var inFlight int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM queue_items WHERE status = ?`, StatusProcessing,
		).Scan(&inFlight); err != nil {
			return fmt.Errorf("count processing items: %w", err)
		}
		if inFlight > 0 {
			return ErrClaimOutstanding
		}

		row := tx.QueryRowContext(ctx,
			`SELECT `+itemColumns+` FROM queue_items
             WHERE status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
             ORDER BY enqueued_at ASC, simplified_id ASC
             LIMIT 1`,
			StatusPending, nowStr)
		found, err := scanItem(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select eligible item: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE queue_items SET status = ?, updated_at = ? WHERE simplified_id = ?`,
			StatusProcessing, nowStr, found.SimplifiedID,
		); err != nil {
			return fmt.Errorf("claim item: %w", err)
		}
		found.Status = StatusProcessing
		found.UpdatedAt = now.UTC()
		item = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Item fetches a queue item by simplified id. Returns nil when absent.
func (s *Store) Item(ctx context.Context, simplifiedID string) (*Item, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM queue_items WHERE simplified_id = ?`, simplifiedID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item: %w", err)
	}
	return item, nil
}

// Items returns every queue row ordered by enqueue time.
func (s *Store) Items(ctx context.Context) ([]Item, error) {
	return s.listItems(ctx,
		`SELECT `+itemColumns+` FROM queue_items ORDER BY enqueued_at ASC, simplified_id ASC`)
}

// DLQ returns the dead-letter view: items that failed at least once and are
// waiting for a retry.
func (s *Store) DLQ(ctx context.Context) ([]Item, error) {
	return s.listItems(ctx,
		`SELECT `+itemColumns+` FROM queue_items
         WHERE retry_count > 0 ORDER BY failed_at ASC, simplified_id ASC`)
}

func (s *Store) listItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// PermanentFailures returns episodes that will not be retried.
func (s *Store) PermanentFailures(ctx context.Context) ([]PermanentFailure, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT simplified_id, external_id, final_error, retry_count, failed_at, episode_json
         FROM permanent_failures ORDER BY failed_at ASC, simplified_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list permanent failures: %w", err)
	}
	defer rows.Close()

	var failures []PermanentFailure
	for rows.Next() {
		var (
			failure   PermanentFailure
			failedRaw string
			snapshot  string
		)
		if err := rows.Scan(&failure.SimplifiedID, &failure.ExternalID, &failure.FinalError,
			&failure.RetryCount, &failedRaw, &snapshot); err != nil {
			return nil, fmt.Errorf("scan permanent failure: %w", err)
		}
		failure.FailedAt = parseTime(failedRaw)
		if err := json.Unmarshal([]byte(snapshot), &failure.Episode); err != nil {
			return nil, fmt.Errorf("decode episode snapshot for %s: %w", failure.SimplifiedID, err)
		}
		failures = append(failures, failure)
	}
	return failures, rows.Err()
}

// Processed returns the durable success markers ordered by completion time.
func (s *Store) Processed(ctx context.Context) ([]ProcessedItem, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT simplified_id, external_id, completed_at
         FROM processed_items ORDER BY completed_at ASC, simplified_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list processed items: %w", err)
	}
	defer rows.Close()

	var processed []ProcessedItem
	for rows.Next() {
		var (
			entry        ProcessedItem
			completedRaw string
		)
		if err := rows.Scan(&entry.SimplifiedID, &entry.ExternalID, &completedRaw); err != nil {
			return nil, fmt.Errorf("scan processed item: %w", err)
		}
		entry.CompletedAt = parseTime(completedRaw)
		processed = append(processed, entry)
	}
	return processed, rows.Err()
}

// Stats counts items per lifecycle state.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	if err := s.db.QueryRowContext(ctx,
		`SELECT
            COUNT(CASE WHEN status = ? AND retry_count = 0 THEN 1 END),
            COUNT(CASE WHEN status = ? THEN 1 END),
            COUNT(CASE WHEN status = ? AND retry_count > 0 THEN 1 END)
         FROM queue_items`,
		StatusPending, StatusProcessing, StatusPending,
	).Scan(&stats.Pending, &stats.Processing, &stats.Retrying); err != nil {
		return Stats{}, fmt.Errorf("count queue items: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM permanent_failures`).Scan(&stats.PermanentlyFailed); err != nil {
		return Stats{}, fmt.Errorf("count permanent failures: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM processed_items`).Scan(&stats.Processed); err != nil {
		return Stats{}, fmt.Errorf("count processed items: %w", err)
	}
	return stats, nil
}

// Health reports queue health: unhealthy when anything sits in the
// dead-letter view or the permanent failure table.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	summary := HealthSummary{
		Stats:   stats,
		Healthy: stats.Retrying == 0 && stats.PermanentlyFailed == 0,
	}
	if summary.Healthy {
		return summary, nil
	}

	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT last_error, failed_at FROM queue_items
         WHERE retry_count > 0 ORDER BY failed_at DESC LIMIT 1`)
	var (
		lastError sql.NullString
		failedRaw sql.NullString
	)
	if err := row.Scan(&lastError, &failedRaw); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return HealthSummary{}, fmt.Errorf("read last failure: %w", err)
	}
	if !lastError.Valid {
		permRow := s.db.QueryRowContext(ctx,
			`SELECT final_error, failed_at FROM permanent_failures
             ORDER BY failed_at DESC LIMIT 1`)
		if err := permRow.Scan(&lastError, &failedRaw); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return HealthSummary{}, fmt.Errorf("read last permanent failure: %w", err)
		}
	}
	summary.LastError = lastError.String
	if failedRaw.Valid {
		summary.LastFailure = parseTime(failedRaw.String)
	}
	return summary, nil
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item          Item
		lastError     sql.NullString
		failedAt      sql.NullString
		nextAttemptAt sql.NullString
		enqueuedAt    string
		createdAt     string
		updatedAt     string
		snapshot      string
	)
	if err := scanner.Scan(&item.SimplifiedID, &item.ExternalID, &item.Status, &item.RetryCount,
		&lastError, &failedAt, &nextAttemptAt, &enqueuedAt, &createdAt, &updatedAt, &snapshot); err != nil {
		return nil, err
	}
	item.LastError = lastError.String
	if failedAt.Valid {
		item.FailedAt = parseTime(failedAt.String)
	}
	if nextAttemptAt.Valid {
		item.NextAttemptAt = parseTime(nextAttemptAt.String)
	}
	item.EnqueuedAt = parseTime(enqueuedAt)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	if err := json.Unmarshal([]byte(snapshot), &item.Episode); err != nil {
		return nil, fmt.Errorf("decode episode snapshot for %s: %w", item.SimplifiedID, err)
	}
	return &item, nil
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
