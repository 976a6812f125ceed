package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"tellmemore/internal/services"
)

// ReportSuccess removes a completed item from the queue and leaves a durable
// processed marker, in a single transaction.
func (s *Store) ReportSuccess(ctx context.Context, item *Item) error {
	if item == nil {
		return fmt.Errorf("report success: nil item")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM queue_items WHERE simplified_id = ?`, item.SimplifiedID)
		if err != nil {
			return fmt.Errorf("remove queue item: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("remove queue item: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("report success: item %s not in queue", item.SimplifiedID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO processed_items (simplified_id, external_id, completed_at)
             VALUES (?, ?, ?)`,
			item.SimplifiedID, item.ExternalID, now,
		); err != nil {
			return fmt.Errorf("insert processed marker: %w", err)
		}
		return nil
	})
}

// ReportFailure records a failed attempt. Retryable failures requeue the
// item at the back with an increased retry count and a scheduled next
// attempt. Non-retryable failures, and items that reach MaxRetries, migrate
// to the permanent failure table in the same transaction. The returned item
// is nil when the episode was moved to permanent failures.
func (s *Store) ReportFailure(ctx context.Context, item *Item, cause error) (*Item, error) {
	if item == nil {
		return nil, fmt.Errorf("report failure: nil item")
	}
	now := time.Now().UTC()
	retryCount := item.RetryCount + 1
	message := "unknown failure"
	if cause != nil {
		message = cause.Error()
	}
	permanent := !services.Retryable(cause) || retryCount >= MaxRetries

	var updated *Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if permanent {
			snapshot, err := json.Marshal(item.Episode)
			if err != nil {
				return fmt.Errorf("encode episode snapshot: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO permanent_failures (
                    simplified_id, external_id, final_error, retry_count, failed_at, episode_json
                ) VALUES (?, ?, ?, ?, ?, ?)`,
				item.SimplifiedID, item.ExternalID, message, retryCount,
				now.Format(time.RFC3339Nano), string(snapshot),
			); err != nil {
				return fmt.Errorf("insert permanent failure: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM queue_items WHERE simplified_id = ?`, item.SimplifiedID); err != nil {
				return fmt.Errorf("remove queue item: %w", err)
			}
			return nil
		}

		nextAttempt := now.Add(s.backoffDelay(retryCount))
		if _, err := tx.ExecContext(ctx,
			`UPDATE queue_items
             SET status = ?, retry_count = ?, last_error = ?, failed_at = ?,
                 next_attempt_at = ?, enqueued_at = ?, updated_at = ?
             WHERE simplified_id = ?`,
			StatusPending, retryCount, message,
			now.Format(time.RFC3339Nano),
			nextAttempt.Format(time.RFC3339Nano),
			now.Format(time.RFC3339Nano),
			now.Format(time.RFC3339Nano),
			item.SimplifiedID,
		); err != nil {
			return fmt.Errorf("requeue failed item: %w", err)
		}

		requeued := *item
		requeued.Status = StatusPending
		requeued.RetryCount = retryCount
		requeued.LastError = message
		requeued.FailedAt = now
		requeued.NextAttemptAt = nextAttempt
		requeued.EnqueuedAt = now
		requeued.UpdatedAt = now
		updated = &requeued
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ResetStuckProcessing returns items left in processing by a crashed run to
// pending so they can be claimed again. Called at run startup, under the
// instance lock.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE queue_items SET status = ?, updated_at = ? WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed clears the backoff schedule on every dead-letter item so the
// next run picks them up immediately.
func (s *Store) RetryFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE queue_items SET next_attempt_at = NULL, updated_at = ?
         WHERE status = ? AND retry_count > 0`,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// ReinstatePermanentFailure moves a permanently failed episode back into the
// queue with a fresh retry budget. Operator action only.
func (s *Store) ReinstatePermanentFailure(ctx context.Context, simplifiedID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			externalID string
			snapshot   string
		)
		err := tx.QueryRowContext(ctx,
			`SELECT external_id, episode_json FROM permanent_failures WHERE simplified_id = ?`,
			simplifiedID,
		).Scan(&externalID, &snapshot)
		if err != nil {
			return fmt.Errorf("load permanent failure %s: %w", simplifiedID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM permanent_failures WHERE simplified_id = ?`, simplifiedID); err != nil {
			return fmt.Errorf("remove permanent failure: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO queue_items (
                simplified_id, external_id, status, retry_count,
                enqueued_at, created_at, updated_at, episode_json
            ) VALUES (?, ?, ?, 0, ?, ?, ?, ?)`,
			simplifiedID, externalID, StatusPending, now, now, now, snapshot,
		); err != nil {
			return fmt.Errorf("requeue reinstated item: %w", err)
		}
		return nil
	})
}

// ClearProcessed removes all processed markers. Subsequent ingests will
// enqueue those episodes again.
func (s *Store) ClearProcessed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM processed_items`)
	if err != nil {
		return 0, fmt.Errorf("clear processed items: %w", err)
	}
	return res.RowsAffected()
}

// ClearPermanentFailures removes all permanent failure records.
func (s *Store) ClearPermanentFailures(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM permanent_failures`)
	if err != nil {
		return 0, fmt.Errorf("clear permanent failures: %w", err)
	}
	return res.RowsAffected()
}
