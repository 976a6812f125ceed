package queue

import (
	"time"

	"tellmemore/internal/catalog"
)

// Status represents the lifecycle of a queue item. Only two stored states
// exist; retrying and permanently-failed are derived views (a pending row
// with retry_count > 0 is the dead-letter entry, and permanent failures
// live in their own table).
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
)

// MaxRetries is the attempt ceiling before an episode is moved to the
// permanent failure table.
const MaxRetries = 5

// Item is one queued episode together with its retry bookkeeping.
type Item struct {
	SimplifiedID  string
	ExternalID    string
	Status        Status
	RetryCount    int
	LastError     string
	FailedAt      time.Time
	NextAttemptAt time.Time
	EnqueuedAt    time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Episode       catalog.Episode
}

// Retrying reports whether the item has failed at least once and is waiting
// for another attempt.
func (i *Item) Retrying() bool {
	return i != nil && i.RetryCount > 0
}

// Eligible reports whether the item may be claimed at the given time.
func (i *Item) Eligible(now time.Time) bool {
	if i == nil || i.Status != StatusPending {
		return false
	}
	return i.NextAttemptAt.IsZero() || !i.NextAttemptAt.After(now)
}

// PermanentFailure is an episode that exhausted its retries or hit a
// non-retryable error. It never re-enters the queue without operator action.
type PermanentFailure struct {
	SimplifiedID string
	ExternalID   string
	FinalError   string
	RetryCount   int
	FailedAt     time.Time
	Episode      catalog.Episode
}

// ProcessedItem is the durable marker left behind by a successful run.
type ProcessedItem struct {
	SimplifiedID string
	ExternalID   string
	CompletedAt  time.Time
}

// Stats summarizes queue occupancy for status displays. Pending counts
// first-attempt rows only; rows waiting on a retry appear under Retrying.
type Stats struct {
	Pending           int
	Processing        int
	Retrying          int
	PermanentlyFailed int
	Processed         int
}

// Total returns the number of items the store currently tracks, processed
// markers included.
func (s Stats) Total() int {
	return s.Pending + s.Processing + s.Retrying + s.PermanentlyFailed + s.Processed
}

// HealthSummary reports whether the queue needs operator attention.
type HealthSummary struct {
	Stats       Stats
	Healthy     bool
	LastError   string
	LastFailure time.Time
}
