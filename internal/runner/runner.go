package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"tellmemore/internal/config"
	"tellmemore/internal/logging"
	"tellmemore/internal/pipeline"
	"tellmemore/internal/queue"
	"tellmemore/internal/services"
)

// ErrAlreadyRunning is returned when another process holds the run lock.
var ErrAlreadyRunning = errors.New("another tellmemore run is already active")

// Processor executes the pipeline for one claimed item.
type Processor interface {
	Process(ctx context.Context, item *queue.Item) (pipeline.Result, error)
}

// Summary reports what one invocation did.
type Summary struct {
	RunID             string
	Claimed           int
	Embedded          int
	Skipped           int
	Requeued          int
	PermanentlyFailed int
}

// Runner drives one invocation of the processing loop: claim the next
// eligible episode, run the pipeline, report the outcome, repeat until the
// iteration budget is spent or the queue has nothing eligible left. Backoff
// waits are realized across invocations, never by sleeping here.
type Runner struct {
	cfg       *config.Config
	store     *queue.Store
	processor Processor
	logger    *slog.Logger
	lock      *flock.Flock
}

// New constructs a runner. The run lock lives in the state directory and
// serializes concurrent invocations.
func New(cfg *config.Config, store *queue.Store, processor Processor, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:       cfg,
		store:     store,
		processor: processor,
		logger:    logger,
		lock:      flock.New(cfg.LockFilePath()),
	}
}

// Run processes up to limit episodes, or drains the eligible queue when
// limit is zero or negative.
func (r *Runner) Run(ctx context.Context, limit int) (Summary, error) {
	ok, err := r.lock.TryLock()
	if err != nil {
		return Summary{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return Summary{}, ErrAlreadyRunning
	}
	defer func() {
		if unlockErr := r.lock.Unlock(); unlockErr != nil {
			r.logger.Warn("failed to release run lock", logging.Error(unlockErr))
		}
	}()

	summary := Summary{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, r.logger)

	if reset, err := r.store.ResetStuckProcessing(ctx); err != nil {
		return summary, fmt.Errorf("recover stuck items: %w", err)
	} else if reset > 0 {
		logger.Warn("recovered items stuck in processing", slog.Int64("count", reset))
	}

	for limit <= 0 || summary.Claimed < limit {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		item, err := r.store.ClaimNext(ctx, time.Now())
		if err != nil {
			return summary, fmt.Errorf("claim next item: %w", err)
		}
		if item == nil {
			break
		}
		summary.Claimed++
		r.processOne(ctx, logger, item, &summary)
	}

	logger.Info("run finished",
		slog.Int("claimed", summary.Claimed),
		slog.Int("embedded", summary.Embedded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("requeued", summary.Requeued),
		slog.Int("permanently_failed", summary.PermanentlyFailed))
	return summary, nil
}

func (r *Runner) processOne(ctx context.Context, logger *slog.Logger, item *queue.Item, summary *Summary) {
	itemLogger := logger.With(
		slog.String(logging.FieldEpisode, item.SimplifiedID),
		slog.Int(logging.FieldRetryCount, item.RetryCount))

	result, err := r.processor.Process(ctx, item)
	if err == nil {
		if reportErr := r.store.ReportSuccess(ctx, item); reportErr != nil {
			itemLogger.Error("failed to record success", logging.Error(reportErr))
			return
		}
		if result.Skipped {
			summary.Skipped++
			itemLogger.Info("episode processed without embedding")
		} else {
			summary.Embedded++
			itemLogger.Info("episode processed")
		}
		return
	}

	requeued, reportErr := r.store.ReportFailure(ctx, item, err)
	if reportErr != nil {
		itemLogger.Error("failed to record failure", logging.Error(reportErr))
		return
	}
	if requeued == nil {
		summary.PermanentlyFailed++
		itemLogger.Error("episode permanently failed", logging.Error(err))
		return
	}
	summary.Requeued++
	itemLogger.Warn("episode requeued for retry",
		slog.Int(logging.FieldRetryCount, requeued.RetryCount),
		slog.Time("next_attempt", requeued.NextAttemptAt),
		logging.Error(err))
}
