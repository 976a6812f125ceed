package runner_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/flock"

	"tellmemore/internal/pipeline"
	"tellmemore/internal/queue"
	"tellmemore/internal/runner"
	"tellmemore/internal/services"
	"tellmemore/internal/testsupport"
)

type fakeProcessor struct {
	results map[string]pipeline.Result
	errs    map[string]error
	calls   []string
}

func (f *fakeProcessor) Process(ctx context.Context, item *queue.Item) (pipeline.Result, error) {
	f.calls = append(f.calls, item.ExternalID)
	if err, ok := f.errs[item.ExternalID]; ok {
		return pipeline.Result{}, err
	}
	if result, ok := f.results[item.ExternalID]; ok {
		return result, nil
	}
	return pipeline.Result{Embedded: true}, nil
}

func TestRunDrainsQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	for _, id := range []string{"ep-a", "ep-b", "ep-c"} {
		testsupport.Enqueue(t, store, testsupport.Episode(id, "finance"))
	}

	processor := &fakeProcessor{}
	r := runner.New(cfg, store, processor, nil)

	summary, err := r.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Claimed != 3 || summary.Embedded != 3 {
		t.Fatalf("summary = %+v, want 3 claimed and embedded", summary)
	}
	if summary.RunID == "" {
		t.Error("run id not assigned")
	}

	processed, err := store.Processed(context.Background())
	if err != nil {
		t.Fatalf("Processed: %v", err)
	}
	if len(processed) != 3 {
		t.Fatalf("processed markers = %d, want 3", len(processed))
	}
}

func TestRunHonorsLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	for _, id := range []string{"ep-a", "ep-b"} {
		testsupport.Enqueue(t, store, testsupport.Episode(id, "finance"))
	}

	processor := &fakeProcessor{}
	r := runner.New(cfg, store, processor, nil)

	summary, err := r.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Claimed != 1 {
		t.Fatalf("claimed = %d, want 1", summary.Claimed)
	}
	if len(processor.calls) != 1 || processor.calls[0] != "ep-a" {
		t.Fatalf("processed %v, want oldest first", processor.calls)
	}
}

func TestRunCountsSkippedEpisodes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.Enqueue(t, store, testsupport.Episode("ep-a", "finance"))

	processor := &fakeProcessor{results: map[string]pipeline.Result{
		"ep-a": {Skipped: true},
	}}
	r := runner.New(cfg, store, processor, nil)

	summary, err := r.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped != 1 || summary.Embedded != 0 {
		t.Fatalf("summary = %+v, want one skipped", summary)
	}
}

func TestRunRequeuesTransientFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackoff("1h"))
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.Enqueue(t, store, testsupport.Episode("ep-a", "finance"))

	processor := &fakeProcessor{errs: map[string]error{
		"ep-a": services.Wrap(services.ErrTransient, "download", "fetch", "reset by peer", nil),
	}}
	r := runner.New(cfg, store, processor, nil)

	summary, err := r.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Requeued != 1 {
		t.Fatalf("summary = %+v, want one requeued", summary)
	}

	dlq, err := store.DLQ(context.Background())
	if err != nil {
		t.Fatalf("DLQ: %v", err)
	}
	if len(dlq) != 1 || dlq[0].RetryCount != 1 {
		t.Fatalf("dlq = %+v", dlq)
	}
}

func TestRunEscalatesNonRetryableFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.Enqueue(t, store, testsupport.Episode("ep-a", "finance"))

	processor := &fakeProcessor{errs: map[string]error{
		"ep-a": services.Wrap(services.ErrNotFound, "download", "fetch", "audio gone", nil),
	}}
	r := runner.New(cfg, store, processor, nil)

	summary, err := r.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.PermanentlyFailed != 1 {
		t.Fatalf("summary = %+v, want one permanent failure", summary)
	}
	failures, err := store.PermanentFailures(context.Background())
	if err != nil {
		t.Fatalf("PermanentFailures: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("permanent failures = %+v", failures)
	}
}

func TestRunRefusesConcurrentInvocation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	held := flock.New(cfg.LockFilePath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("acquire lock: ok=%v err=%v", ok, err)
	}
	defer func() { _ = held.Unlock() }()

	r := runner.New(cfg, store, &fakeProcessor{}, nil)
	if _, err := r.Run(context.Background(), 0); !errors.Is(err, runner.ErrAlreadyRunning) {
		t.Fatalf("error = %v, want ErrAlreadyRunning", err)
	}
}
