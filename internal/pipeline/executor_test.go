package pipeline_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"tellmemore/internal/pipeline"
	"tellmemore/internal/queue"
	"tellmemore/internal/services"
	"tellmemore/internal/testsupport"
	"tellmemore/internal/transcript"
)

type fakeFetcher struct {
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, audioURL, destPath string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	if err := os.WriteFile(destPath, []byte("audio"), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

type fakeTranscriber struct {
	tr    *transcript.Transcript
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (*transcript.Transcript, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tr, nil
}

type fakeEmbedder struct {
	vector []float64
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) Model() string { return "test-model" }

func validTranscript() *transcript.Transcript {
	return &transcript.Transcript{Segments: []transcript.Segment{
		{StartSeconds: 0, EndSeconds: 5, Text: "hello"},
		{StartSeconds: 5, EndSeconds: 10, Text: "world"},
	}}
}

func claimedItem(t *testing.T, store *queue.Store) *queue.Item {
	t.Helper()
	testsupport.Enqueue(t, store, testsupport.Episode("ep-a", "finance"))
	item, err := store.ClaimNext(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	return item
}

func TestProcessEmbedsAndCleansUp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	embStore := testsupport.MustOpenEmbeddings(t, cfg)
	item := claimedItem(t, store)

	fetcher := &fakeFetcher{}
	transcriber := &fakeTranscriber{tr: validTranscript()}
	emb := &fakeEmbedder{vector: []float64{0.1, 0.2, 0.3}}
	executor := pipeline.NewExecutor(cfg, fetcher, transcriber, emb, embStore, nil)

	result, err := executor.Process(context.Background(), item)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.Embedded || result.Skipped {
		t.Fatalf("result = %+v, want embedded", result)
	}

	record, err := embStore.Get(context.Background(), item.SimplifiedID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record == nil {
		t.Fatal("no embedding record written")
	}
	if record.Model != "test-model" || record.Topic != "finance" {
		t.Errorf("record = %+v", record)
	}

	for _, path := range []string{
		pipeline.AudioPath(cfg, item.ExternalID),
		pipeline.TranscriptPath(cfg, item.SimplifiedID),
	} {
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			t.Errorf("scratch artifact %s survived cleanup", path)
		}
	}
}

func TestProcessSkipsEmbedWithoutValidTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	embStore := testsupport.MustOpenEmbeddings(t, cfg)
	item := claimedItem(t, store)

	emb := &fakeEmbedder{vector: []float64{0.1, 0.2, 0.3}}
	executor := pipeline.NewExecutor(cfg, &fakeFetcher{}, &fakeTranscriber{tr: &transcript.Transcript{}}, emb, embStore, nil)

	result, err := executor.Process(context.Background(), item)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.Skipped || result.Embedded {
		t.Fatalf("result = %+v, want skipped", result)
	}
	if emb.calls != 0 {
		t.Error("embedder called despite invalid transcript")
	}
	count, err := embStore.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Error("embedding record written for skipped episode")
	}
}

func TestProcessPropagatesDownloadFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	embStore := testsupport.MustOpenEmbeddings(t, cfg)
	item := claimedItem(t, store)

	cause := services.Wrap(services.ErrTransient, "download", "fetch", "connection reset", nil)
	transcriber := &fakeTranscriber{tr: validTranscript()}
	executor := pipeline.NewExecutor(cfg, &fakeFetcher{err: cause}, transcriber, &fakeEmbedder{}, embStore, nil)

	_, err := executor.Process(context.Background(), item)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("error = %v, want the download failure", err)
	}
	if transcriber.calls != 0 {
		t.Error("transcriber ran after download failure")
	}
}

func TestProcessReusesSavedTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	embStore := testsupport.MustOpenEmbeddings(t, cfg)
	item := claimedItem(t, store)

	if err := validTranscript().SaveFile(pipeline.TranscriptPath(cfg, item.SimplifiedID)); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	transcriber := &fakeTranscriber{err: errors.New("should not run")}
	emb := &fakeEmbedder{vector: []float64{0.1, 0.2, 0.3}}
	executor := pipeline.NewExecutor(cfg, &fakeFetcher{}, transcriber, emb, embStore, nil)

	result, err := executor.Process(context.Background(), item)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !result.Embedded {
		t.Fatalf("result = %+v, want embedded", result)
	}
	if transcriber.calls != 0 {
		t.Error("transcriber invoked despite existing transcript artifact")
	}
}

func TestProcessKeepArtifactsRetainsTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Processing.KeepArtifacts = true
	store := testsupport.MustOpenStore(t, cfg)
	embStore := testsupport.MustOpenEmbeddings(t, cfg)
	item := claimedItem(t, store)

	emb := &fakeEmbedder{vector: []float64{0.1, 0.2, 0.3}}
	executor := pipeline.NewExecutor(cfg, &fakeFetcher{}, &fakeTranscriber{tr: validTranscript()}, emb, embStore, nil)

	if _, err := executor.Process(context.Background(), item); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, err := os.Stat(pipeline.TranscriptPath(cfg, item.SimplifiedID)); err != nil {
		t.Errorf("transcript not retained: %v", err)
	}
}
