package search_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tellmemore/internal/chunk"
	"tellmemore/internal/embeddings"
	"tellmemore/internal/pipeline"
	"tellmemore/internal/search"
	"tellmemore/internal/testsupport"
	"tellmemore/internal/transcript"
)

type fakeEmbedder struct {
	vector []float64
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return f.vector, nil
}

func seedRecords(t *testing.T, store *embeddings.Store) {
	t.Helper()
	ctx := context.Background()
	for _, record := range []embeddings.Record{
		{SimplifiedID: "finance_001", Topic: "finance", AudioURL: "https://cdn.example.com/f1.mp3", Vector: []float64{0.2, 1, 0}},
		{SimplifiedID: "finance_002", Topic: "finance", AudioURL: "https://cdn.example.com/f2.mp3", Vector: []float64{1, 0.1, 0}},
		{SimplifiedID: "finance_003", Topic: "finance", AudioURL: "https://cdn.example.com/f3.mp3", Vector: []float64{1, 1, 0}},
	} {
		if err := store.Append(ctx, record); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
}

func TestSearchEmptyStoreIsActionable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenEmbeddings(t, cfg)
	svc := search.New(cfg, store, &fakeEmbedder{vector: []float64{1, 0, 0}}, nil)

	_, err := svc.Search(context.Background(), "anything", 0)
	if !errors.Is(err, search.ErrNoEmbeddings) {
		t.Fatalf("error = %v, want ErrNoEmbeddings", err)
	}
	if !strings.Contains(err.Error(), "tellmemore process") {
		t.Errorf("diagnostic %q does not name the fix", err.Error())
	}
}

func TestSearchRanksMostSimilarFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenEmbeddings(t, cfg)
	seedRecords(t, store)
	svc := search.New(cfg, store, &fakeEmbedder{vector: []float64{1, 0, 0}}, nil)

	matches, err := svc.Search(context.Background(), "rates", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Record.SimplifiedID != "finance_002" {
		t.Errorf("top match = %s, want finance_002", matches[0].Record.SimplifiedID)
	}
}

func TestPlayUsesRetainedTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenEmbeddings(t, cfg)
	seedRecords(t, store)

	tr := transcript.Transcript{Segments: []transcript.Segment{
		{StartSeconds: 310.0, EndSeconds: 318.5, Text: "the cartel crossing the border"},
		{StartSeconds: 520.0, EndSeconds: 530.0, Text: "follow up next week"},
	}}
	if err := tr.SaveFile(pipeline.TranscriptPath(cfg, "finance_002")); err != nil {
		t.Fatalf("save transcript: %v", err)
	}

	svc := search.New(cfg, store, &fakeEmbedder{vector: []float64{1, 0, 0}}, nil)
	results, err := svc.Play(context.Background(), "cartel smuggling", 1)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	got := results[0]
	if got.Window.Source != chunk.SourceTranscript {
		t.Errorf("window source = %s, want transcript", got.Window.Source)
	}
	if got.Window.StartSeconds != 310.0 {
		t.Errorf("start = %v, want 310.0", got.Window.StartSeconds)
	}
	if !strings.Contains(got.PlayableURL, "#t=310,530") {
		t.Errorf("playable url %q missing fragment", got.PlayableURL)
	}
}

func TestPlayFallsBackToMetadataWithoutTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenEmbeddings(t, cfg)
	seedRecords(t, store)

	svc := search.New(cfg, store, &fakeEmbedder{vector: []float64{1, 0, 0}}, nil)
	results, err := svc.Play(context.Background(), "interest rates", 1)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Window.Source != chunk.SourceMetadata {
		t.Errorf("window source = %s, want metadata", results[0].Window.Source)
	}
	if results[0].PlayableURL == "" {
		t.Error("no playable url attached")
	}
}

func TestPlayDropsTranscriptMissesForNextRanked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenEmbeddings(t, cfg)
	seedRecords(t, store)

	// Top match has a transcript that cannot score for this query; the
	// next-ranked episode (no transcript) should still produce a window.
	tr := transcript.Transcript{Segments: []transcript.Segment{
		{StartSeconds: 10.0, EndSeconds: 15.0, Text: "completely unrelated banter"},
	}}
	if err := tr.SaveFile(pipeline.TranscriptPath(cfg, "finance_002")); err != nil {
		t.Fatalf("save transcript: %v", err)
	}

	svc := search.New(cfg, store, &fakeEmbedder{vector: []float64{1, 0, 0}}, nil)
	results, err := svc.Play(context.Background(), "cartel smuggling", 2)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Match.Record.SimplifiedID != "finance_003" {
		t.Errorf("result = %s, want next-ranked finance_003", results[0].Match.Record.SimplifiedID)
	}
}
