package testsupport

import (
	"context"
	"testing"
	"time"

	"tellmemore/internal/catalog"
	"tellmemore/internal/config"
	"tellmemore/internal/embeddings"
	"tellmemore/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenEmbeddings opens an embeddings.Store for tests and registers cleanup.
func MustOpenEmbeddings(t testing.TB, cfg *config.Config) *embeddings.Store {
	t.Helper()

	store, err := embeddings.Open(cfg)
	if err != nil {
		t.Fatalf("embeddings.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Episode builds a minimal valid catalog episode for tests.
func Episode(externalID, topic string) catalog.Episode {
	return catalog.Episode{
		ExternalID:  externalID,
		Title:       "Episode " + externalID,
		ShowName:    "Test Show",
		Topic:       topic,
		AudioURL:    "https://cdn.example.com/" + externalID + ".mp3",
		PublishDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Enqueue enqueues an episode for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, ep catalog.Episode) *queue.Item {
	t.Helper()

	item, err := store.Enqueue(context.Background(), ep)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	if item == nil {
		t.Fatalf("store.Enqueue returned no item for %s", ep.ExternalID)
	}
	return item
}
