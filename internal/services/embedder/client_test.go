package embedder_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"tellmemore/internal/services"
	"tellmemore/internal/services/embedder"
	"tellmemore/internal/testsupport"
)

func embeddingServer(t *testing.T, vector []float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "missing auth", http.StatusUnauthorized)
			return
		}
		var req struct {
			Model string `json:"model"`
			Input string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": vector}},
		})
	}))
}

func TestEmbedReturnsVector(t *testing.T) {
	server := embeddingServer(t, []float64{0.1, 0.2, 0.3})
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	client := embedder.NewClient(cfg, embedder.WithBaseURL(server.URL))

	vector, err := client.Embed(context.Background(), "cartel border crossing")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vector) != 3 || vector[1] != 0.2 {
		t.Fatalf("vector = %v", vector)
	}
}

func TestEmbedRejectsDimensionMismatch(t *testing.T) {
	server := embeddingServer(t, []float64{0.1, 0.2})
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithDimension(3))
	client := embedder.NewClient(cfg, embedder.WithBaseURL(server.URL))

	_, err := client.Embed(context.Background(), "query")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("error = %v, want ErrExternalTool", err)
	}
}

func TestEmbedMissingKeyIsConfigurationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Embedding.APIKey = ""
	client := embedder.NewClient(cfg)

	_, err := client.Embed(context.Background(), "query")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
	if services.Retryable(err) {
		t.Error("missing credentials should not be retryable")
	}
}

func TestEmbedRateLimitIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	client := embedder.NewClient(cfg, embedder.WithBaseURL(server.URL))

	_, err := client.Embed(context.Background(), "query")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("error = %v, want ErrTransient", err)
	}
	if !services.Retryable(err) {
		t.Error("rate limits should be retryable")
	}
}

func TestEmbedEmptyTextIsValidationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := embedder.NewClient(cfg)

	_, err := client.Embed(context.Background(), "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}
