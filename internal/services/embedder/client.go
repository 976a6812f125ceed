package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"tellmemore/internal/config"
	"tellmemore/internal/services"
)

// Client wraps an OpenAI-compatible embeddings API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
}

// Option customizes the embeddings client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// NewClient constructs an embeddings API client from the configuration.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(cfg.Embedding.APIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.Embedding.BaseURL), "/"),
		model:      cfg.Embedding.Model,
		dimension:  cfg.Embedding.Dimension,
		httpClient: &http.Client{Timeout: cfg.EmbeddingTimeout()},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Embed turns bounded UTF-8 text into a fixed-dimension vector. A vector of
// the wrong dimension is rejected here, on the write path; the read path
// degrades gracefully instead.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, services.Wrap(services.ErrValidation, "embed", "request", "text required", nil)
	}
	if c.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "embed", "request", "embedding api key required", nil)
	}

	endpoint, err := url.JoinPath(c.baseURL, "/embeddings")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "embed", "request", "build url", err)
	}
	encoded, err := json.Marshal(embeddingRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "embed", "request", "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "embed", "request", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return nil, services.Wrap(marker, "embed", "request", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "embed", "response", "read body", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, services.Wrap(services.ErrConfiguration, "embed", "response",
			fmt.Sprintf("credentials rejected (http %d)", resp.StatusCode), nil)
	case resp.StatusCode >= http.StatusMultipleChoices:
		return nil, services.Wrap(services.ErrTransient, "embed", "response",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var decoded embeddingResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "embed", "response", "decode response", err)
	}
	if decoded.Error != nil {
		return nil, services.Wrap(services.ErrExternalTool, "embed", "response",
			"api error: "+strings.TrimSpace(decoded.Error.Message), nil)
	}
	if len(decoded.Data) == 0 || len(decoded.Data[0].Embedding) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "embed", "response", "empty embedding", nil)
	}

	vector := decoded.Data[0].Embedding
	if c.dimension > 0 && len(vector) != c.dimension {
		return nil, services.Wrap(services.ErrExternalTool, "embed", "response",
			fmt.Sprintf("dimension %d, want %d", len(vector), c.dimension), nil)
	}
	return vector, nil
}
