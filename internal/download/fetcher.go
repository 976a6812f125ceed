package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"tellmemore/internal/config"
	"tellmemore/internal/services"
)

// Fetcher downloads episode audio to scratch storage. Fetch is idempotent:
// an existing destination file is left untouched so a retried pipeline run
// skips the transfer.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// NewFetcher builds a Fetcher with the configured timeout and user agent.
func NewFetcher(cfg *config.Config, opts ...Option) *Fetcher {
	fetcher := &Fetcher{
		client:    &http.Client{Timeout: cfg.DownloadTimeout()},
		userAgent: cfg.Download.UserAgent,
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// Fetch downloads audioURL to destPath. Returns true when the transfer ran
// and false when the destination already existed.
func (f *Fetcher) Fetch(ctx context.Context, audioURL, destPath string) (bool, error) {
	if audioURL == "" {
		return false, services.Wrap(services.ErrValidation, "download", "fetch", "audio url is empty", nil)
	}
	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return false, services.Wrap(services.ErrValidation, "download", "fetch", "build request", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return false, services.Wrap(marker, "download", "fetch", "request audio", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return false, services.Wrap(services.ErrNotFound, "download", "fetch",
			fmt.Sprintf("audio missing upstream (status %d)", resp.StatusCode), nil)
	default:
		return false, services.Wrap(services.ErrTransient, "download", "fetch",
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return false, fmt.Errorf("create scratch dir: %w", err)
	}

	// Write through a temp file so a partial transfer never looks like a
	// completed artifact to a later run.
	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".part-*")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		marker := services.ErrTransient
		if errors.Is(err, context.DeadlineExceeded) {
			marker = services.ErrTimeout
		}
		return false, services.Wrap(marker, "download", "fetch", "copy audio body", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return false, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return false, fmt.Errorf("finalize download: %w", err)
	}
	return true, nil
}
