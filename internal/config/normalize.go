package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	if err := c.normalizeWhisper(); err != nil {
		return err
	}
	c.normalizeEmbedding()
	c.normalizeDownload()
	c.normalizeProcessing()
	c.normalizeSearch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	var err error
	c.Catalog.FeedURL = strings.TrimSpace(c.Catalog.FeedURL)
	if strings.TrimSpace(c.Catalog.File) != "" {
		if c.Catalog.File, err = expandPath(c.Catalog.File); err != nil {
			return fmt.Errorf("catalog.file: %w", err)
		}
	}
	c.Catalog.DefaultTopic = strings.ToLower(strings.TrimSpace(c.Catalog.DefaultTopic))
	if c.Catalog.DefaultTopic == "" {
		c.Catalog.DefaultTopic = defaultTopic
	}
	return nil
}

func (c *Config) normalizeWhisper() error {
	var err error
	c.Whisper.Binary = strings.TrimSpace(c.Whisper.Binary)
	if c.Whisper.Binary == "" {
		c.Whisper.Binary = defaultWhisperBinary
	}
	if strings.TrimSpace(c.Whisper.ModelPath) != "" {
		if c.Whisper.ModelPath, err = expandPath(c.Whisper.ModelPath); err != nil {
			return fmt.Errorf("whisper.model_path: %w", err)
		}
	}
	if c.Whisper.TimeoutSeconds <= 0 {
		c.Whisper.TimeoutSeconds = defaultWhisperTimeoutSeconds
	}
	if c.Whisper.MaxLineChars <= 0 {
		c.Whisper.MaxLineChars = defaultWhisperMaxLineChars
	}
	return nil
}

func (c *Config) normalizeEmbedding() {
	c.Embedding.APIKey = strings.TrimSpace(c.Embedding.APIKey)
	if c.Embedding.APIKey == "" {
		if value, ok := os.LookupEnv("EMBEDDING_API_KEY"); ok {
			c.Embedding.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Embedding.APIKey = strings.TrimSpace(value)
		}
	}
	c.Embedding.BaseURL = strings.TrimSpace(c.Embedding.BaseURL)
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = defaultEmbeddingBaseURL
	}
	c.Embedding.Model = strings.TrimSpace(c.Embedding.Model)
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultEmbeddingModel
	}
	if c.Embedding.Dimension <= 0 {
		c.Embedding.Dimension = defaultEmbeddingDimension
	}
	if c.Embedding.MaxChars <= 0 {
		c.Embedding.MaxChars = defaultEmbeddingMaxChars
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		c.Embedding.TimeoutSeconds = defaultEmbeddingTimeoutSeconds
	}
}

func (c *Config) normalizeDownload() {
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeoutSeconds
	}
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultDownloadUserAgent
	}
}

func (c *Config) normalizeProcessing() {
	entries := make([]string, 0, len(c.Processing.Backoff))
	for _, raw := range c.Processing.Backoff {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if _, err := time.ParseDuration(trimmed); err != nil {
			continue
		}
		entries = append(entries, trimmed)
	}
	if len(entries) == 0 {
		entries = Default().Processing.Backoff
	}
	c.Processing.Backoff = entries
}

func (c *Config) normalizeSearch() {
	if c.Search.WindowSeconds <= 0 {
		c.Search.WindowSeconds = defaultWindowSeconds
	}
	if c.Search.IntroSkipSeconds < 0 {
		c.Search.IntroSkipSeconds = defaultIntroSkipSeconds
	}
	if c.Search.OutroSkipSeconds < 0 {
		c.Search.OutroSkipSeconds = defaultOutroSkipSeconds
	}
	if c.Search.MinChunkSeconds <= 0 {
		c.Search.MinChunkSeconds = defaultMinChunkSeconds
	}
	if c.Search.ScoreThreshold <= 0 {
		c.Search.ScoreThreshold = defaultScoreThreshold
	}
	if c.Search.DefaultDurationSeconds <= 0 {
		c.Search.DefaultDurationSeconds = defaultDurationSeconds
	}
	if c.Search.TopK <= 0 {
		c.Search.TopK = defaultTopK
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "auto":
		c.Logging.Format = "auto"
	case "console", "json":
	default:
		c.Logging.Format = "auto"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
