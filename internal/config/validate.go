package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWhisper(); err != nil {
		return err
	}
	if err := c.validateEmbedding(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateWhisper() error {
	if c.Whisper.Binary == "" {
		return errors.New("whisper.binary must be set")
	}
	if c.Whisper.ModelPath == "" {
		return errors.New("whisper.model_path must be set")
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	if c.Embedding.Model == "" {
		return errors.New("embedding.model must be set")
	}
	if c.Embedding.Dimension <= 0 {
		return errors.New("embedding.dimension must be positive")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	var previous time.Duration
	for i, raw := range c.Processing.Backoff {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("processing.backoff[%d]: %w", i, err)
		}
		if d <= 0 {
			return fmt.Errorf("processing.backoff[%d] must be positive", i)
		}
		if d < previous {
			return fmt.Errorf("processing.backoff[%d] must be non-decreasing", i)
		}
		previous = d
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.ScoreThreshold >= 1 {
		return errors.New("search.score_threshold must be below 1")
	}
	if c.Search.MinChunkSeconds > c.Search.WindowSeconds {
		return errors.New("search.min_chunk_seconds cannot exceed search.window_seconds")
	}
	return nil
}

// RequireEmbeddingCredentials reports a clear diagnostic when the embedding
// API key is missing. Commands that call the embedding service use this so
// the failure is actionable instead of a mid-pipeline HTTP 401.
func (c *Config) RequireEmbeddingCredentials() error {
	if c.Embedding.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/tellmemore/config.toml"
		}
		return fmt.Errorf("embedding.api_key is required. Set EMBEDDING_API_KEY or OPENAI_API_KEY, or edit %s (create with 'tellmemore config init')", defaultPath)
	}
	return nil
}
