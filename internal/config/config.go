package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir   string `toml:"state_dir"`
	StagingDir string `toml:"staging_dir"`
	LogDir     string `toml:"log_dir"`
}

// Catalog contains configuration for the episode catalog source.
type Catalog struct {
	File         string `toml:"file"`
	FeedURL      string `toml:"feed_url"`
	DefaultTopic string `toml:"default_topic"`
}

// Whisper contains configuration for whisper.cpp transcription.
type Whisper struct {
	Binary         string `toml:"binary"`
	ModelPath      string `toml:"model_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxLineChars   int    `toml:"max_line_chars"`
}

// Embedding contains configuration for the embedding API.
type Embedding struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Dimension      int    `toml:"dimension"`
	MaxChars       int    `toml:"max_chars"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Download contains configuration for audio fetching.
type Download struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Processing contains queue and retry configuration.
type Processing struct {
	Backoff       []string `toml:"backoff"`
	KeepArtifacts bool     `toml:"keep_artifacts"`
}

// Search contains chunk locator and ranking configuration.
type Search struct {
	WindowSeconds          float64 `toml:"window_seconds"`
	IntroSkipSeconds       float64 `toml:"intro_skip_seconds"`
	OutroSkipSeconds       float64 `toml:"outro_skip_seconds"`
	MinChunkSeconds        float64 `toml:"min_chunk_seconds"`
	ScoreThreshold         float64 `toml:"score_threshold"`
	DefaultDurationSeconds float64 `toml:"default_duration_seconds"`
	TopK                   int     `toml:"top_k"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tellmemore.
//
// Configuration sections by subsystem:
//   - Paths: state database, scratch staging, and log directories
//   - Catalog: episode catalog file and optional RSS feed source
//   - Whisper: whisper.cpp binary, model, and timeout
//   - Embedding: embedding API credentials, model, and vector dimension
//   - Download: audio fetch timeout and user agent
//   - Processing: retry backoff schedule and artifact retention
//   - Search: chunk window sizing and ranking knobs
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Catalog    Catalog    `toml:"catalog"`
	Whisper    Whisper    `toml:"whisper"`
	Embedding  Embedding  `toml:"embedding"`
	Download   Download   `toml:"download"`
	Processing Processing `toml:"processing"`
	Search     Search     `toml:"search"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tellmemore/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tellmemore.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories required for a processing run.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockFilePath returns the path of the single-runner lock file.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.StateDir, "tellmemore.lock")
}

// DatabasePath returns the path of the state database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "tellmemore.db")
}

// BackoffSchedule parses the configured backoff entries into durations.
// normalize validates the entries, so errors here fall back to defaults.
func (c *Config) BackoffSchedule() []time.Duration {
	schedule := make([]time.Duration, 0, len(c.Processing.Backoff))
	for _, raw := range c.Processing.Backoff {
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		schedule = append(schedule, d)
	}
	if len(schedule) == 0 {
		return defaultBackoffSchedule()
	}
	return schedule
}

// WhisperTimeout returns the bounded transcription timeout.
func (c *Config) WhisperTimeout() time.Duration {
	return time.Duration(c.Whisper.TimeoutSeconds) * time.Second
}

// EmbeddingTimeout returns the bounded embedding request timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	return time.Duration(c.Embedding.TimeoutSeconds) * time.Second
}

// DownloadTimeout returns the bounded audio download timeout.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Download.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
