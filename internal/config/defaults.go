package config

import "time"

const (
	defaultStateDir                = "~/.local/share/tellmemore"
	defaultStagingDir              = "~/.local/share/tellmemore/staging"
	defaultLogDir                  = "~/.local/share/tellmemore/logs"
	defaultCatalogFile             = "~/.local/share/tellmemore/episodes.json"
	defaultTopic                   = "general"
	defaultWhisperBinary           = "whisper-cli"
	defaultWhisperModelPath        = "~/.local/share/tellmemore/models/ggml-base.en.bin"
	defaultWhisperTimeoutSeconds   = 300
	defaultWhisperMaxLineChars     = 60
	defaultEmbeddingBaseURL        = "https://api.openai.com/v1"
	defaultEmbeddingModel          = "text-embedding-3-small"
	defaultEmbeddingDimension      = 1536
	defaultEmbeddingMaxChars       = 8000
	defaultEmbeddingTimeoutSeconds = 300
	defaultDownloadTimeoutSeconds  = 300
	defaultDownloadUserAgent       = "tellmemore/dev"
	defaultWindowSeconds           = 300
	defaultIntroSkipSeconds        = 45
	defaultOutroSkipSeconds        = 30
	defaultMinChunkSeconds         = 60
	defaultScoreThreshold          = 0.3
	defaultDurationSeconds         = 1800
	defaultTopK                    = 5
	defaultLogFormat               = "auto"
	defaultLogLevel                = "info"
)

func defaultBackoffSchedule() []time.Duration {
	return []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:   defaultStateDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Catalog: Catalog{
			File:         defaultCatalogFile,
			DefaultTopic: defaultTopic,
		},
		Whisper: Whisper{
			Binary:         defaultWhisperBinary,
			ModelPath:      defaultWhisperModelPath,
			TimeoutSeconds: defaultWhisperTimeoutSeconds,
			MaxLineChars:   defaultWhisperMaxLineChars,
		},
		Embedding: Embedding{
			BaseURL:        defaultEmbeddingBaseURL,
			Model:          defaultEmbeddingModel,
			Dimension:      defaultEmbeddingDimension,
			MaxChars:       defaultEmbeddingMaxChars,
			TimeoutSeconds: defaultEmbeddingTimeoutSeconds,
		},
		Download: Download{
			TimeoutSeconds: defaultDownloadTimeoutSeconds,
			UserAgent:      defaultDownloadUserAgent,
		},
		Processing: Processing{
			Backoff: []string{"1s", "2s", "4s", "8s", "16s"},
		},
		Search: Search{
			WindowSeconds:          defaultWindowSeconds,
			IntroSkipSeconds:       defaultIntroSkipSeconds,
			OutroSkipSeconds:       defaultOutroSkipSeconds,
			MinChunkSeconds:        defaultMinChunkSeconds,
			ScoreThreshold:         defaultScoreThreshold,
			DefaultDurationSeconds: defaultDurationSeconds,
			TopK:                   defaultTopK,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
