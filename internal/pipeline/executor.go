package pipeline

import (
	"context"
	"log/slog"
	"os"
	"time"

	"tellmemore/internal/config"
	"tellmemore/internal/embeddings"
	"tellmemore/internal/logging"
	"tellmemore/internal/queue"
	"tellmemore/internal/services"
	"tellmemore/internal/transcript"
)

// Fetcher downloads episode audio to a destination path.
type Fetcher interface {
	Fetch(ctx context.Context, audioURL, destPath string) (bool, error)
}

// Transcriber turns an audio file into timestamped segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*transcript.Transcript, error)
}

// Embedder turns bounded text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
}

// Result describes the terminal outcome of one pipeline run.
type Result struct {
	// Embedded is true when an embedding record was written.
	Embedded bool
	// Skipped is true when the episode produced no valid transcript and the
	// embed step was skipped by policy. Not an error.
	Skipped bool
}

// Executor runs the per-episode pipeline: download, transcribe, embed,
// cleanup. Each step is idempotent, so a failed run restarts from the top
// and skips the steps whose artifacts already exist. Errors from any step
// bubble to the queue layer; the executor itself never reports failures.
type Executor struct {
	cfg         *config.Config
	fetcher     Fetcher
	transcriber Transcriber
	embedder    Embedder
	store       *embeddings.Store
	logger      *slog.Logger
}

// NewExecutor wires the pipeline steps together.
func NewExecutor(cfg *config.Config, fetcher Fetcher, transcriber Transcriber, emb Embedder, store *embeddings.Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		cfg:         cfg,
		fetcher:     fetcher,
		transcriber: transcriber,
		embedder:    emb,
		store:       store,
		logger:      logger,
	}
}

// Process runs the pipeline for one claimed queue item. Cleanup always runs,
// whatever the outcome, so scratch storage stays bounded.
func (e *Executor) Process(ctx context.Context, item *queue.Item) (result Result, err error) {
	ctx = services.WithEpisode(ctx, item.SimplifiedID)
	logger := logging.WithContext(ctx, e.logger)

	audioPath := AudioPath(e.cfg, item.ExternalID)
	transcriptPath := TranscriptPath(e.cfg, item.SimplifiedID)
	defer func() {
		e.cleanup(logger, audioPath, transcriptPath)
	}()

	// Download
	transferred, err := e.fetcher.Fetch(ctx, item.Episode.AudioURL, audioPath)
	if err != nil {
		return result, err
	}
	logger.Info("audio ready",
		slog.String(logging.FieldStage, "download"),
		slog.Bool("transferred", transferred))

	// Transcribe
	tr, err := e.transcribe(ctx, audioPath, transcriptPath)
	if err != nil {
		return result, err
	}
	if !tr.Valid() {
		logger.Warn("no usable transcript, skipping embed",
			slog.String(logging.FieldStage, "transcribe"))
		result.Skipped = true
		return result, nil
	}
	logger.Info("transcript ready",
		slog.String(logging.FieldStage, "transcribe"),
		slog.Int("segments", len(tr.Segments)))

	// Embed
	text := tr.JoinedText(e.cfg.Embedding.MaxChars)
	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return result, err
	}
	record := embeddings.Record{
		SimplifiedID:    item.SimplifiedID,
		Topic:           item.Episode.Topic,
		Title:           item.Episode.Title,
		ShowName:        item.Episode.ShowName,
		AudioURL:        item.Episode.AudioURL,
		DurationSeconds: item.Episode.DurationSeconds,
		Model:           e.embedder.Model(),
	}
	record.Vector = vector
	if err := e.store.Append(ctx, record); err != nil {
		return result, services.Wrap(services.ErrTransient, "embed", "persist", "store embedding record", err)
	}
	logger.Info("embedding stored",
		slog.String(logging.FieldStage, "embed"),
		slog.Int("dimension", len(vector)))
	result.Embedded = true
	return result, nil
}

// transcribe returns the saved transcript when a previous attempt left one
// behind, otherwise invokes the transcriber under its bounded timeout.
func (e *Executor) transcribe(ctx context.Context, audioPath, transcriptPath string) (*transcript.Transcript, error) {
	if saved, err := transcript.LoadFile(transcriptPath); err == nil {
		return &saved, nil
	}

	timeout := e.cfg.WhisperTimeout()
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	tr, err := e.transcriber.Transcribe(runCtx, audioPath)
	if err != nil {
		return nil, err
	}
	if err := tr.SaveFile(transcriptPath); err != nil {
		return nil, services.Wrap(services.ErrTransient, "transcribe", "persist", "save transcript", err)
	}
	return tr, nil
}

func (e *Executor) cleanup(logger *slog.Logger, audioPath, transcriptPath string) {
	if e.cfg.Processing.KeepArtifacts {
		logger.Debug("keeping scratch artifacts",
			slog.String(logging.FieldStage, "cleanup"))
		return
	}
	start := time.Now()
	for _, path := range []string{audioPath, transcriptPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("scratch removal failed",
				slog.String(logging.FieldStage, "cleanup"),
				slog.String("path", path),
				logging.Error(err))
		}
	}
	logger.Debug("scratch cleaned",
		slog.String(logging.FieldStage, "cleanup"),
		slog.Duration("elapsed", time.Since(start)))
}
