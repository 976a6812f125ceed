package search

import (
	"context"
	"errors"
	"log/slog"

	"tellmemore/internal/catalog"
	"tellmemore/internal/chunk"
	"tellmemore/internal/config"
	"tellmemore/internal/embeddings"
	"tellmemore/internal/logging"
	"tellmemore/internal/pipeline"
	"tellmemore/internal/transcript"
)

// ErrNoEmbeddings signals an empty embedding store. The message is shown to
// users as-is, so it names the fix.
var ErrNoEmbeddings = errors.New("no embeddings found - run 'tellmemore process' first")

// Embedder produces the query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// PlayableResult is a ranked match with an optional playable window.
type PlayableResult struct {
	Match       embeddings.Match
	Window      chunk.Window
	PlayableURL string
}

// Service answers text queries against the embedding store.
type Service struct {
	cfg      *config.Config
	store    *embeddings.Store
	embedder Embedder
	locator  *chunk.Locator
	logger   *slog.Logger
}

// New wires the search path together.
func New(cfg *config.Config, store *embeddings.Store, emb Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:      cfg,
		store:    store,
		embedder: emb,
		locator:  chunk.NewLocator(cfg),
		logger:   logger,
	}
}

// Search embeds the query and returns the topK most similar episodes.
// topK <= 0 uses the configured default.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]embeddings.Match, error) {
	if topK <= 0 {
		topK = s.cfg.Search.TopK
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoEmbeddings
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.RankBySimilarity(ctx, queryVector, topK)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("query ranked",
		slog.Int("candidates", count),
		slog.Int("returned", len(matches)))
	return matches, nil
}

// Play runs Search and attaches a playable window to each match that yields
// one. Episodes with a retained transcript use transcript-anchored
// boundaries; when the transcript scores below the match threshold the
// episode is dropped so the next-ranked one can serve. Episodes without a
// transcript fall back to metadata-anchored boundaries.
func (s *Service) Play(ctx context.Context, query string, topK int) ([]PlayableResult, error) {
	matches, err := s.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	descriptions := s.descriptionsByAudioURL()
	results := make([]PlayableResult, 0, len(matches))
	for _, match := range matches {
		window, ok := s.locate(query, match.Record, descriptions)
		if !ok {
			s.logger.Debug("no playable window",
				slog.String(logging.FieldEpisode, match.Record.SimplifiedID))
			continue
		}
		results = append(results, PlayableResult{
			Match:       match,
			Window:      window,
			PlayableURL: chunk.PlayableURL(match.Record.AudioURL, window),
		})
	}
	return results, nil
}

func (s *Service) locate(query string, record embeddings.Record, descriptions map[string]string) (chunk.Window, bool) {
	if tr, err := transcript.LoadFile(pipeline.TranscriptPath(s.cfg, record.SimplifiedID)); err == nil && tr.Valid() {
		return s.locator.FromTranscript(query, &tr)
	}
	return s.locator.FromMetadata(record.DurationSeconds, descriptions[record.AudioURL])
}

// descriptionsByAudioURL loads the catalog, when present, to recover episode
// descriptions for the metadata duration estimate. Embedding records do not
// carry descriptions themselves.
func (s *Service) descriptionsByAudioURL() map[string]string {
	cat, err := catalog.LoadFile(s.cfg.Catalog.File)
	if err != nil {
		return nil
	}
	descriptions := make(map[string]string)
	for _, ep := range cat.Episodes() {
		if ep.Description != "" {
			descriptions[ep.AudioURL] = ep.Description
		}
	}
	return descriptions
}
