package pipeline

import (
	"path/filepath"

	"tellmemore/internal/config"
)

// AudioPath returns the scratch audio location for an episode, keyed by its
// external id so a retried run finds the artifact of a previous attempt.
func AudioPath(cfg *config.Config, externalID string) string {
	return filepath.Join(cfg.Paths.StagingDir, externalID+".audio")
}

// TranscriptPath returns the scratch transcript location, keyed by the
// simplified id so the search path can find retained transcripts directly.
func TranscriptPath(cfg *config.Config, simplifiedID string) string {
	return filepath.Join(cfg.Paths.StagingDir, simplifiedID+".transcript.json")
}
