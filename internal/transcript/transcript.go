package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// Segment is one timestamped utterance. Segments are ephemeral: they exist
// between the transcribe and embed steps and are deleted by cleanup unless
// artifact retention is enabled.
type Segment struct {
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Text         string  `json:"text"`
}

// Transcript is an ordered sequence of segments for one episode.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

// Valid reports whether the transcript carries at least one timestamp marker.
// Embedding requires a valid transcript; anything else is a skip, not a
// failure. Only marker presence is checked, never semantic quality.
func (t Transcript) Valid() bool {
	return len(t.Segments) > 0
}

// JoinedText concatenates segment text in order, bounded to maxChars runes.
// The embedding service accepts a bounded budget, so long transcripts are
// truncated rather than rejected.
func (t Transcript) JoinedText(maxChars int) string {
	var b strings.Builder
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	joined := b.String()
	if maxChars <= 0 || utf8.RuneCountInString(joined) <= maxChars {
		return joined
	}
	runes := []rune(joined)
	return string(runes[:maxChars])
}

// SaveFile persists the transcript as scratch JSON.
func (t Transcript) SaveFile(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// LoadFile reads a scratch transcript written by SaveFile.
func LoadFile(path string) (Transcript, error) {
	var t Transcript
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read transcript: %w", err)
	}
	if err := json.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse transcript %s: %w", path, err)
	}
	return t, nil
}
