package chunk_test

import (
	"strings"
	"testing"

	"tellmemore/internal/chunk"
	"tellmemore/internal/config"
	"tellmemore/internal/transcript"
)

func newLocator() *chunk.Locator {
	cfg := config.Default()
	return chunk.NewLocator(&cfg)
}

func cartelTranscript() *transcript.Transcript {
	return &transcript.Transcript{Segments: []transcript.Segment{
		{StartSeconds: 10.0, EndSeconds: 18.0, Text: "welcome back to the show"},
		{StartSeconds: 310.0, EndSeconds: 318.5, Text: "reports of the cartel crossing the border"},
		{StartSeconds: 520.0, EndSeconds: 530.0, Text: "we will follow up next week"},
	}}
}

func TestFromTranscriptAnchorsOnMatchSegment(t *testing.T) {
	locator := newLocator()

	window, ok := locator.FromTranscript("cartel smuggling", cartelTranscript())
	if !ok {
		t.Fatal("expected a window for a scoring match")
	}
	if window.StartSeconds != 310.0 {
		t.Errorf("start = %v, want 310.0", window.StartSeconds)
	}
	if window.EndSeconds != 530.0 {
		t.Errorf("end = %v, want 530.0 (last segment within start+window+tolerance)", window.EndSeconds)
	}
	if window.Source != chunk.SourceTranscript {
		t.Errorf("source = %s, want transcript", window.Source)
	}
	if window.Length() <= 0 {
		t.Error("window has non-positive length")
	}
	if window.Length() > 300+30 {
		t.Errorf("window length %v exceeds window plus tolerance", window.Length())
	}
}

func TestFromTranscriptBelowThresholdProducesNoChunk(t *testing.T) {
	locator := newLocator()

	if _, ok := locator.FromTranscript("quantum computing hardware", cartelTranscript()); ok {
		t.Fatal("expected no window when no segment scores above threshold")
	}
}

func TestFromTranscriptRequiresValidTranscript(t *testing.T) {
	locator := newLocator()

	if _, ok := locator.FromTranscript("cartel", nil); ok {
		t.Fatal("expected no window for nil transcript")
	}
	if _, ok := locator.FromTranscript("cartel", &transcript.Transcript{}); ok {
		t.Fatal("expected no window for empty transcript")
	}
	if _, ok := locator.FromTranscript("", cartelTranscript()); ok {
		t.Fatal("expected no window for empty query")
	}
}

func TestFromTranscriptIgnoresShortQueryTerms(t *testing.T) {
	locator := newLocator()

	// Only terms longer than two characters participate in scoring.
	window, ok := locator.FromTranscript("a of cartel", cartelTranscript())
	if !ok {
		t.Fatal("expected a window")
	}
	if window.StartSeconds != 310.0 {
		t.Errorf("start = %v, want 310.0", window.StartSeconds)
	}
}

func TestFromMetadataParsesDescriptionMinutes(t *testing.T) {
	locator := newLocator()

	// "45 min" resolves to 2700s; the chunk must fit in [45, 2670].
	window, ok := locator.FromMetadata(0, "A deep dive, about 45 min long.")
	if !ok {
		t.Fatal("expected a window")
	}
	if window.StartSeconds < 45 {
		t.Errorf("start %v before intro skip", window.StartSeconds)
	}
	if window.EndSeconds > 2700-30 {
		t.Errorf("end %v after outro boundary", window.EndSeconds)
	}
	if got := window.Length(); got != 300 {
		t.Errorf("window length = %v, want 300", got)
	}
	if window.Source != chunk.SourceMetadata {
		t.Errorf("source = %s, want metadata", window.Source)
	}
}

func TestFromMetadataExplicitDurationWins(t *testing.T) {
	locator := newLocator()

	window, ok := locator.FromMetadata(1200, "claims to be 45 min")
	if !ok {
		t.Fatal("expected a window")
	}
	if window.EndSeconds > 1200-30 {
		t.Errorf("end %v ignores the explicit duration", window.EndSeconds)
	}
}

func TestFromMetadataDefaultDuration(t *testing.T) {
	locator := newLocator()

	window, ok := locator.FromMetadata(0, "no hints here")
	if !ok {
		t.Fatal("expected a window")
	}
	if window.EndSeconds > 1800-30 {
		t.Errorf("end %v exceeds default-duration outro boundary", window.EndSeconds)
	}
	if window.StartSeconds < 45 {
		t.Errorf("start %v before intro skip", window.StartSeconds)
	}
}

func TestFromMetadataShortEpisodeReturnsWholeSpan(t *testing.T) {
	locator := newLocator()

	window, ok := locator.FromMetadata(200, "")
	if !ok {
		t.Fatal("expected a window for a short episode")
	}
	if window.StartSeconds != 45 || window.EndSeconds != 170 {
		t.Errorf("window = [%v, %v], want whole usable span [45, 170]", window.StartSeconds, window.EndSeconds)
	}
}

func TestFromMetadataTinyEpisodeProducesNoChunk(t *testing.T) {
	locator := newLocator()

	if _, ok := locator.FromMetadata(60, ""); ok {
		t.Fatal("expected no window when intro and outro swallow the episode")
	}
}

func TestPlayableURLCarriesBothForms(t *testing.T) {
	window := chunk.Window{StartSeconds: 310, EndSeconds: 530}
	got := chunk.PlayableURL("https://cdn.example.com/ep.mp3", window)

	if !strings.Contains(got, "#t=310,530") {
		t.Errorf("missing media fragment in %q", got)
	}
	if !strings.Contains(got, "start=310") || !strings.Contains(got, "end=530") {
		t.Errorf("missing query parameters in %q", got)
	}
}

func TestPlayableURLPreservesExistingQuery(t *testing.T) {
	window := chunk.Window{StartSeconds: 45, EndSeconds: 170}
	got := chunk.PlayableURL("https://cdn.example.com/ep.mp3?token=abc", window)

	if !strings.Contains(got, "token=abc") {
		t.Errorf("existing query dropped in %q", got)
	}
	if !strings.Contains(got, "#t=45,170") {
		t.Errorf("missing media fragment in %q", got)
	}
}
