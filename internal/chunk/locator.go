package chunk

import (
	"strings"

	"tellmemore/internal/config"
	"tellmemore/internal/transcript"
)

// Source identifies which policy produced a window.
type Source string

const (
	SourceTranscript Source = "transcript"
	SourceMetadata   Source = "metadata"
)

// Window is a playable time slice of an episode, in seconds.
type Window struct {
	StartSeconds float64
	EndSeconds   float64
	Source       Source
}

// Length returns the window duration in seconds.
func (w Window) Length() float64 {
	return w.EndSeconds - w.StartSeconds
}

// Boundary tolerances around the target window. The start may land up to
// startEarlyTolerance seconds before the ideal window start so it can snap
// to the preceding utterance; the end may run over by endTolerance seconds
// to avoid cutting a sentence.
const (
	startEarlyTolerance = 30.0
	endTolerance        = 30.0
	minQueryTermLength  = 2
)

// Locator computes playable (start, end) windows for search results. It
// prefers anchoring boundaries to transcript segment starts so playback
// never begins mid-sentence, and falls back to a metadata estimate when no
// transcript survives.
type Locator struct {
	window          float64
	introSkip       float64
	outroSkip       float64
	minChunk        float64
	defaultDuration float64
	scoreThreshold  float64
}

// NewLocator builds a Locator from the search configuration.
func NewLocator(cfg *config.Config) *Locator {
	return &Locator{
		window:          cfg.Search.WindowSeconds,
		introSkip:       cfg.Search.IntroSkipSeconds,
		outroSkip:       cfg.Search.OutroSkipSeconds,
		minChunk:        cfg.Search.MinChunkSeconds,
		defaultDuration: cfg.Search.DefaultDurationSeconds,
		scoreThreshold:  cfg.Search.ScoreThreshold,
	}
}

// FromTranscript locates the query match inside the transcript and returns a
// window anchored on real segment boundaries. The second return value is
// false when no segment scores above the match threshold, or when no segment
// can serve as the window start; callers should then try the next-ranked
// episode or fall back to FromMetadata.
func (l *Locator) FromTranscript(query string, tr *transcript.Transcript) (Window, bool) {
	if tr == nil || !tr.Valid() {
		return Window{}, false
	}
	terms := queryTerms(query)
	if len(terms) == 0 {
		return Window{}, false
	}

	matchIdx := -1
	bestScore := 0.0
	for i, seg := range tr.Segments {
		score := segmentScore(seg.Text, terms)
		if score > bestScore {
			bestScore = score
			matchIdx = i
		}
	}
	if matchIdx < 0 || bestScore <= l.scoreThreshold {
		return Window{}, false
	}

	target := tr.Segments[matchIdx].StartSeconds
	idealStart := target - l.window/2

	// Snap the start to the first utterance at or after the ideal window
	// start. The match segment itself is the latest acceptable start.
	start := -1.0
	for _, seg := range tr.Segments {
		if seg.StartSeconds >= idealStart-startEarlyTolerance && seg.StartSeconds <= target {
			start = seg.StartSeconds
			break
		}
	}
	if start < 0 {
		return Window{}, false
	}

	// The end is the last utterance finishing inside the window, with a
	// little slack so a sentence in flight can complete.
	end := start
	limit := start + l.window + endTolerance
	for _, seg := range tr.Segments {
		if seg.StartSeconds < start {
			continue
		}
		if seg.EndSeconds <= limit && seg.EndSeconds > end {
			end = seg.EndSeconds
		}
	}
	if end <= start {
		return Window{}, false
	}
	return Window{StartSeconds: start, EndSeconds: end, Source: SourceTranscript}, true
}

// FromMetadata estimates a window without a transcript. The duration comes
// from the explicit field when present, then from an "N min" pattern in the
// description, then from the configured default. The intro and outro are
// excluded and the window is centered in what remains, clamping to the whole
// usable span when the episode is short.
func (l *Locator) FromMetadata(durationSeconds float64, description string) (Window, bool) {
	duration := l.estimateDuration(durationSeconds, description)
	usableStart := l.introSkip
	usableEnd := duration - l.outroSkip
	span := usableEnd - usableStart
	if span <= 0 {
		return Window{}, false
	}

	if span <= l.window {
		// Short episode: the whole usable span is the chunk.
		return Window{StartSeconds: usableStart, EndSeconds: usableEnd, Source: SourceMetadata}, true
	}

	start := usableStart + (span-l.window)/2
	end := start + l.window
	if end-start < l.minChunk {
		end = start + l.minChunk
		if end > usableEnd {
			end = usableEnd
		}
	}
	return Window{StartSeconds: start, EndSeconds: end, Source: SourceMetadata}, true
}

func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		term := strings.Trim(field, ".,!?;:\"'()")
		if len(term) > minQueryTermLength {
			terms = append(terms, term)
		}
	}
	return terms
}

// segmentScore is the fraction of query terms the segment text contains.
func segmentScore(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lowered := strings.ToLower(text)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
