package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// FeedSource fetches episodes from a podcast RSS/Atom feed.
type FeedSource struct {
	parser *gofeed.Parser
}

// NewFeedSource creates an RSS feed catalog source.
func NewFeedSource() *FeedSource {
	return &FeedSource{parser: gofeed.NewParser()}
}

// Fetch downloads and parses the feed, mapping items to episodes under the
// provided topic. Items without an audio enclosure are skipped.
func (s *FeedSource) Fetch(ctx context.Context, feedURL, topic string) ([]Episode, error) {
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	if feed == nil || len(feed.Items) == 0 {
		return nil, fmt.Errorf("feed %s contains no items", feedURL)
	}

	episodes := make([]Episode, 0, len(feed.Items))
	for _, item := range feed.Items {
		audioURL := enclosureURL(item)
		if audioURL == "" {
			continue
		}
		ep := Episode{
			ExternalID:  externalID(item, audioURL),
			Title:       strings.TrimSpace(item.Title),
			ShowName:    strings.TrimSpace(feed.Title),
			Topic:       strings.ToLower(strings.TrimSpace(topic)),
			AudioURL:    audioURL,
			Description: strings.TrimSpace(item.Description),
		}
		if item.PublishedParsed != nil {
			ep.PublishDate = item.PublishedParsed.UTC()
		}
		if item.ITunesExt != nil {
			ep.DurationSeconds = parseITunesDuration(item.ITunesExt.Duration)
		}
		episodes = append(episodes, ep)
	}
	if len(episodes) == 0 {
		return nil, fmt.Errorf("feed %s has no audio enclosures", feedURL)
	}
	return episodes, nil
}

func enclosureURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if enc.URL != "" && (enc.Type == "" || strings.HasPrefix(enc.Type, "audio/")) {
			return enc.URL
		}
	}
	return ""
}

func externalID(item *gofeed.Item, audioURL string) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return guid
	}
	// Fall back to the last path element of the enclosure URL.
	trimmed := strings.TrimRight(audioURL, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if dot := strings.LastIndex(trimmed, "."); dot > 0 {
		trimmed = trimmed[:dot]
	}
	return trimmed
}

// parseITunesDuration handles "HH:MM:SS", "MM:SS", and bare-seconds forms.
func parseITunesDuration(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if !strings.Contains(raw, ":") {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil || secs < 0 {
			return 0
		}
		return secs
	}
	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return 0
	}
	var total time.Duration
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + time.Duration(n)*time.Second
	}
	return total.Seconds()
}
