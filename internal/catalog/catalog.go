package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Episode is one catalog entry. Immutable once ingested; the catalog
// collaborator owns these records and the pipeline only reads them.
type Episode struct {
	ExternalID      string    `json:"external_id"`
	Title           string    `json:"title"`
	ShowName        string    `json:"show_name"`
	Topic           string    `json:"topic"`
	AudioURL        string    `json:"audio_url"`
	Description     string    `json:"description"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	PublishDate     time.Time `json:"publish_date"`
}

// Valid reports whether the episode carries the fields the pipeline requires.
func (e Episode) Valid() bool {
	return strings.TrimSpace(e.ExternalID) != "" && strings.TrimSpace(e.AudioURL) != ""
}

// Catalog is an in-memory episode list keyed by external id.
type Catalog struct {
	episodes []Episode
	byID     map[string]int
}

// New builds a catalog from episodes, dropping invalid entries and keeping the
// first occurrence of duplicate external ids.
func New(episodes []Episode) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(episodes))}
	for _, ep := range episodes {
		if !ep.Valid() {
			continue
		}
		if _, exists := c.byID[ep.ExternalID]; exists {
			continue
		}
		c.byID[ep.ExternalID] = len(c.episodes)
		c.episodes = append(c.episodes, ep)
	}
	return c
}

// LoadFile reads a JSON episode catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var episodes []Episode
	if err := json.Unmarshal(data, &episodes); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(episodes), nil
}

// Lookup returns the episode with the given external id.
func (c *Catalog) Lookup(externalID string) (Episode, bool) {
	idx, ok := c.byID[externalID]
	if !ok {
		return Episode{}, false
	}
	return c.episodes[idx], true
}

// Episodes returns all episodes in catalog order.
func (c *Catalog) Episodes() []Episode {
	out := make([]Episode, len(c.episodes))
	copy(out, c.episodes)
	return out
}

// ByTopic returns episodes for one topic, ordered by publish date then
// external id so the listing is deterministic across runs.
func (c *Catalog) ByTopic(topic string) []Episode {
	topic = strings.ToLower(strings.TrimSpace(topic))
	var out []Episode
	for _, ep := range c.episodes {
		if strings.ToLower(strings.TrimSpace(ep.Topic)) == topic {
			out = append(out, ep)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PublishDate.Equal(out[j].PublishDate) {
			return out[i].PublishDate.Before(out[j].PublishDate)
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out
}

// Len returns the number of episodes in the catalog.
func (c *Catalog) Len() int {
	return len(c.episodes)
}
