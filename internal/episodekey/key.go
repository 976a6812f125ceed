package episodekey

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Key is the simplified episode identifier, "{topic}_{NNN}". It joins
// transcript, embedding, and queue records for one episode.
type Key struct {
	Topic    string
	Sequence int
}

var keyPattern = regexp.MustCompile(`^([a-z0-9-]+)_(\d{3,})$`)

// New builds a key from a topic and a 1-based sequence number.
func New(topic string, sequence int) (Key, error) {
	normalized := NormalizeTopic(topic)
	if normalized == "" {
		return Key{}, fmt.Errorf("episode key: empty topic")
	}
	if sequence <= 0 {
		return Key{}, fmt.Errorf("episode key: sequence must be positive, got %d", sequence)
	}
	return Key{Topic: normalized, Sequence: sequence}, nil
}

// Parse converts "{topic}_{NNN}" into a Key. Malformed input returns ok=false
// rather than an error so the read path can degrade gracefully.
func Parse(value string) (Key, bool) {
	match := keyPattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return Key{}, false
	}
	seq, err := strconv.Atoi(match[2])
	if err != nil || seq <= 0 {
		return Key{}, false
	}
	return Key{Topic: match[1], Sequence: seq}, true
}

// String renders the canonical "{topic}_{NNN}" form with a zero-padded
// three-digit sequence.
func (k Key) String() string {
	return fmt.Sprintf("%s_%03d", k.Topic, k.Sequence)
}

// NormalizeTopic folds a free-form topic label into the lowercase
// hyphenated form used inside keys.
func NormalizeTopic(topic string) string {
	folded := cases.Lower(language.Und).String(strings.TrimSpace(topic))
	var b strings.Builder
	prevHyphen := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			prevHyphen = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if b.Len() > 0 && !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
