package chunk

import (
	"regexp"
	"strconv"
)

var minutesPattern = regexp.MustCompile(`(?i)\b(\d+)\s*min(?:ute)?s?\b`)

// estimateDuration resolves the episode length in seconds: the explicit
// duration field wins, then an "N min" pattern in the description, then the
// configured default.
func (l *Locator) estimateDuration(durationSeconds float64, description string) float64 {
	if durationSeconds > 0 {
		return durationSeconds
	}
	if match := minutesPattern.FindStringSubmatch(description); match != nil {
		if minutes, err := strconv.Atoi(match[1]); err == nil && minutes > 0 {
			return float64(minutes) * 60
		}
	}
	return l.defaultDuration
}
