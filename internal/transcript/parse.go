package transcript

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// markerPattern matches whisper.cpp timestamp markers:
// [00:05:10.000 --> 00:05:14.280]  utterance text
var markerPattern = regexp.MustCompile(`^\[(\d{1,2}):(\d{2}):(\d{2})(?:[.,](\d{1,3}))?\s*-->\s*(\d{1,2}):(\d{2}):(\d{2})(?:[.,](\d{1,3}))?\]\s*(.*)$`)

// Parse extracts timestamped segments from whisper.cpp text output. Lines
// without a timestamp marker are ignored; a transcript with no markers at all
// parses to an empty (invalid) transcript rather than an error, because
// marker absence is a skip condition for the pipeline, not a failure.
func Parse(raw string) Transcript {
	var t Transcript
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		match := markerPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		start := timestampSeconds(match[1], match[2], match[3], match[4])
		end := timestampSeconds(match[5], match[6], match[7], match[8])
		text := strings.TrimSpace(match[9])
		if end < start {
			continue
		}
		t.Segments = append(t.Segments, Segment{
			StartSeconds: start,
			EndSeconds:   end,
			Text:         text,
		})
	}
	return t
}

func timestampSeconds(hh, mm, ss, frac string) float64 {
	hours, _ := strconv.Atoi(hh)
	minutes, _ := strconv.Atoi(mm)
	seconds, _ := strconv.Atoi(ss)
	total := float64(hours*3600 + minutes*60 + seconds)
	if frac != "" {
		// Pad to milliseconds so ".5" and ".500" agree.
		for len(frac) < 3 {
			frac += "0"
		}
		millis, _ := strconv.Atoi(frac[:3])
		total += float64(millis) / 1000
	}
	return total
}
