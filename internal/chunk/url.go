package chunk

import (
	"net/url"
	"strconv"
)

// PlayableURL combines the episode audio URL with the window in two
// redundant forms: a media-fragment hash (`#t=start,end`) and explicit
// start/end query parameters. Players disagree on which scheme they honor,
// so both are carried.
func PlayableURL(audioURL string, w Window) string {
	start := formatSeconds(w.StartSeconds)
	end := formatSeconds(w.EndSeconds)

	parsed, err := url.Parse(audioURL)
	if err != nil {
		return audioURL + "#t=" + start + "," + end
	}
	query := parsed.Query()
	query.Set("start", start)
	query.Set("end", end)
	parsed.RawQuery = query.Encode()
	parsed.Fragment = "t=" + start + "," + end
	return parsed.String()
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
