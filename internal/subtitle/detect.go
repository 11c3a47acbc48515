package subtitle

import (
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"
)

var markupRegex = regexp.MustCompile(`<[^>]*>|\{[^}]*\}`)

// detectSampleSize caps how many cues take part in the vote.
const detectSampleSize = 200

// DetectLanguage returns the ISO 639-1 code most cues are written in, or "" when
// no cue carries enough text to guess from.
func DetectLanguage(seq Sequence) string {
	votes := make(map[string]int)
	for i, cue := range seq {
		if i >= detectSampleSize {
			break
		}
		text := strings.TrimSpace(markupRegex.ReplaceAllString(cue.Text, ""))
		if len([]rune(text)) < 4 {
			continue
		}
		code := whatlanggo.DetectLang(text).Iso6391()
		if code == "" {
			continue
		}
		votes[code]++
	}

	var top string
	var topCount int
	for code, count := range votes {
		if count > topCount || (count == topCount && code < top) {
			top = code
			topCount = count
		}
	}
	return top
}
