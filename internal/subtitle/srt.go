package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kapu/subtitle-translator-go/internal/util"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

// Cue is one timed subtitle entry. Text keeps its markup verbatim.
type Cue struct {
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
	// Settings holds anything after the end timestamp (position hints such as "X1:40 X2:600").
	Settings string
	Text     string
}

// Sequence is an ordered list of cues with strictly increasing indexes.
type Sequence []Cue

// Report describes what Parse had to repair or give up on.
type Report struct {
	Cues       int
	Dropped    int
	Renumbered int
}

var (
	// Hours are capped at four digits so a timestamp always fits a time.Duration.
	timingRegex = regexp.MustCompile(
		`^\s*(\d{1,4}):(\d{1,2}):(\d{1,2})[,.](\d{1,3})\s*-->\s*(\d{1,4}):(\d{1,2}):(\d{1,2})[,.](\d{1,3})(?:\s+(.*))?$`,
	)
	indexRegex = regexp.MustCompile(`^\s*\d+\s*$`)
)

// Parse reads an SRT document. Blocks without a recognizable timing line are
// dropped and counted; a document without any usable cue is malformed.
func Parse(document string) (Sequence, Report, error) {
	doc := strings.TrimPrefix(document, "\ufeff")
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	doc = strings.ReplaceAll(doc, "\r", "\n")
	lines := strings.Split(doc, "\n")

	var (
		seq       Sequence
		report    Report
		current   *Cue
		textLines []string
		inGarbage bool
		lastIndex int
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Text = util.TrimTrailingSpace(strings.Join(textLines, "\n"))
		seq = append(seq, *current)
		current = nil
		textLines = nil
	}

	open := func(rawIndex string, timing []string) {
		flush()
		cue := cueFromTiming(timing)
		index, err := strconv.Atoi(strings.TrimSpace(rawIndex))
		if rawIndex == "" || err != nil || index <= lastIndex {
			index = lastIndex + 1
			report.Renumbered++
		}
		cue.Index = index
		lastIndex = index
		current = &cue
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if util.IsBlank(line) {
			flush()
			inGarbage = false
			continue
		}

		if indexRegex.MatchString(line) && i+1 < len(lines) {
			if timing := timingRegex.FindStringSubmatch(lines[i+1]); timing != nil {
				open(line, timing)
				inGarbage = false
				i++
				continue
			}
		}

		if timing := timingRegex.FindStringSubmatch(line); timing != nil {
			open("", timing)
			inGarbage = false
			continue
		}

		if current != nil {
			textLines = append(textLines, line)
			continue
		}

		if !inGarbage {
			report.Dropped++
			inGarbage = true
		}
	}
	flush()

	report.Cues = len(seq)
	if len(seq) == 0 {
		return nil, report, errors.NewMalformedDocumentError("no subtitle cue could be recognized", report.Dropped)
	}

	return seq, report, nil
}

func cueFromTiming(m []string) Cue {
	return Cue{
		StartTime: timestamp(m[1], m[2], m[3], m[4]),
		EndTime:   timestamp(m[5], m[6], m[7], m[8]),
		Settings:  strings.TrimSpace(m[9]),
	}
}

// timestamp converts regex groups to a duration; millisecond digits are right-padded ("5" is 500ms).
func timestamp(hours, minutes, seconds, millis string) time.Duration {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	for len(millis) < 3 {
		millis += "0"
	}
	ms, _ := strconv.Atoi(millis)

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond
}

// FormatTimestamp renders d as HH:MM:SS,mmm.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	millis := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// Serialize renders seq as an SRT document. It is the inverse of Parse.
func Serialize(seq Sequence) string {
	var b strings.Builder
	for _, cue := range seq {
		b.WriteString(strconv.Itoa(cue.Index))
		b.WriteByte('\n')
		b.WriteString(FormatTimestamp(cue.StartTime))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(cue.EndTime))
		if cue.Settings != "" {
			b.WriteByte(' ')
			b.WriteString(cue.Settings)
		}
		b.WriteByte('\n')
		b.WriteString(cue.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// Texts returns the cue texts in order.
func (s Sequence) Texts() []string {
	texts := make([]string, len(s))
	for i, cue := range s {
		texts[i] = cue.Text
	}
	return texts
}

// WithTexts returns a copy of s whose texts are replaced position by position.
// Timing, indexes and settings are never touched.
func (s Sequence) WithTexts(texts []string) Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	for i := range out {
		if i < len(texts) {
			out[i].Text = texts[i]
		}
	}
	return out
}
