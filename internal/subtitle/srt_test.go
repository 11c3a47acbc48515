package subtitle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

const sampleSRT = "1\n00:00:01,000 --> 00:00:02,500\n<i>Hello</i> there\n\n" +
	"2\n00:00:03,000 --> 00:00:04,000 X1:40 X2:600\n{\\an8}Top line\nSecond line\n\n" +
	"3\n01:02:03,004 --> 01:02:05,000\n<b>Bye</b>\n\n"

func TestParse(t *testing.T) {
	seq, report, err := Parse(sampleSRT)
	require.NoError(t, err)
	require.Len(t, seq, 3)

	assert.Equal(t, Report{Cues: 3}, report)
	assert.Equal(t, 1, seq[0].Index)
	assert.Equal(t, time.Second, seq[0].StartTime)
	assert.Equal(t, 2500*time.Millisecond, seq[0].EndTime)
	assert.Equal(t, "<i>Hello</i> there", seq[0].Text)

	assert.Equal(t, "X1:40 X2:600", seq[1].Settings)
	assert.Equal(t, "{\\an8}Top line\nSecond line", seq[1].Text)

	want := time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond
	assert.Equal(t, want, seq[2].StartTime)
}

func TestRoundTrip(t *testing.T) {
	seq, _, err := Parse(sampleSRT)
	require.NoError(t, err)

	out := Serialize(seq)
	assert.Equal(t, sampleSRT, out)

	again, _, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, seq, again)
}

func TestRoundTripParsedTimestamps(t *testing.T) {
	docs := map[string]string{
		"long hours":      "1\n9999:59:59,999 --> 9999:59:59,999\nLate\n",
		"short millis":    "1\n00:00:01.5 --> 00:00:02.25\nShort\n",
		"unpadded fields": "1\n1:2:3,4 --> 1:2:4,000\nLoose\n",
		"trailing spaces": "1\n00:00:01,000 --> 00:00:02,000   \nPadded\n",
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			seq, _, err := Parse(doc)
			require.NoError(t, err)
			require.Len(t, seq, 1)
			assert.GreaterOrEqual(t, seq[0].StartTime, time.Duration(0))

			again, _, err := Parse(Serialize(seq))
			require.NoError(t, err)
			assert.Equal(t, seq, again)
		})
	}
}

func TestParseRejectsOutOfRangeTimestamps(t *testing.T) {
	doc := "1\n00:00:01,000 --> 00:00:02,000\nKept\n\n" +
		"2\n9999999999:00:00,000 --> 9999999999:00:01,000\nOverflow\n\n" +
		"3\n00:00:03,1234 --> 00:00:04,000\nFour digit millis\n"

	seq, report, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, seq, 1)
	assert.Equal(t, 2, report.Dropped)
	assert.Equal(t, []string{"Kept"}, seq.Texts())
	assert.Empty(t, seq[0].Settings)
}

func TestParseNormalizesLineEndingsAndBOM(t *testing.T) {
	doc := "\ufeff1\r\n00:00:01,000 --> 00:00:02,000\r\nHello   \r\n\r\n2\r\n00:00:02.5 --> 00:00:03.25\r\nWorld\r\n"

	seq, report, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, seq, 2)
	assert.Zero(t, report.Dropped)
	assert.Equal(t, "Hello", seq[0].Text)
	assert.Equal(t, 2500*time.Millisecond, seq[1].StartTime)
	assert.Equal(t, 3250*time.Millisecond, seq[1].EndTime)
}

func TestParseDropsUnrecoverableBlocks(t *testing.T) {
	doc := "1\n00:00:01,000 --> 00:00:02,000\nKept\n\n" +
		"2\n00:00:03 -> 00:00:04\nBroken timing\n\n" +
		"just some garbage\nmore garbage\n\n" +
		"4\n00:00:05,000 --> 00:00:06,000\nAlso kept\n"

	seq, report, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, seq, 2)
	assert.Equal(t, 2, report.Dropped)
	assert.Equal(t, []string{"Kept", "Also kept"}, seq.Texts())
	assert.Equal(t, 4, seq[1].Index)
}

func TestParseRepairsIndexes(t *testing.T) {
	doc := "00:00:01,000 --> 00:00:02,000\nNo index\n\n" +
		"1\n00:00:03,000 --> 00:00:04,000\nDuplicate index\n\n" +
		"7\n00:00:05,000 --> 00:00:06,000\nJump is fine\n"

	seq, report, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, seq, 3)
	assert.Equal(t, 2, report.Renumbered)
	assert.Equal(t, 1, seq[0].Index)
	assert.Equal(t, 2, seq[1].Index)
	assert.Equal(t, 7, seq[2].Index)
}

func TestParseSplitsCuesWithoutBlankSeparator(t *testing.T) {
	doc := "1\n00:00:01,000 --> 00:00:02,000\nFirst\n2\n00:00:03,000 --> 00:00:04,000\nSecond\n"

	seq, _, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Second"}, seq.Texts())
}

func TestParseKeepsInvertedTiming(t *testing.T) {
	doc := "1\n00:00:05,000 --> 00:00:01,000\nBackwards\n"

	seq, _, err := Parse(doc)
	require.NoError(t, err)
	require.Len(t, seq, 1)
	assert.Equal(t, 5*time.Second, seq[0].StartTime)
	assert.Equal(t, time.Second, seq[0].EndTime)
}

func TestParseMalformed(t *testing.T) {
	for _, doc := range []string{"", "\n\n", "WEBVTT\n\nnothing useful here"} {
		_, _, err := Parse(doc)
		require.Error(t, err)
		assert.True(t, errors.IsMalformedDocument(err), "doc %q", doc)
	}
}

func TestWithTextsKeepsTiming(t *testing.T) {
	seq, _, err := Parse(sampleSRT)
	require.NoError(t, err)

	out := seq.WithTexts([]string{"a", "b", "c"})
	require.Len(t, out, len(seq))
	for i := range seq {
		assert.Equal(t, seq[i].Index, out[i].Index)
		assert.Equal(t, seq[i].StartTime, out[i].StartTime)
		assert.Equal(t, seq[i].EndTime, out[i].EndTime)
	}
	assert.Equal(t, []string{"a", "b", "c"}, out.Texts())
	assert.Equal(t, "<i>Hello</i> there", seq[0].Text)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00,000", FormatTimestamp(0))
	assert.Equal(t, "01:02:03,004", FormatTimestamp(time.Hour+2*time.Minute+3*time.Second+4*time.Millisecond))
	assert.Equal(t, "100:00:00,000", FormatTimestamp(100*time.Hour))
}

func TestDetectLanguage(t *testing.T) {
	seq := Sequence{
		{Index: 1, Text: "<i>Good morning, how are you doing today?</i>"},
		{Index: 2, Text: "I think we should leave before it gets dark."},
		{Index: 3, Text: "Nobody told me the train would be this late."},
	}
	assert.Equal(t, "en", DetectLanguage(seq))
	assert.Equal(t, "", DetectLanguage(nil))
}
