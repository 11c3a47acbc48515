package translation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/subtitle"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

const sep = "\n---\n"

// fakeBackend prefixes every block with "T:" unless a scripted response or error is set for that call.
type fakeBackend struct {
	mu        sync.Mutex
	calls     int
	errs      map[int]error
	responses map[int]string
	inputs    []string
	langs     [][2]string
}

func (f *fakeBackend) TranslateBlock(_ context.Context, text, sourceLangName, targetLangName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := f.calls
	f.calls++
	f.inputs = append(f.inputs, text)
	f.langs = append(f.langs, [2]string{sourceLangName, targetLangName})

	if err, ok := f.errs[call]; ok {
		return "", err
	}
	if resp, ok := f.responses[call]; ok {
		return resp, nil
	}

	parts := strings.Split(text, sep)
	for i, p := range parts {
		parts[i] = "T:" + p
	}
	return strings.Join(parts, sep), nil
}

type sleepRecorder struct {
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return nil
}

func makeSequence(n int) subtitle.Sequence {
	seq := make(subtitle.Sequence, n)
	for i := range seq {
		seq[i] = subtitle.Cue{
			Index:     i + 1,
			StartTime: time.Duration(i) * time.Second,
			EndTime:   time.Duration(i)*time.Second + 900*time.Millisecond,
			Text:      fmt.Sprintf("line %d", i+1),
		}
	}
	return seq
}

func newTestEngine(backend Backend) (*Engine, *sleepRecorder) {
	e := NewEngine(backend, DefaultConfig(), zap.NewNop())
	rec := &sleepRecorder{}
	e.sleep = rec.sleep
	return e, rec
}

func assertTimingPreserved(t *testing.T, in, out subtitle.Sequence) {
	t.Helper()
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].Index, out[i].Index, "index of cue %d", i)
		assert.Equal(t, in[i].StartTime, out[i].StartTime, "start of cue %d", i)
		assert.Equal(t, in[i].EndTime, out[i].EndTime, "end of cue %d", i)
	}
}

func TestTranslatePreservesOrder(t *testing.T) {
	backend := &fakeBackend{}
	engine, rec := newTestEngine(backend)
	seq := makeSequence(40)

	out, report := engine.Translate(context.Background(), seq, "en", "ro")

	assertTimingPreserved(t, seq, out)
	for i := range seq {
		assert.Equal(t, "T:"+seq[i].Text, out[i].Text)
	}
	assert.Equal(t, Report{Batches: 3, Translated: 3}, report)
	assert.True(t, report.Complete())
	assert.Equal(t, []time.Duration{time.Second, time.Second}, rec.sleeps)
	assert.Equal(t, [2]string{"English", "Romanian"}, backend.langs[0])
}

func TestTranslateRateLimitRecovers(t *testing.T) {
	backend := &fakeBackend{errs: map[int]error{
		1: errors.NewRateLimitedError("fake", fmt.Errorf("429")),
	}}
	engine, rec := newTestEngine(backend)
	seq := makeSequence(28)

	out, report := engine.Translate(context.Background(), seq, "en", "ro")

	assertTimingPreserved(t, seq, out)
	for i := range out {
		assert.NotEmpty(t, out[i].Text)
		assert.Equal(t, "T:"+seq[i].Text, out[i].Text)
	}
	assert.Equal(t, 3, backend.calls)
	assert.Equal(t, 13, strings.Count(backend.inputs[1], sep)+1)
	assert.Equal(t, Report{Batches: 2, Translated: 2, RateLimited: 1, Retries: 1}, report)
	assert.Equal(t, []time.Duration{time.Second, 60 * time.Second}, rec.sleeps)
}

func TestTranslateRateLimitRetriedOnlyOnce(t *testing.T) {
	rateLimited := errors.NewRateLimitedError("fake", fmt.Errorf("429"))
	backend := &fakeBackend{errs: map[int]error{0: rateLimited, 1: rateLimited}}
	engine, _ := newTestEngine(backend)
	seq := makeSequence(10)

	out, report := engine.Translate(context.Background(), seq, "en", "ro")

	assert.Equal(t, 2, backend.calls)
	assert.Equal(t, seq.Texts(), out.Texts())
	assert.Equal(t, 1, report.Degraded)
	assert.Equal(t, 10, report.DegradedCues)
	assert.Equal(t, 2, report.RateLimited)
	assert.False(t, report.Complete())
}

func TestTranslateSplitMismatchDegradesBatch(t *testing.T) {
	backend := &fakeBackend{responses: map[int]string{
		0: "only one part",
	}}
	engine, _ := newTestEngine(backend)
	seq := makeSequence(20)

	out, report := engine.Translate(context.Background(), seq, "en", "fr")

	assertTimingPreserved(t, seq, out)
	for i := 0; i < 15; i++ {
		assert.Equal(t, seq[i].Text, out[i].Text)
	}
	for i := 15; i < 20; i++ {
		assert.Equal(t, "T:"+seq[i].Text, out[i].Text)
	}
	assert.Equal(t, 1, report.Degraded)
	assert.Equal(t, 1, report.Translated)
}

func TestTranslateEmptyPartDegradesBatch(t *testing.T) {
	backend := &fakeBackend{responses: map[int]string{
		0: "T:a\n---\n\n---\nT:c",
	}}
	engine, _ := newTestEngine(backend)
	seq := subtitle.Sequence{
		{Index: 1, Text: "a"},
		{Index: 2, Text: "b"},
		{Index: 3, Text: "c"},
	}

	out, report := engine.Translate(context.Background(), seq, "en", "fr")

	assert.Equal(t, []string{"a", "b", "c"}, out.Texts())
	assert.Equal(t, 1, report.Degraded)
}

func TestTranslateOtherErrorDegradesOnlyItsBatch(t *testing.T) {
	backend := &fakeBackend{errs: map[int]error{
		1: errors.NewServiceError("boom", "fake", "generate", nil),
	}}
	engine, rec := newTestEngine(backend)
	seq := makeSequence(45)

	out, report := engine.Translate(context.Background(), seq, "en", "de")

	assert.Equal(t, 3, backend.calls)
	for i := range seq {
		if i >= 15 && i < 30 {
			assert.Equal(t, seq[i].Text, out[i].Text)
		} else {
			assert.Equal(t, "T:"+seq[i].Text, out[i].Text)
		}
	}
	assert.Equal(t, Report{Batches: 3, Translated: 2, Degraded: 1, DegradedCues: 15}, report)
	assert.NotContains(t, rec.sleeps, 60*time.Second)
}

func TestTranslateToleratesSeparatorWhitespace(t *testing.T) {
	backend := &fakeBackend{responses: map[int]string{
		0: "  uno \n ---  \ndos\r\n---\r\ntres\n",
	}}
	engine, _ := newTestEngine(backend)
	seq := makeSequence(3)

	out, report := engine.Translate(context.Background(), seq, "en", "es")

	assert.Equal(t, []string{"uno", "dos", "tres"}, out.Texts())
	assert.True(t, report.Complete())
}

func TestTranslateSkipsBlankCues(t *testing.T) {
	backend := &fakeBackend{}
	engine, _ := newTestEngine(backend)
	seq := subtitle.Sequence{
		{Index: 1, Text: "a"},
		{Index: 2, Text: ""},
		{Index: 3, Text: "c"},
	}

	out, report := engine.Translate(context.Background(), seq, "en", "es")

	assert.Equal(t, []string{"T:a", "", "T:c"}, out.Texts())
	assert.Equal(t, "a"+sep+"c", backend.inputs[0])
	assert.True(t, report.Complete())
}

func TestTranslateReportsProgress(t *testing.T) {
	engine, _ := newTestEngine(&fakeBackend{})
	var events []Progress

	_, _ = engine.Translate(context.Background(), makeSequence(31), "en", "ro", WithProgress(func(p Progress) {
		events = append(events, p)
	}))

	require.Len(t, events, 3)
	assert.Equal(t, Progress{Batch: 3, Batches: 3, CuesDone: 31, Cues: 31}, events[2])
}

func TestTranslateEmptySequence(t *testing.T) {
	backend := &fakeBackend{}
	engine, _ := newTestEngine(backend)

	out, report := engine.Translate(context.Background(), nil, "en", "ro")

	assert.Empty(t, out)
	assert.Zero(t, backend.calls)
	assert.Equal(t, Report{}, report)
}

func TestSleepContextHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleepContext(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
