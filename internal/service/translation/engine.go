package translation

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/constants"
	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/internal/subtitle"
	"github.com/kapu/subtitle-translator-go/internal/util"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

// Backend translates one separator-joined block. Rate limits must surface as errors.RateLimitedError.
type Backend interface {
	TranslateBlock(ctx context.Context, text, sourceLangName, targetLangName string) (string, error)
}

type Config struct {
	BatchSize         int
	Separator         string
	InterBatchDelay   time.Duration
	RateLimitCooldown time.Duration
	MaxRetries        int
	CallTimeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:         constants.TranslationDefaults.BatchSize,
		Separator:         constants.TranslationDefaults.Separator,
		InterBatchDelay:   constants.TranslationDefaults.InterBatchDelay,
		RateLimitCooldown: constants.TranslationDefaults.RateLimitCooldown,
		MaxRetries:        constants.TranslationDefaults.MaxRetries,
		CallTimeout:       constants.TranslationDefaults.CallTimeout,
	}
}

// Report summarizes one document translation.
type Report struct {
	Batches      int `json:"batches"`
	Translated   int `json:"translated"`
	Degraded     int `json:"degraded"`
	DegradedCues int `json:"degradedCues"`
	RateLimited  int `json:"rateLimited"`
	Retries      int `json:"retries"`
}

// Complete reports whether every batch came back translated.
func (r Report) Complete() bool {
	return r.Degraded == 0
}

// Progress is emitted after every batch.
type Progress struct {
	Batch    int  `json:"batch"`
	Batches  int  `json:"batches"`
	CuesDone int  `json:"cuesDone"`
	Cues     int  `json:"cues"`
	Degraded bool `json:"degraded"`
}

type Option func(*options)

type options struct {
	progress func(Progress)
}

func WithProgress(fn func(Progress)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// Engine translates cue sequences batch by batch, strictly in order.
type Engine struct {
	backend  Backend
	cfg      Config
	splitter *regexp.Regexp
	logger   *zap.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewEngine(backend Backend, cfg Config, logger *zap.Logger) *Engine {
	defaults := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.Separator == "" {
		cfg.Separator = defaults.Separator
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaults.CallTimeout
	}

	return &Engine{
		backend:  backend,
		cfg:      cfg,
		splitter: separatorPattern(cfg.Separator),
		logger:   logger,
		sleep:    sleepContext,
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// separatorPattern matches the separator's visible mark on its own line, ignoring
// surrounding blanks the model may add.
func separatorPattern(sep string) *regexp.Regexp {
	mark := strings.TrimSpace(sep)
	if mark == "" {
		return regexp.MustCompile(regexp.QuoteMeta(sep))
	}
	return regexp.MustCompile(`\r?\n[ \t]*` + regexp.QuoteMeta(mark) + `[ \t]*\r?\n`)
}

// Translate returns a sequence with the same length, indexes and timing as seq.
// Any batch that cannot be translated keeps its original text.
func (e *Engine) Translate(ctx context.Context, seq subtitle.Sequence, sourceLang, targetLang string, opts ...Option) (subtitle.Sequence, Report) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	sourceName := domain.LanguageName(sourceLang)
	targetName := domain.LanguageName(targetLang)

	chunks := util.Chunks(len(seq), e.cfg.BatchSize)
	report := Report{Batches: len(chunks)}
	texts := seq.Texts()
	out := make([]string, len(texts))
	copy(out, texts)

	e.logger.Info("Translating subtitle document",
		zap.Int("cues", len(seq)),
		zap.Int("batches", len(chunks)),
		zap.String("source", sourceName),
		zap.String("target", targetName),
	)

	for b, chunk := range chunks {
		if b > 0 {
			if err := e.sleep(ctx, e.cfg.InterBatchDelay); err != nil {
				e.logger.Warn("Inter-batch delay interrupted", zap.Error(err))
			}
		}

		batch := texts[chunk[0]:chunk[1]]
		translated, ok := e.translateBatch(ctx, b, batch, sourceName, targetName, &report)
		if ok {
			copy(out[chunk[0]:chunk[1]], translated)
			report.Translated++
		} else {
			report.Degraded++
			report.DegradedCues += len(batch)
		}

		if o.progress != nil {
			o.progress(Progress{
				Batch:    b + 1,
				Batches:  len(chunks),
				CuesDone: chunk[1],
				Cues:     len(seq),
				Degraded: !ok,
			})
		}
	}

	e.logger.Info("Subtitle document translated",
		zap.Int("batches", report.Batches),
		zap.Int("translated", report.Translated),
		zap.Int("degraded", report.Degraded),
		zap.Int("retries", report.Retries),
	)

	return seq.WithTexts(out), report
}

// translateBatch returns the translated texts, or false when the batch must keep its originals.
func (e *Engine) translateBatch(ctx context.Context, batchNo int, texts []string, sourceName, targetName string, report *Report) ([]string, bool) {
	// Blank cues are not sent; they are put back in place afterwards.
	var positions []int
	var payload []string
	for i, text := range texts {
		if !util.IsBlank(text) {
			positions = append(positions, i)
			payload = append(payload, text)
		}
	}
	if len(payload) == 0 {
		return texts, true
	}

	joined := strings.Join(payload, e.cfg.Separator)
	logger := e.logger.With(zap.Int("batch", batchNo+1), zap.Int("cues", len(texts)))

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			report.Retries++
			logger.Warn("Rate limited, cooling down before retry",
				zap.Duration("cooldown", e.cfg.RateLimitCooldown),
				zap.Int("attempt", attempt),
			)
			if err := e.sleep(ctx, e.cfg.RateLimitCooldown); err != nil {
				logger.Warn("Cooldown interrupted, keeping original text", zap.Error(err))
				return nil, false
			}
		}

		result, err := e.call(ctx, joined, sourceName, targetName)
		if err == nil {
			parts, ok := e.split(result, payload)
			if !ok {
				logger.Warn("Batch split mismatch, keeping original text",
					zap.Int("expected", len(payload)),
					zap.Int("got", len(parts)),
				)
				return nil, false
			}

			out := make([]string, len(texts))
			copy(out, texts)
			for i, pos := range positions {
				out[pos] = parts[i]
			}
			return out, true
		}

		if !errors.IsRateLimited(err) {
			logger.Warn("Batch translation failed, keeping original text", zap.Error(err))
			return nil, false
		}
		report.RateLimited++
	}

	logger.Warn("Batch still rate limited after retry, keeping original text",
		zap.Int("max_retries", e.cfg.MaxRetries),
	)
	return nil, false
}

func (e *Engine) call(ctx context.Context, text, sourceName, targetName string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return e.backend.TranslateBlock(callCtx, text, sourceName, targetName)
}

// split cuts the backend answer back into parts; any count mismatch or blank part fails the batch.
func (e *Engine) split(result string, source []string) ([]string, bool) {
	raw := e.splitter.Split(strings.TrimSpace(result), -1)
	parts := make([]string, len(raw))
	for i, p := range raw {
		parts[i] = strings.TrimSpace(p)
	}
	if len(parts) != len(source) {
		return parts, false
	}
	for _, p := range parts {
		if p == "" {
			return parts, false
		}
	}
	return parts, true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
