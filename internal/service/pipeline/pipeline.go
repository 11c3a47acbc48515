package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/internal/service/cache"
	"github.com/kapu/subtitle-translator-go/internal/service/entitlement"
	"github.com/kapu/subtitle-translator-go/internal/service/opensubtitles"
	"github.com/kapu/subtitle-translator-go/internal/service/selector"
	"github.com/kapu/subtitle-translator-go/internal/service/translation"
	"github.com/kapu/subtitle-translator-go/internal/subtitle"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

// AccountStore is the part of the account repository the pipeline reads.
type AccountStore interface {
	FindByAPIKey(ctx context.Context, apiKey string) (*domain.Account, error)
	TouchLastActive(ctx context.Context, accountID int64) error
}

// SubtitleProvider searches and downloads source tracks. Failures come back as empty results.
type SubtitleProvider interface {
	Search(ctx context.Context, req opensubtitles.SearchRequest) []domain.SubtitleCandidate
	FetchContent(ctx context.Context, fileID string) (string, bool)
}

type Config struct {
	// CachePartial stores documents even when some batches kept their original text.
	CachePartial bool
}

type Pipeline struct {
	accounts AccountStore
	provider SubtitleProvider
	selector *selector.Selector
	gate     *entitlement.Gate
	store    cache.TranslationStore
	engine   *translation.Engine
	progress ProgressPublisher
	cfg      Config
	flights  singleflight.Group
	now      func() time.Time
	logger   *zap.Logger
}

type Deps struct {
	Accounts AccountStore
	Provider SubtitleProvider
	Selector *selector.Selector
	Gate     *entitlement.Gate
	Store    cache.TranslationStore
	Engine   *translation.Engine
	Progress ProgressPublisher
}

func New(deps Deps, cfg Config, logger *zap.Logger) *Pipeline {
	progress := deps.Progress
	if progress == nil {
		progress = noopPublisher{}
	}
	return &Pipeline{
		accounts: deps.Accounts,
		provider: deps.Provider,
		selector: deps.Selector,
		gate:     deps.Gate,
		store:    deps.Store,
		engine:   deps.Engine,
		progress: progress,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// OfferResult lists what a viewer can pick for one title.
type OfferResult struct {
	Account *domain.Account
	Media   domain.MediaRequest
	Offers  []domain.Offer
}

// Direct reports whether the offers are native tracks.
func (r *OfferResult) Direct() bool {
	return len(r.Offers) > 0 && r.Offers[0].Kind == domain.OfferDirect
}

// TranslationResult is the document served for one translated offer.
type TranslationResult struct {
	Document string
	CacheHit bool
	// Passthrough is set when the source could not be parsed and is served as-is.
	Passthrough bool
	Report      translation.Report
}

func (p *Pipeline) account(ctx context.Context, apiKey string) (*domain.Account, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.NewInvalidKeyError()
	}

	account, err := p.accounts.FindByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, errors.NewServiceError("account lookup failed", "accounts", "find_by_api_key", err)
	}
	if account == nil {
		return nil, errors.NewInvalidKeyError()
	}

	if err := p.accounts.TouchLastActive(ctx, account.ID); err != nil {
		p.logger.Warn("Failed to update last activity", zap.Int64("account_id", account.ID), zap.Error(err))
	}
	return account, nil
}

// Offers returns native tracks in the account's language, or ranked translation offers.
// Provider failures yield an empty list.
func (p *Pipeline) Offers(ctx context.Context, apiKey string, media domain.MediaRequest) (*OfferResult, error) {
	account, err := p.account(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	result := &OfferResult{Account: account, Media: media, Offers: []domain.Offer{}}
	if account.SubscriptionState == domain.SubscriptionExpired {
		p.logger.Info("Subscription expired, no subtitles offered", zap.Int64("account_id", account.ID))
		return result, nil
	}

	preferred := domain.NormalizeLanguage(account.PreferredLanguage)
	candidates := p.provider.Search(ctx, opensubtitles.SearchRequest{
		IMDBID:  media.IMDBID,
		Season:  media.Season,
		Episode: media.Episode,
	})

	selection := p.selector.Select(candidates, preferred)
	if selection.IsDirect() {
		for _, c := range selection.Direct {
			result.Offers = append(result.Offers, domain.Offer{
				Kind:       domain.OfferDirect,
				SourceID:   c.SourceID,
				SourceLang: preferred,
				TargetLang: preferred,
				Candidate:  c,
			})
		}
	} else {
		result.Offers = append(result.Offers, selection.Offers...)
	}

	p.logger.Info("Subtitle offers built",
		zap.String("media", media.String()),
		zap.String("preferred", preferred),
		zap.Int("candidates", len(candidates)),
		zap.Int("offers", len(result.Offers)),
		zap.Bool("direct", selection.IsDirect()),
	)
	return result, nil
}

// Translate serves one translated document. The gate is evaluated once, the cache is
// consulted next and usage is recorded once per call, hit or miss.
func (p *Pipeline) Translate(ctx context.Context, apiKey string, req domain.TranslationRequest) (*TranslationResult, error) {
	req, err := normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	account, err := p.account(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	if decision := p.gate.Authorize(account); !decision.Allowed {
		p.logger.Info("Translation denied",
			zap.Int64("account_id", account.ID),
			zap.String("reason", decision.Reason),
		)
		return nil, decision.Err()
	}

	key := req.CacheKey()
	if result := p.lookup(ctx, key); result != nil {
		p.record(ctx, account, true)
		return result, nil
	}

	ch := p.flights.DoChan(key, func() (any, error) {
		return p.compute(context.WithoutCancel(ctx), account.APIKey, req)
	})

	select {
	case <-ctx.Done():
		p.logger.Info("Caller left before translation finished; work continues",
			zap.String("cache_key", key),
		)
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			p.logger.Debug("Joined in-flight translation", zap.String("cache_key", key))
		}
		result := *res.Val.(*TranslationResult)
		// an unparseable document is served as-is and costs nothing
		if !result.Passthrough {
			p.record(ctx, account, false)
		}
		return &result, nil
	}
}

func normalizeRequest(req domain.TranslationRequest) (domain.TranslationRequest, error) {
	req.SourceID = strings.TrimSpace(req.SourceID)
	req.SourceLang = domain.NormalizeLanguage(req.SourceLang)
	req.TargetLang = domain.NormalizeLanguage(req.TargetLang)

	if req.SourceID == "" {
		return req, errors.NewValidationError("file id is required", "fileId", req.SourceID)
	}
	if req.SourceLang == "" {
		return req, errors.NewValidationError("source language is required", "sourceLang", req.SourceLang)
	}
	if !domain.IsSupportedLanguage(req.TargetLang) {
		return req, errors.NewValidationError("unsupported target language", "targetLang", req.TargetLang)
	}
	return req, nil
}

// lookup returns the cached document or nil. Store failures count as a miss.
func (p *Pipeline) lookup(ctx context.Context, key string) *TranslationResult {
	entry, err := p.store.Get(ctx, key)
	if err != nil {
		p.logger.Warn("Translation cache read failed", zap.String("cache_key", key), zap.Error(err))
		return nil
	}
	if entry == nil {
		return nil
	}

	if err := p.store.Touch(ctx, key); err != nil {
		p.logger.Warn("Translation cache touch failed", zap.String("cache_key", key), zap.Error(err))
	}

	p.logger.Info("Translation cache hit",
		zap.String("cache_key", key),
		zap.Int64("usage_count", entry.UsageCount+1),
	)
	return &TranslationResult{Document: entry.Document, CacheHit: true}
}

func (p *Pipeline) record(ctx context.Context, account *domain.Account, cacheHit bool) {
	if err := p.gate.Record(ctx, account, cacheHit); err != nil {
		p.logger.Warn("Usage not recorded", zap.Int64("account_id", account.ID), zap.Error(err))
	}
}

// compute runs on a context detached from the caller so a finished translation is always cached.
func (p *Pipeline) compute(ctx context.Context, apiKey string, req domain.TranslationRequest) (*TranslationResult, error) {
	key := req.CacheKey()
	event := newEvent(req, key)

	content, ok := p.provider.FetchContent(ctx, req.SourceID)
	if !ok || strings.TrimSpace(content) == "" {
		p.progress.Publish(apiKey, event.with(StageFailed))
		return nil, errors.NewNotFoundError("subtitle", map[string]any{"file_id": req.SourceID})
	}

	seq, parseReport, err := subtitle.Parse(content)
	if err != nil {
		if errors.IsMalformedDocument(err) {
			p.logger.Warn("Subtitle could not be parsed, serving original",
				zap.String("file_id", req.SourceID),
				zap.Int("dropped_blocks", parseReport.Dropped),
			)
			p.progress.Publish(apiKey, event.with(StageDone))
			return &TranslationResult{Document: content, Passthrough: true}, nil
		}
		return nil, err
	}
	if parseReport.Dropped > 0 || parseReport.Renumbered > 0 {
		p.logger.Info("Subtitle repaired while parsing",
			zap.String("file_id", req.SourceID),
			zap.Int("dropped_blocks", parseReport.Dropped),
			zap.Int("renumbered", parseReport.Renumbered),
		)
	}

	if detected := subtitle.DetectLanguage(seq); detected != "" && detected != req.SourceLang {
		p.logger.Warn("Subtitle language differs from the offer",
			zap.String("file_id", req.SourceID),
			zap.String("declared", req.SourceLang),
			zap.String("detected", detected),
		)
	}

	started := event.with(StageStarted)
	started.Cues = len(seq)
	p.progress.Publish(apiKey, started)

	translated, report := p.engine.Translate(ctx, seq, req.SourceLang, req.TargetLang,
		translation.WithProgress(func(pr translation.Progress) {
			p.progress.Publish(apiKey, event.withProgress(pr))
		}),
	)
	document := subtitle.Serialize(translated)

	if report.Complete() || p.cfg.CachePartial {
		entry := domain.NewTranslationCacheEntry(req, document, p.now())
		created, err := p.store.Put(ctx, entry)
		switch {
		case err != nil:
			p.logger.Warn("Translation cache write failed", zap.String("cache_key", key), zap.Error(err))
		case !created:
			p.logger.Info("Translation already cached by a concurrent request", zap.String("cache_key", key))
		default:
			p.logger.Info("Translation cached", zap.String("cache_key", key), zap.Int("cues", len(translated)))
		}
	} else {
		p.logger.Warn("Partial translation not cached",
			zap.String("cache_key", key),
			zap.Int("degraded_batches", report.Degraded),
			zap.Int("degraded_cues", report.DegradedCues),
		)
	}

	done := event.with(StageDone)
	done.Batches = report.Batches
	done.Cues = len(seq)
	done.CuesDone = len(seq)
	done.Degraded = report.Degraded > 0
	p.progress.Publish(apiKey, done)

	return &TranslationResult{Document: document, Report: report}, nil
}
