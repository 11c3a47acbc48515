package opensubtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/constants"
	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/internal/util"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

// ResultCache stores short-lived JSON values; CacheService satisfies it.
type ResultCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type Config struct {
	APIKey    string
	UserAgent string
	Username  string
	Password  string
	BaseURL   string
	// Languages restricts searches; empty means every supported language.
	Languages []string
}

type SearchRequest struct {
	IMDBID  string
	Season  int
	Episode int
	// Languages overrides the configured language set for one search.
	Languages []string
}

// Client talks to the OpenSubtitles REST API. Failures never escape Search or
// FetchContent: they are logged and turned into empty results.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     *tokenCache
	authMu     sync.Mutex
	breaker    *util.CircuitBreaker
	cache      ResultCache
	logger     *zap.Logger
}

// NewClient builds a client; cache may be nil.
func NewClient(cfg Config, cache ResultCache, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.APIConfig.OpenSubtitlesBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = constants.APIConfig.OpenSubtitlesUserAgent
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = domain.SupportedLanguageCodes()
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		tokens:     newTokenCache(constants.CacheTTL.ProviderToken),
		cache:      cache,
		logger:     logger,
	}
	c.breaker = util.NewCircuitBreaker("opensubtitles", util.BreakerConfig{
		FailureThreshold: constants.CircuitBreakerConfig.FailureThreshold,
		ResetTimeout:     constants.CircuitBreakerConfig.ResetTimeout,
	}, nil, logger)

	return c
}

// Authenticate returns a cached token or logs in again.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if tok := c.tokens.get(); tok != nil {
		return tok.AccessToken, nil
	}

	c.authMu.Lock()
	defer c.authMu.Unlock()

	if tok := c.tokens.get(); tok != nil {
		return tok.AccessToken, nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.APIConfig.SearchTimeout)
	defer cancel()

	var resp loginResponse
	body := loginRequest{Username: c.cfg.Username, Password: c.cfg.Password}
	if err := c.doRequest(ctx, http.MethodPost, "/login", nil, body, &resp, false); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", errors.NewAPIError("OpenSubtitles login returned no token", http.StatusBadGateway, nil)
	}

	c.tokens.set(resp.Token)
	c.logger.Info("OpenSubtitles token obtained",
		zap.Duration("valid_for", constants.CacheTTL.ProviderToken),
	)
	return resp.Token, nil
}

// Search lists candidate tracks for a movie or an episode, most downloaded first.
func (c *Client) Search(ctx context.Context, req SearchRequest) []domain.SubtitleCandidate {
	imdbID := strings.TrimPrefix(strings.TrimSpace(req.IMDBID), "tt")
	if imdbID == "" {
		return []domain.SubtitleCandidate{}
	}

	languages := c.cfg.Languages
	if len(req.Languages) > 0 {
		languages = req.Languages
	}
	langParam := strings.Join(languages, ",")

	cacheKey := fmt.Sprintf("%s%s:%d:%d:%s", constants.RedisConfig.SearchPrefix, imdbID, req.Season, req.Episode, langParam)
	if c.cache != nil {
		var cached []domain.SubtitleCandidate
		found, err := c.cache.Get(ctx, cacheKey, &cached)
		switch {
		case err != nil:
			c.logger.Warn("Cached search results unreadable, dropping", zap.String("key", cacheKey), zap.Error(err))
			if delErr := c.cache.Del(ctx, cacheKey); delErr != nil {
				c.logger.Warn("Failed to drop cached search results", zap.Error(delErr))
			}
		case found:
			return cached
		}
	}

	if !c.breaker.CanExecute() {
		c.logger.Warn("OpenSubtitles unavailable (Circuit OPEN), returning no candidates")
		return []domain.SubtitleCandidate{}
	}

	query := url.Values{}
	query.Set("imdb_id", imdbID)
	query.Set("languages", langParam)
	query.Set("order_by", "download_count")
	if req.Season > 0 && req.Episode > 0 {
		query.Set("season_number", strconv.Itoa(req.Season))
		query.Set("episode_number", strconv.Itoa(req.Episode))
	}

	ctx, cancel := context.WithTimeout(ctx, constants.APIConfig.SearchTimeout)
	defer cancel()

	var resp searchResponse
	if err := c.authorizedRequest(ctx, http.MethodGet, "/subtitles", query, nil, &resp); err != nil {
		c.logger.Warn("OpenSubtitles search failed",
			zap.String("imdb_id", req.IMDBID),
			zap.Error(err),
		)
		return []domain.SubtitleCandidate{}
	}

	candidates := make([]domain.SubtitleCandidate, 0, len(resp.Data))
	rejected := 0
	for _, entry := range resp.Data {
		candidate, err := toCandidate(entry)
		if err != nil {
			rejected++
			continue
		}
		candidates = append(candidates, candidate)
	}

	c.logger.Info("OpenSubtitles search finished",
		zap.String("imdb_id", req.IMDBID),
		zap.Int("season", req.Season),
		zap.Int("episode", req.Episode),
		zap.Int("candidates", len(candidates)),
		zap.Int("rejected", rejected),
	)

	if c.cache != nil && len(candidates) > 0 {
		if err := c.cache.Set(ctx, cacheKey, candidates, constants.CacheTTL.SearchResults); err != nil {
			c.logger.Warn("Failed to cache search results", zap.Error(err))
		}
	}

	return candidates
}

func toCandidate(entry subtitleEntry) (domain.SubtitleCandidate, error) {
	if len(entry.Attributes.Files) == 0 || entry.Attributes.Files[0].FileID <= 0 {
		return domain.SubtitleCandidate{}, fmt.Errorf("subtitle %s has no file", entry.ID)
	}
	release := entry.Attributes.Release
	if strings.TrimSpace(release) == "" {
		release = "OpenSubtitles"
	}
	return domain.NewSubtitleCandidate(
		strconv.FormatInt(entry.Attributes.Files[0].FileID, 10),
		entry.Attributes.Language,
		release,
		entry.Attributes.DownloadCount,
	)
}

// FetchContent downloads the raw subtitle document; ok is false on any failure.
func (c *Client) FetchContent(ctx context.Context, fileID string) (string, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(fileID), 10, 64)
	if err != nil || id <= 0 {
		c.logger.Warn("Invalid OpenSubtitles file id", zap.String("file_id", fileID))
		return "", false
	}

	if !c.breaker.CanExecute() {
		c.logger.Warn("OpenSubtitles unavailable (Circuit OPEN), skipping download", zap.String("file_id", fileID))
		return "", false
	}

	linkCtx, cancel := context.WithTimeout(ctx, constants.APIConfig.DownloadTimeout)
	defer cancel()

	var link downloadResponse
	if err := c.authorizedRequest(linkCtx, http.MethodPost, "/download", nil, downloadRequest{FileID: id}, &link); err != nil {
		c.logger.Warn("OpenSubtitles download link failed", zap.String("file_id", fileID), zap.Error(err))
		return "", false
	}
	if link.Link == "" {
		c.logger.Warn("OpenSubtitles returned no download link", zap.String("file_id", fileID))
		return "", false
	}

	content, err := c.fetch(ctx, link.Link)
	if err != nil {
		c.logger.Warn("OpenSubtitles file fetch failed", zap.String("file_id", fileID), zap.Error(err))
		return "", false
	}

	c.logger.Debug("Subtitle downloaded",
		zap.String("file_id", fileID),
		zap.Int("bytes", len(content)),
		zap.Int("remaining_downloads", link.Remaining),
	)
	return content, true
}

func (c *Client) fetch(ctx context.Context, link string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.APIConfig.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create fetch request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure(0)
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch failed: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.APIConfig.MaxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read subtitle body: %w", err)
	}
	return string(data), nil
}

// authorizedRequest attaches the bearer token and logs in again once on 401.
func (c *Client) authorizedRequest(ctx context.Context, method, path string, query url.Values, reqBody, respBody any) error {
	for attempt := 0; attempt < 2; attempt++ {
		if _, err := c.Authenticate(ctx); err != nil {
			return err
		}

		err := c.doRequest(ctx, method, path, query, reqBody, respBody, true)
		if errors.StatusCode(err) == http.StatusUnauthorized && attempt == 0 {
			c.logger.Info("OpenSubtitles token rejected, logging in again")
			c.tokens.invalidate()
			continue
		}
		return err
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, reqBody, respBody any, authorized bool) error {
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return errors.NewAPIError("failed to marshal request", http.StatusBadRequest, map[string]any{
				"url": path,
			}).WithCause(err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return errors.NewAPIError("failed to create request", http.StatusInternalServerError, map[string]any{
			"url": path,
		}).WithCause(err)
	}

	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		if tok := c.tokens.get(); tok != nil {
			tok.SetAuthHeader(req)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure(0)
		return errors.NewBackendUnavailableError("opensubtitles", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, constants.APIConfig.MaxErrorBody))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.breaker.RecordFailure(0)
		}
		return errors.NewAPIError(
			fmt.Sprintf("OpenSubtitles API error: %s", resp.Status),
			resp.StatusCode,
			map[string]any{
				"url":  path,
				"body": string(bodyBytes),
			},
		)
	}

	c.breaker.RecordSuccess()

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return errors.NewAPIError("failed to decode response", http.StatusBadGateway, map[string]any{
				"url": path,
			}).WithCause(err)
		}
	}

	return nil
}

// Ping reports whether the provider accepts our credentials.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.Authenticate(ctx)
	return err == nil
}

func (c *Client) GetCircuitStatus() util.CircuitBreakerStatus {
	return c.breaker.GetStatus()
}

// NativeDownloadURL is the link handed to players for tracks already in the viewer's language.
func NativeDownloadURL(fileID string) string {
	return constants.APIConfig.OpenSubtitlesDownloadURL + "/" + url.PathEscape(fileID)
}
