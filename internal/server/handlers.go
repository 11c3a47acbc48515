package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/adapter"
	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

const maxBodyBytes = 1 << 16

type accountResponse struct {
	APIKey              string     `json:"apiKey"`
	ManifestURL         string     `json:"manifestUrl"`
	SubscriptionStatus  string     `json:"subscriptionStatus"`
	SubscriptionEndDate *time.Time `json:"subscriptionEndDate,omitempty"`
	TranslationsUsed    int        `json:"translationsUsed"`
	FreeTranslations    int        `json:"freeTranslationsLimit"`
	PreferredLanguage   string     `json:"preferredLanguage"`
}

func (s *Server) accountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		APIKey:              a.APIKey,
		ManifestURL:         s.formatter.ManifestURL(a.APIKey),
		SubscriptionStatus:  string(a.SubscriptionState),
		SubscriptionEndDate: a.SubscriptionEndDate,
		TranslationsUsed:    a.TranslationsUsed,
		FreeTranslations:    a.TranslationsLimit,
		PreferredLanguage:   a.PreferredLanguage,
	}
}

type registerRequest struct {
	Email             string `json:"email"`
	PreferredLanguage string `json:"preferredLanguage"`
}

type configRequest struct {
	APIKey            string `json:"apiKey"`
	PreferredLanguage string `json:"preferredLanguage"`
}

// decodeBody accepts JSON or form-encoded bodies.
func decodeBody(w http.ResponseWriter, r *http.Request, dest any, form func(get func(string) string)) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return errors.NewValidationError("invalid form body", "body", nil)
		}
		form(r.PostForm.Get)
		return nil
	}

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && err != io.EOF {
		return errors.NewValidationError("invalid JSON body", "body", nil)
	}
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	err := decodeBody(w, r, &req, func(get func(string) string) {
		req.Email = get("email")
		req.PreferredLanguage = get("preferredLanguage")
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	email, err := adapter.ParseEmail(req.Email)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	language := s.cfg.DefaultLanguage
	if strings.TrimSpace(req.PreferredLanguage) != "" {
		if language, err = adapter.ParseLanguage(req.PreferredLanguage); err != nil {
			s.writeAppError(w, r, err)
			return
		}
	}

	ctx := r.Context()
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		s.writeAppError(w, r, errors.NewServiceError("account lookup failed", "accounts", "find_by_email", err))
		return
	}
	if account != nil {
		writeJSON(w, http.StatusOK, s.accountResponse(account))
		return
	}

	account, err = s.accounts.Create(ctx, email, language)
	if err != nil {
		// A concurrent registration may have won the unique index.
		if existing, findErr := s.accounts.FindByEmail(ctx, email); findErr == nil && existing != nil {
			writeJSON(w, http.StatusOK, s.accountResponse(existing))
			return
		}
		s.writeAppError(w, r, errors.NewServiceError("account creation failed", "accounts", "create", err))
		return
	}

	writeJSON(w, http.StatusCreated, s.accountResponse(account))
}

func (s *Server) handleGetUserConfig(w http.ResponseWriter, r *http.Request) {
	apiKey := strings.TrimSpace(r.URL.Query().Get("apiKey"))
	if apiKey == "" {
		writeError(w, http.StatusBadRequest, "API key is required")
		return
	}

	account, err := s.accounts.FindByAPIKey(r.Context(), apiKey)
	if err != nil {
		s.writeAppError(w, r, errors.NewServiceError("account lookup failed", "accounts", "find_by_api_key", err))
		return
	}
	if account == nil {
		s.writeAppError(w, r, errors.NewNotFoundError("account", nil))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"preferredLanguage":     account.PreferredLanguage,
		"subscriptionStatus":    account.SubscriptionState,
		"translationsUsed":      account.TranslationsUsed,
		"freeTranslationsLimit": account.TranslationsLimit,
		"subscriptionEndDate":   account.SubscriptionEndDate,
	})
}

func (s *Server) handleUpdateUserConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	err := decodeBody(w, r, &req, func(get func(string) string) {
		req.APIKey = get("apiKey")
		req.PreferredLanguage = get("preferredLanguage")
	})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	apiKey := strings.TrimSpace(req.APIKey)
	if apiKey == "" {
		writeError(w, http.StatusBadRequest, "API key is required")
		return
	}
	language, err := adapter.ParseLanguage(req.PreferredLanguage)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	updated, err := s.accounts.UpdatePreferredLanguage(r.Context(), apiKey, language)
	if err != nil {
		s.writeAppError(w, r, errors.NewServiceError("account update failed", "accounts", "update_language", err))
		return
	}
	if !updated {
		s.writeAppError(w, r, errors.NewNotFoundError("account", nil))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Configuration saved"})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	account, err := s.accounts.FindByAPIKey(r.Context(), r.PathValue("apiKey"))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	if account == nil {
		writeError(w, http.StatusNotFound, "Invalid API key")
		return
	}

	manifest, err := s.formatter.Manifest(account)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, manifest)
}

// handleSubtitles never fails outright: players get an empty list instead.
func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	apiKey := r.PathValue("apiKey")

	media, err := adapter.ParseSubtitleRequest(r.PathValue("type"), r.PathValue("id"))
	if err != nil {
		s.logger.Debug("Unsupported subtitle request", zap.String("id", r.PathValue("id")), zap.Error(err))
		writeJSON(w, http.StatusOK, adapter.EmptySubtitles())
		return
	}

	result, err := s.subtitles.Offers(r.Context(), apiKey, media)
	if err != nil {
		status := http.StatusOK
		if errors.Code(err) == errors.CodeInvalidKey {
			status = http.StatusUnauthorized
		} else {
			s.logger.Warn("Subtitle listing failed", zap.String("media", media.String()), zap.Error(err))
		}
		writeJSON(w, status, adapter.EmptySubtitles())
		return
	}

	resp, err := s.formatter.Subtitles(apiKey, result.Offers)
	if err != nil {
		s.logger.Error("Failed to format subtitles", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	req := domain.TranslationRequest{
		SourceID:   r.PathValue("fileId"),
		SourceLang: r.PathValue("sourceLang"),
		TargetLang: r.PathValue("targetLang"),
	}

	result, err := s.subtitles.Translate(r.Context(), r.PathValue("apiKey"), req)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		status := errors.StatusCode(err)
		msg := errors.Message(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("Translation failed", zap.String("file_id", req.SourceID), zap.Error(err))
			msg = "Translation failed"
		}
		http.Error(w, msg, status)
		return
	}

	cacheHeader := "MISS"
	if result.CacheHit {
		cacheHeader = "HIT"
	}
	state := "complete"
	switch {
	case result.Passthrough:
		state = "passthrough"
	case !result.CacheHit && !result.Report.Complete():
		state = "partial"
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Cache", cacheHeader)
	w.Header().Set("X-Translation", state)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, result.Document)
}
