package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", NewValidationError("bad", "field", 1), http.StatusBadRequest, CodeValidation},
		{"invalid key", NewInvalidKeyError(), http.StatusUnauthorized, CodeInvalidKey},
		{"quota", NewQuotaExceededError(5, 5), http.StatusForbidden, CodeQuotaExceeded},
		{"expired", NewSubscriptionExpiredError(), http.StatusForbidden, CodeSubscriptionExpired},
		{"not found", NewNotFoundError("subtitle", nil), http.StatusNotFound, CodeNotFound},
		{"malformed", NewMalformedDocumentError("no cues", 3), http.StatusUnprocessableEntity, CodeMalformedDocument},
		{"rate limited", NewRateLimitedError("gemini", nil), http.StatusTooManyRequests, CodeRateLimited},
		{"unavailable", NewBackendUnavailableError("opensubtitles", nil), http.StatusServiceUnavailable, CodeBackendUnavailable},
		{"wrapped", fmt.Errorf("outer: %w", NewInvalidKeyError()), http.StatusUnauthorized, CodeInvalidKey},
		{"plain", stderrors.New("boom"), http.StatusInternalServerError, CodeAppError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusCode(tt.err))
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
}

func TestMessageOmitsCause(t *testing.T) {
	err := NewCacheError("put failed", "insert", "k", stderrors.New("disk full"))

	assert.Equal(t, "put failed: disk full", err.Error())
	assert.Equal(t, "put failed", Message(err))
	assert.Equal(t, "put failed", Message(fmt.Errorf("store: %w", err)))
	assert.Equal(t, "boom", Message(stderrors.New("boom")))
}

func TestClassPredicates(t *testing.T) {
	rate := fmt.Errorf("call: %w", NewRateLimitedError("openai", stderrors.New("429")))
	assert.True(t, IsRateLimited(rate))
	assert.False(t, IsBackendUnavailable(rate))

	down := NewBackendUnavailableError("gemini", nil)
	assert.True(t, IsBackendUnavailable(down))
	assert.False(t, IsRateLimited(down))

	assert.True(t, IsMalformedDocument(NewMalformedDocumentError("empty", 0)))
	assert.False(t, IsMalformedDocument(stderrors.New("other")))
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewServiceError("search failed", "opensubtitles", "search", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "opensubtitles", err.Service)
}
