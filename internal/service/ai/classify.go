package ai

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"

	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

var (
	statusCodeRegex  = regexp.MustCompile(`"code":\s*(\d{3})`)
	leadingCodeRegex = regexp.MustCompile(`^(\d{3})\s`)
)

// classifyError maps provider SDK errors onto RateLimited, BackendUnavailable or ServiceError.
func classifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.IsRateLimited(err) || errors.IsBackendUnavailable(err) {
		return err
	}

	status := statusFromError(err)
	switch {
	case status == http.StatusTooManyRequests:
		return errors.NewRateLimitedError(provider, err)
	case status == http.StatusRequestTimeout || status >= 500:
		return errors.NewBackendUnavailableError(provider, err)
	}

	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.NewBackendUnavailableError(provider, err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.NewBackendUnavailableError(provider, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case isRateLimitMessage(msg):
		return errors.NewRateLimitedError(provider, err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "etimedout"),
		strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return errors.NewBackendUnavailableError(provider, err)
	}

	return errors.NewServiceError("translation request failed", provider, "generate", err)
}

func isRateLimitMessage(msg string) bool {
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource_exhausted")
}

func statusFromError(err error) int {
	var geminiErr genai.APIError
	if stderrors.As(err, &geminiErr) {
		return geminiErr.Code
	}
	var openaiErr *openai.Error
	if stderrors.As(err, &openaiErr) {
		return openaiErr.StatusCode
	}
	var anthropicErr *anthropic.Error
	if stderrors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode
	}

	msg := err.Error()
	for _, re := range []*regexp.Regexp{statusCodeRegex, leadingCodeRegex} {
		if m := re.FindStringSubmatch(msg); len(m) > 1 {
			if code, convErr := strconv.Atoi(m[1]); convErr == nil {
				return code
			}
		}
	}
	return 0
}
