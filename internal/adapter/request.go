package adapter

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/internal/util"
	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

var controlCharsPattern = regexp.MustCompile(`[\x00-\x1F\x7F]`)

const maxInputRunes = 254

// ParseSubtitleRequest reads the {type} and {id}.json path segments of a subtitles call.
func ParseSubtitleRequest(mediaType, rawID string) (domain.MediaRequest, error) {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if !util.Contains(mediaTypes, mediaType) {
		return domain.MediaRequest{}, errors.NewValidationError("unsupported media type", "type", mediaType)
	}

	id, err := url.PathUnescape(strings.TrimSuffix(rawID, ".json"))
	if err != nil {
		return domain.MediaRequest{}, errors.NewValidationError("invalid media id", "id", rawID)
	}

	media, err := domain.ParseMediaID(mediaType, id)
	if err != nil {
		return domain.MediaRequest{}, errors.NewValidationError(err.Error(), "id", id)
	}
	return media, nil
}

// SanitizeInput strips control characters and bounds the length of user-supplied text.
func SanitizeInput(s string) string {
	s = controlCharsPattern.ReplaceAllString(s, "")
	return util.TruncateString(strings.TrimSpace(s), maxInputRunes)
}

// ParseLanguage validates a language picked by a viewer.
func ParseLanguage(code string) (string, error) {
	code = domain.NormalizeLanguage(SanitizeInput(code))
	if !domain.IsSupportedLanguage(code) {
		return "", errors.NewValidationError("unsupported language", "preferredLanguage", code)
	}
	return code, nil
}

// ParseEmail does a shallow shape check; the account store enforces uniqueness.
func ParseEmail(email string) (string, error) {
	email = strings.ToLower(SanitizeInput(email))
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at:], ".") || strings.ContainsAny(email, " \t") {
		return "", errors.NewValidationError("invalid email address", "email", email)
	}
	return email, nil
}
