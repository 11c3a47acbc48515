package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeAppError            = "APP_ERROR"
	CodeAPIError            = "API_ERROR"
	CodeValidation          = "VALIDATION_ERROR"
	CodeCache               = "CACHE_ERROR"
	CodeService             = "SERVICE_ERROR"
	CodeMalformedDocument   = "MALFORMED_DOCUMENT"
	CodeBackendUnavailable  = "BACKEND_UNAVAILABLE"
	CodeRateLimited         = "RATE_LIMITED"
	CodeQuotaExceeded       = "QUOTA_EXCEEDED"
	CodeSubscriptionExpired = "SUBSCRIPTION_EXPIRED"
	CodeInvalidKey          = "INVALID_KEY"
	CodeNotFound            = "NOT_FOUND"
)

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(message, code string, statusCode int, context map[string]any) *AppError {
	return &AppError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

type APIError struct {
	*AppError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

type ValidationError struct {
	*AppError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: http.StatusBadRequest,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*AppError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*AppError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeService,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

// MalformedDocumentError reports a subtitle document with no recognizable cue.
type MalformedDocumentError struct {
	*AppError
	Dropped int
}

func NewMalformedDocumentError(message string, dropped int) *MalformedDocumentError {
	return &MalformedDocumentError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeMalformedDocument,
			StatusCode: http.StatusUnprocessableEntity,
			Context: map[string]any{
				"dropped": dropped,
			},
		},
		Dropped: dropped,
	}
}

// BackendUnavailableError covers unreachable search or translation providers.
type BackendUnavailableError struct {
	*AppError
	Backend string
}

func NewBackendUnavailableError(backend string, cause error) *BackendUnavailableError {
	return &BackendUnavailableError{
		AppError: &AppError{
			Message:    fmt.Sprintf("%s unavailable", backend),
			Code:       CodeBackendUnavailable,
			StatusCode: http.StatusServiceUnavailable,
			Context: map[string]any{
				"backend": backend,
			},
			Cause: cause,
		},
		Backend: backend,
	}
}

// RateLimitedError is the distinct class a translation backend returns on HTTP 429.
type RateLimitedError struct {
	*AppError
	Backend string
}

func NewRateLimitedError(backend string, cause error) *RateLimitedError {
	return &RateLimitedError{
		AppError: &AppError{
			Message:    fmt.Sprintf("%s rate limited", backend),
			Code:       CodeRateLimited,
			StatusCode: http.StatusTooManyRequests,
			Context: map[string]any{
				"backend": backend,
			},
			Cause: cause,
		},
		Backend: backend,
	}
}

type QuotaExceededError struct {
	*AppError
	Used  int
	Limit int
}

func NewQuotaExceededError(used, limit int) *QuotaExceededError {
	return &QuotaExceededError{
		AppError: &AppError{
			Message:    "Trial limit reached. Subscribe for unlimited translations!",
			Code:       CodeQuotaExceeded,
			StatusCode: http.StatusForbidden,
			Context: map[string]any{
				"used":  used,
				"limit": limit,
			},
		},
		Used:  used,
		Limit: limit,
	}
}

type SubscriptionExpiredError struct {
	*AppError
}

func NewSubscriptionExpiredError() *SubscriptionExpiredError {
	return &SubscriptionExpiredError{
		AppError: &AppError{
			Message:    "Subscription expired. Please renew to continue.",
			Code:       CodeSubscriptionExpired,
			StatusCode: http.StatusForbidden,
		},
	}
}

type InvalidKeyError struct {
	*AppError
}

func NewInvalidKeyError() *InvalidKeyError {
	return &InvalidKeyError{
		AppError: &AppError{
			Message:    "Invalid API key",
			Code:       CodeInvalidKey,
			StatusCode: http.StatusUnauthorized,
		},
	}
}

type NotFoundError struct {
	*AppError
	Resource string
}

func NewNotFoundError(resource string, context map[string]any) *NotFoundError {
	return &NotFoundError{
		AppError: &AppError{
			Message:    fmt.Sprintf("%s not found", resource),
			Code:       CodeNotFound,
			StatusCode: http.StatusNotFound,
			Context:    context,
		},
		Resource: resource,
	}
}

func IsRateLimited(err error) bool {
	var target *RateLimitedError
	return stderrors.As(err, &target)
}

func IsBackendUnavailable(err error) bool {
	var target *BackendUnavailableError
	return stderrors.As(err, &target)
}

func IsMalformedDocument(err error) bool {
	var target *MalformedDocumentError
	return stderrors.As(err, &target)
}

type coded interface {
	error
	ErrorCode() string
	HTTPStatus() int
}

func (e *AppError) ErrorCode() string {
	return e.Code
}

func (e *AppError) HTTPStatus() int {
	return e.StatusCode
}

// StatusCode returns the HTTP status carried by err, or 500.
func StatusCode(err error) int {
	var c coded
	if stderrors.As(err, &c) && c.HTTPStatus() > 0 {
		return c.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Code returns the error code carried by err, or CodeAppError.
func Code(err error) string {
	var c coded
	if stderrors.As(err, &c) && c.ErrorCode() != "" {
		return c.ErrorCode()
	}
	return CodeAppError
}

func (e *AppError) PublicMessage() string {
	return e.Message
}

// Message returns the user-facing message carried by err, without its cause.
func Message(err error) string {
	var m interface{ PublicMessage() string }
	if stderrors.As(err, &m) {
		return m.PublicMessage()
	}
	return err.Error()
}
