package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if resubmitting the whole job may succeed.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// InvalidInput creates a new AppError for a malformed job input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Details: details,
	}
}

// InvalidConfig creates a new AppError for a configuration validation failure.
func InvalidConfig(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidConfig, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// AudioUnreadable creates a new AppError for audio that cannot be consumed.
func AudioUnreadable(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeAudioUnreadable, Message: fmt.Sprintf("Audio unreadable: %s", reason),
		HTTPStatus: http.StatusUnprocessableEntity, Cause: cause,
	}
}

// EmbeddingFailed creates a new AppError for an embedding provider failure.
// The window is identified by its start sample so the failure can be reproduced.
func EmbeddingFailed(providerName string, startSample int, cause error) *AppError {
	return &AppError{
		Code: ErrCodeEmbeddingFailed, Message: fmt.Sprintf("Embedding provider %s failed", providerName),
		HTTPStatus: http.StatusBadGateway, Cause: cause,
		Details: map[string]any{"provider": providerName, "start_sample": startSample},
	}
}

// EmbeddingDimension creates a new AppError for inconsistent vector dimensions.
func EmbeddingDimension(want, got int) *AppError {
	return &AppError{
		Code: ErrCodeEmbeddingDimension, Message: fmt.Sprintf("Embedding dimension changed from %d to %d", want, got),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"expected": want, "actual": got},
	}
}

// SchemaMismatch creates a new AppError for an artifact with an unsupported schema version.
func SchemaMismatch(want, got string) *AppError {
	return &AppError{
		Code: ErrCodeSchemaMismatch, Message: fmt.Sprintf("Unsupported schema version %q (expected %q)", got, want),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"expected": want, "actual": got},
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Details: details,
	}
}

// Unavailable creates a new AppError for a dependency that is not ready.
func Unavailable(service string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeUnavailable, Message: fmt.Sprintf("The %s is not available.", service),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true, Cause: cause,
		Details: map[string]any{"service": service},
	}
}

// StorageError creates a new AppError for an artifact storage failure.
func StorageError(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStorage, Message: fmt.Sprintf("Artifact storage %s failed.", op),
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
		Details: map[string]any{"operation": op},
	}
}

// CacheError creates a new AppError for an embedding cache failure.
func CacheError(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeCache, Message: fmt.Sprintf("Embedding cache %s failed.", op),
		HTTPStatus: http.StatusInternalServerError, Retryable: true, Cause: cause,
		Details: map[string]any{"operation": op},
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
