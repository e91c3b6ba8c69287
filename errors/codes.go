package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Input errors
const (
	// ErrCodeInvalidInput indicates the job input is malformed.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInvalidConfig indicates a configuration record failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeAudioUnreadable indicates the audio could not be read or does not
	// match the provider's declared sample rate.
	ErrCodeAudioUnreadable ErrorCode = "AUDIO_UNREADABLE"
	// ErrCodeSchemaMismatch indicates an artifact carries an unsupported schema version.
	ErrCodeSchemaMismatch ErrorCode = "SCHEMA_MISMATCH"
)

// Embedding errors
const (
	// ErrCodeEmbeddingFailed indicates the embedding provider returned an error.
	ErrCodeEmbeddingFailed ErrorCode = "EMBEDDING_FAILED"
	// ErrCodeEmbeddingDimension indicates the provider returned vectors of
	// inconsistent dimension within one run.
	ErrCodeEmbeddingDimension ErrorCode = "EMBEDDING_DIMENSION_MISMATCH"
)

// Infrastructure errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeStorage indicates an artifact storage backend failed.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
	// ErrCodeCache indicates the embedding cache backend failed.
	ErrCodeCache ErrorCode = "CACHE_ERROR"
	// ErrCodeUnavailable indicates a dependency (sidecar, model runtime) is not ready.
	ErrCodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// The job itself never retries. Retryable only tells the host whether
// resubmitting the whole job could succeed.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeStorage:     true,
	ErrCodeCache:       true,
	ErrCodeUnavailable: true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
