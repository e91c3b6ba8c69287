// Package job runs one clip through diarization, identity binding and the
// identity timeline, and optionally publishes the three artifacts.
//
// A job is synchronous and runs each stage once. Stage failures are
// returned as-is; nothing is retried here, so the caller decides whether
// the whole job is worth resubmitting (see errors.AppError.Retryable).
package job
