// Package errors provides the structured error type used across speakerbind.
// Hard input failures (unreadable audio, embedding provider failure) surface
// as AppError values with machine-readable codes; expected gaps in the input
// never become errors.
package errors
