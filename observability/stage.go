package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/speakerbind/errors"
)

// Stage tracks one traced and timed step of a job.
type Stage struct {
	Name      string
	StartTime time.Time
	span      trace.Span
	metrics   *Metrics
}

// StartStage starts the span for name. metrics may be nil.
func StartStage(ctx context.Context, metrics *Metrics, name string) (context.Context, *Stage) {
	ctx, span := StartSpan(ctx, name, trace.WithAttributes(attribute.String(AttrStage, name)))
	return ctx, &Stage{Name: name, StartTime: time.Now(), span: span, metrics: metrics}
}

// Span returns the stage's span.
func (s *Stage) Span() trace.Span { return s.span }

// End closes the span and records the stage duration. A non-nil err marks
// the span failed and is counted by error code.
func (s *Stage) End(ctx context.Context, err error) {
	duration := time.Since(s.StartTime)
	status := "ok"
	if err != nil {
		status = "error"
		code := string(apperrors.ErrCodeInternal)
		if appErr, ok := apperrors.AsAppError(err); ok {
			code = string(appErr.Code)
		}
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		s.span.SetAttributes(attribute.String(AttrErrorCode, code))
		s.metrics.RecordError(ctx, code, s.Name)
	}
	s.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	s.span.End()
	s.metrics.RecordStage(ctx, s.Name, status, duration)
}

// Duration returns the elapsed time since the stage started.
func (s *Stage) Duration() time.Duration {
	return time.Since(s.StartTime)
}
