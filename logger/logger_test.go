package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newJSONLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "test-svc", buf)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", line, err)
	}
	return m
}

func TestNewWithWriter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info")
	l.Info("clustered", Fields("clusters", 3, FieldClipID, "clip-1"))

	m := decodeLine(t, &buf)
	if m["message"] != "clustered" {
		t.Errorf("expected message 'clustered', got %v", m["message"])
	}
	if m["service"] != "test-svc" {
		t.Errorf("expected service 'test-svc', got %v", m["service"])
	}
	if m["clusters"] != float64(3) {
		t.Errorf("expected clusters=3, got %v", m["clusters"])
	}
	if m[FieldClipID] != "clip-1" {
		t.Errorf("expected clip_id=clip-1, got %v", m[FieldClipID])
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "warn")
	l.Info("hidden")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info/debug to be filtered, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn line, got %q", buf.String())
	}
}

func TestNewWithWriter_InvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "nope")
	l.Info("fallback")
	if !strings.Contains(buf.String(), "fallback") {
		t.Error("expected invalid level to fall back to info")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "info").WithComponent("binding")
	l.Info("bound")
	m := decodeLine(t, &buf)
	if m[FieldComponent] != "binding" {
		t.Errorf("expected component=binding, got %v", m[FieldComponent])
	}
	if l.service != "test-svc" {
		t.Errorf("service should be preserved, got %q", l.service)
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	newJSONLogger(&buf, "info").WithError(errors.New("boom")).Error("failed")
	m := decodeLine(t, &buf)
	if m["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", m["error"])
	}
}

func TestWithContext_NoSpan(t *testing.T) {
	l := NewNop()
	if got := l.WithContext(context.Background()); got != l {
		t.Error("expected same logger when no span is active")
	}
}

func TestWithContext_Span(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	newJSONLogger(&buf, "info").WithContext(ctx).Info("traced")
	m := decodeLine(t, &buf)
	if m[FieldTraceID] != span.SpanContext().TraceID().String() {
		t.Errorf("expected trace_id from span, got %v", m[FieldTraceID])
	}
}

func TestFieldsHelpers(t *testing.T) {
	f := Fields("a", 1, "dangling")
	if len(f) != 1 || f["a"] != 1 {
		t.Errorf("expected {a:1}, got %v", f)
	}

	ef := ErrorFields("embed", errors.New("x"))
	if ef[FieldOperation] != "embed" || ef[FieldError] != "x" {
		t.Errorf("unexpected error fields: %v", ef)
	}

	df := DurationFields("cluster", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("expected duration 1500, got %v", df[FieldDuration])
	}
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}

	cfg.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid level to fail validation")
	}
}

func TestRegistry(t *testing.T) {
	l := NewNop()
	Register("custom", l)
	if Get("custom") != l {
		t.Error("expected registered logger to be returned")
	}
	if Get("unregistered") == nil {
		t.Error("expected fallback logger for unknown name")
	}
}

func TestGlobalLogger(t *testing.T) {
	globalLogger = nil
	if GetGlobalLogger() == nil {
		t.Fatal("expected default global logger to be created")
	}
	l := NewNop()
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected SetGlobalLogger to replace the global logger")
	}
}
