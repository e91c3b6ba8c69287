package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/speakerbind/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric names.
const (
	MetricJobs            = "speakerbind.jobs"
	MetricStageDuration   = "speakerbind.stage.duration"
	MetricWindowsEmbedded = "speakerbind.windows.embedded"
	MetricClustersFormed  = "speakerbind.clusters.formed"
	MetricEdgesEmitted    = "speakerbind.edges.emitted"
	MetricErrors          = "speakerbind.errors"
)

// Metrics holds the job instruments. All methods are no-ops on a nil
// receiver.
type Metrics struct {
	jobs            metric.Int64Counter
	stageDuration   metric.Float64Histogram
	windowsEmbedded metric.Int64Counter
	clustersFormed  metric.Int64Counter
	edgesEmitted    metric.Int64Counter
	errors          metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	jobs, err := meter.Int64Counter(MetricJobs,
		metric.WithDescription("Completed jobs by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricJobs, err)
	}

	stageDuration, err := meter.Float64Histogram(MetricStageDuration,
		metric.WithDescription("Duration of job stages in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricStageDuration, err)
	}

	windowsEmbedded, err := meter.Int64Counter(MetricWindowsEmbedded,
		metric.WithDescription("Analysis windows embedded, cache hits included"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricWindowsEmbedded, err)
	}

	clustersFormed, err := meter.Int64Counter(MetricClustersFormed,
		metric.WithDescription("Speaker clusters remaining after cleanup"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricClustersFormed, err)
	}

	edgesEmitted, err := meter.Int64Counter(MetricEdgesEmitted,
		metric.WithDescription("Speaker to face-track binding edges emitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricEdgesEmitted, err)
	}

	errorsTotal, err := meter.Int64Counter(MetricErrors,
		metric.WithDescription("Stage failures by error code"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricErrors, err)
	}

	return &Metrics{
		jobs:            jobs,
		stageDuration:   stageDuration,
		windowsEmbedded: windowsEmbedded,
		clustersFormed:  clustersFormed,
		edgesEmitted:    edgesEmitted,
		errors:          errorsTotal,
	}, nil
}

// RecordJob counts a finished job.
func (m *Metrics) RecordJob(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.jobs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordStage records a stage duration.
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordDiarization records the windows embedded and clusters formed by one
// diarization run.
func (m *Metrics) RecordDiarization(ctx context.Context, windows, clusters int) {
	if m == nil {
		return
	}
	m.windowsEmbedded.Add(ctx, int64(windows))
	m.clustersFormed.Add(ctx, int64(clusters))
}

// RecordEdges records emitted binding edges.
func (m *Metrics) RecordEdges(ctx context.Context, edges int) {
	if m == nil {
		return
	}
	m.edgesEmitted.Add(ctx, int64(edges))
}

// RecordError records a failure by error code and stage.
func (m *Metrics) RecordError(ctx context.Context, code, stage string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("stage", stage),
	))
}
