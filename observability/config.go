package observability

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/speakerbind/logger"
)

// Config enables and points the OTLP exporters.
type Config struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	ServiceName    string        `mapstructure:"service_name" yaml:"service_name" json:"service_name"`
	Environment    string        `mapstructure:"environment" yaml:"environment" json:"environment"`
	Endpoint       string        `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Insecure       bool          `mapstructure:"insecure" yaml:"insecure" json:"insecure"`
	SampleRate     float64       `mapstructure:"sample_rate" yaml:"sample_rate" json:"sample_rate" validate:"gte=0,lte=1"`
	MetricInterval time.Duration `mapstructure:"metric_interval" yaml:"metric_interval" json:"metric_interval"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "speakerbind"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 15 * time.Second
	}
}

// Setup installs the global tracer and meter providers when cfg.Enabled and
// returns the job metrics plus a shutdown function. With observability
// disabled it returns nil metrics and a no-op shutdown.
func Setup(ctx context.Context, cfg Config, serviceVersion string) (*Metrics, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return nil, noop, nil
	}
	cfg.ApplyDefaults()

	tp, err := InitTracer(ctx, TracerConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
		SampleRate:     cfg.SampleRate,
	})
	if err != nil {
		return nil, noop, err
	}

	mp, err := InitMeter(ctx, &MeterConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
		Interval:       cfg.MetricInterval,
	})
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, noop, err
	}

	metrics, err := NewMetrics(Meter(InstrumentationName))
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, noop, err
	}

	shutdown := func(ctx context.Context) error {
		err := errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
		if err != nil {
			logger.Warn("observability shutdown failed", logger.ErrorFields("shutdown", err))
		}
		return err
	}
	return metrics, shutdown, nil
}
