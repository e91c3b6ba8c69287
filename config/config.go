package config

import (
	"time"

	"github.com/kbukum/speakerbind/binding"
	"github.com/kbukum/speakerbind/diarization"
	"github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/observability"
	"github.com/kbukum/speakerbind/redis"
	"github.com/kbukum/speakerbind/server"
	"github.com/kbukum/speakerbind/storage"
	"github.com/kbukum/speakerbind/timeline"
	"github.com/kbukum/speakerbind/validation"
)

// Embedding provider names.
const (
	ProviderSidecar = "sidecar"
	ProviderONNX    = "onnx"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the complete speakerbind configuration. Each stage receives its
// own sub-record; nothing reads this struct globally.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Diarization   diarization.Config   `yaml:"diarization" mapstructure:"diarization"`
	Binding       binding.Config       `yaml:"binding" mapstructure:"binding"`
	Timeline      timeline.Config      `yaml:"timeline" mapstructure:"timeline"`
	Embedding     EmbeddingConfig      `yaml:"embedding" mapstructure:"embedding"`
	Cache         CacheConfig          `yaml:"cache" mapstructure:"cache"`
	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Output        OutputConfig         `yaml:"output" mapstructure:"output"`
}

// EmbeddingConfig selects and configures the speaker embedding provider.
type EmbeddingConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider" validate:"required,oneof=sidecar onnx"`

	// Sidecar
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	Model           string        `yaml:"model" mapstructure:"model"`
	MaxAttempts     int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=0"`
	BreakerFailures int           `yaml:"breaker_failures" mapstructure:"breaker_failures" validate:"gte=0"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" mapstructure:"breaker_cooldown" validate:"gte=0"`

	// ONNX
	ModelPath   string `yaml:"model_path" mapstructure:"model_path"`
	LibraryPath string `yaml:"library_path" mapstructure:"library_path"`

	// Zero keeps the provider's own window and rate.
	WindowSeconds float64 `yaml:"window_seconds" mapstructure:"window_seconds" validate:"gte=0"`
	SampleRate    int     `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0"`
}

// Settings renders the provider factory settings with the Go types each
// factory expects.
func (c EmbeddingConfig) Settings() map[string]any {
	s := map[string]any{}
	switch c.Provider {
	case ProviderSidecar:
		if c.BaseURL != "" {
			s["base_url"] = c.BaseURL
		}
		if c.Timeout > 0 {
			s["timeout"] = c.Timeout
		}
		if c.Model != "" {
			s["model"] = c.Model
		}
		if c.MaxAttempts > 0 {
			s["max_attempts"] = c.MaxAttempts
		}
		if c.BreakerFailures > 0 {
			s["breaker_failures"] = c.BreakerFailures
		}
		if c.BreakerCooldown > 0 {
			s["breaker_cooldown"] = c.BreakerCooldown
		}
	case ProviderONNX:
		if c.ModelPath != "" {
			s["model_path"] = c.ModelPath
		}
		if c.LibraryPath != "" {
			s["library_path"] = c.LibraryPath
		}
	}
	if c.WindowSeconds > 0 {
		s["window_seconds"] = c.WindowSeconds
	}
	if c.SampleRate > 0 {
		s["sample_rate"] = c.SampleRate
	}
	return s
}

// CacheConfig selects the embedding cache backend.
type CacheConfig struct {
	Backend  string        `yaml:"backend" mapstructure:"backend" validate:"required,oneof=none memory redis"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`
	Capacity int           `yaml:"capacity" mapstructure:"capacity" validate:"gte=0"`
	Redis    redis.Config  `yaml:"redis" mapstructure:"redis"`
}

// OutputConfig controls artifact rendering.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=json yaml yml"`
}

// Default returns the configuration with every stage default in place.
func Default() Config {
	cfg := Config{
		ServiceConfig: ServiceConfig{Name: "speakerbind"},
		Diarization:   diarization.DefaultConfig(),
		Binding:       binding.DefaultConfig(),
		Timeline:      timeline.DefaultConfig(),
		Embedding:     EmbeddingConfig{Provider: ProviderSidecar, Timeout: 30 * time.Second},
		Cache:         CacheConfig{Backend: CacheMemory, TTL: time.Hour, Capacity: 65536},
		Output:        OutputConfig{Format: "json"},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued infrastructure settings. Stage tuning is
// taken from Default and left alone here so an explicit zero survives.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderSidecar
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	if c.Cache.Backend == CacheRedis {
		c.Cache.Redis.Enabled = true
		c.Cache.Redis.ApplyDefaults()
	}
	if c.Output.Format == "" {
		c.Output.Format = "json"
	}
	c.Storage.ApplyDefaults()
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = c.Name
	}
	if c.Observability.Environment == "" {
		c.Observability.Environment = c.Environment
	}
	c.Observability.ApplyDefaults()
	c.Server.ApplyDefaults()
}

// Validate checks struct tags first, then each section's own rules.
func (c *Config) Validate() error {
	if err := validation.ValidateConfig(c); err != nil {
		return err
	}
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Diarization.Validate(); err != nil {
		return err
	}
	if err := c.Binding.Validate(); err != nil {
		return err
	}
	if err := c.Timeline.Validate(); err != nil {
		return err
	}
	if c.Embedding.Provider == ProviderONNX && c.Embedding.ModelPath == "" {
		return errors.InvalidConfig("embedding.model_path is required for the onnx provider")
	}
	if err := c.Cache.Redis.Validate(); err != nil {
		return errors.InvalidConfig("cache.redis: " + err.Error())
	}
	if c.Storage.Enabled {
		if err := c.Storage.Validate(); err != nil {
			return errors.InvalidConfig(err.Error())
		}
	}
	if err := c.Server.Validate(); err != nil {
		return errors.InvalidConfig(err.Error())
	}
	return nil
}
