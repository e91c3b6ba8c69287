package redis

import (
	"fmt"
	"time"
)

// Config holds Redis connection settings for the embedding cache.
type Config struct {
	// Enabled selects Redis as the cache backend.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Addr is the server address (host:port).
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr"`

	Password string `mapstructure:"password" yaml:"password" json:"-"`
	DB       int    `mapstructure:"db" yaml:"db" json:"db"`

	// PoolSize is the maximum number of socket connections.
	PoolSize int `mapstructure:"pool_size" yaml:"pool_size" json:"pool_size"`

	// MaxRetries is the number of retries per command before giving up.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`

	// Timeouts use Go duration syntax (e.g. "5s").
	DialTimeout  string `mapstructure:"dial_timeout" yaml:"dial_timeout" json:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout"`

	// KeyPrefix namespaces every cache key.
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix" json:"key_prefix"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "3s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "3s"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "speakerbind"
	}
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be > 0")
	}
	for name, v := range map[string]string{"dial_timeout": c.DialTimeout, "read_timeout": c.ReadTimeout, "write_timeout": c.WriteTimeout} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	return nil
}
