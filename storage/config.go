package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Provider constants for supported storage backends.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// Default configuration values.
const (
	DefaultProvider = ProviderLocal
	DefaultBasePath = "./artifacts"
	DefaultRegion   = "us-east-1"
)

// Config holds storage configuration.
type Config struct {
	// Enabled turns artifact publishing on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Provider selects the backend: "local" or "s3".
	Provider string `mapstructure:"provider" yaml:"provider" json:"provider" validate:"omitempty,oneof=local s3"`

	// Prefix is prepended to every artifact path.
	Prefix string `mapstructure:"prefix" yaml:"prefix" json:"prefix"`

	// BasePath is the root directory for local storage.
	BasePath string `mapstructure:"base_path" yaml:"base_path" json:"base_path"`

	// S3 settings. Endpoint selects an S3-compatible service such as MinIO.
	Bucket         string `mapstructure:"bucket" yaml:"bucket" json:"bucket"`
	Region         string `mapstructure:"region" yaml:"region" json:"region"`
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	AccessKey      string `mapstructure:"access_key" yaml:"access_key" json:"-"`
	SecretKey      string `mapstructure:"secret_key" yaml:"secret_key" json:"-"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style" json:"force_path_style"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// Validate checks the settings the selected provider needs.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderLocal:
		if c.BasePath == "" {
			return errors.New("storage: base_path is required for local provider")
		}
	case ProviderS3:
		var errs []error
		if c.Bucket == "" {
			errs = append(errs, errors.New("storage: bucket is required for s3 provider"))
		}
		if c.Region == "" {
			errs = append(errs, errors.New("storage: region is required for s3 provider"))
		}
		if len(errs) > 0 {
			return fmt.Errorf("storage: invalid s3 config: %w", errors.Join(errs...))
		}
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
	return nil
}

// Key joins the configured prefix with the given path elements.
func (c *Config) Key(elem ...string) string {
	parts := make([]string, 0, len(elem)+1)
	if p := strings.Trim(c.Prefix, "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, elem...)
	return path.Join(parts...)
}
