package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/speakerbind/errors"
)

// EnvPrefix namespaces every environment override,
// e.g. SPEAKERBIND_DIARIZATION_SIMILARITY_THRESHOLD.
const EnvPrefix = "SPEAKERBIND"

// FileSystem abstracts the file lookups the loader performs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem on the local disk.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds loader dependencies and file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	EnvFile    string
	SkipEnv    bool
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithoutEnv ignores the process environment and .env files.
func WithoutEnv() LoaderOption {
	return func(lc *LoaderConfig) { lc.SkipEnv = true }
}

var configSearchPaths = []string{
	"./speakerbind.yml",
	"./speakerbind.yaml",
	"./config.yml",
	"./config/config.yml",
	"./cmd/speakerbind/config.yml",
}

var envSearchPaths = []string{
	"./.env.speakerbind",
	"./.env",
	"./cmd/speakerbind/.env",
}

// Load builds the configuration from Default, the config file at path (or
// the first file found in the standard locations when path is empty), a .env
// file and SPEAKERBIND_ environment variables, in that order of precedence
// from lowest to highest. The result has defaults applied and is validated.
func Load(path string, opts ...LoaderOption) (*Config, error) {
	lc := LoaderConfig{FileSystem: RealFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()
	if path == "" {
		path = firstExisting(lc.FileSystem, configSearchPaths)
	} else if !lc.FileSystem.Exists(path) {
		return nil, errors.NotFound("config file", path)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.InvalidConfig("failed to read " + path).WithCause(err)
		}
	}

	if !lc.SkipEnv {
		envFile := lc.EnvFile
		if envFile == "" {
			envFile = firstExisting(lc.FileSystem, envSearchPaths)
		}
		if envFile != "" {
			if err := lc.FileSystem.LoadEnv(envFile); err != nil {
				return nil, errors.InvalidConfig("failed to load " + envFile).WithCause(err)
			}
		}
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		bindEnvVars(v, os.Environ())
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.InvalidConfig("failed to decode configuration").WithCause(err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// bindEnvVars sets every SPEAKERBIND_ variable on v under each nested key
// it could denote, since underscores are both separators and part of keys.
func bindEnvVars(v *viper.Viper, environ []string) {
	prefix := EnvPrefix + "_"
	for _, env := range environ {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		for _, variant := range envKeyVariants(strings.TrimPrefix(key, prefix)) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants expands an env key into candidate viper keys:
//
//	DIARIZATION_HOP_SECONDS -> [diarization_hop_seconds, diarization.hop.seconds,
//	                            diarization.hop_seconds, diarization_hop.seconds]
func envKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{lowerKey, strings.Join(parts, ".")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
		variants = append(variants, strings.Join(parts[:i], "_")+"."+strings.Join(parts[i:], "_"))
	}
	return removeDuplicates(variants)
}

func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}
