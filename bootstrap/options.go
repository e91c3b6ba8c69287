package bootstrap

import (
	"time"

	"github.com/kbukum/speakerbind/embedding"
	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/provider"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	registry        *provider.Registry[embedding.Provider]
	gracefulTimeout *time.Duration
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger uses l instead of building a logger from the config's
// Logging section. The global logger is left untouched.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithRegistry replaces the built-in embedding provider registry, e.g. to
// add a custom provider factory.
func WithRegistry(r *provider.Registry[embedding.Provider]) Option {
	return func(o *appOptions) {
		o.registry = r
	}
}

// WithGracefulTimeout sets the maximum duration for Shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}
