package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/speakerbind/artifact"
	"github.com/kbukum/speakerbind/config"
	"github.com/kbukum/speakerbind/diarization"
	"github.com/kbukum/speakerbind/embedding"
	"github.com/kbukum/speakerbind/embedding/onnx"
	"github.com/kbukum/speakerbind/embedding/sidecar"
	"github.com/kbukum/speakerbind/job"
	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/observability"
	"github.com/kbukum/speakerbind/provider"
	"github.com/kbukum/speakerbind/redis"
	"github.com/kbukum/speakerbind/storage"
	_ "github.com/kbukum/speakerbind/storage/local"
	_ "github.com/kbukum/speakerbind/storage/s3"
	"github.com/kbukum/speakerbind/version"
)

const defaultGracefulTimeout = 15 * time.Second

// Components loggers are registered for at startup.
var componentNames = []string{"diarization", "cluster", "binding", "timeline", "job", "server", "storage", "redis", "sidecar"}

// App owns every long-lived dependency built from one Config: the embedding
// provider, its cache, artifact storage, telemetry and the job runner.
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	Provider  embedding.Provider
	Runner    *job.Runner
	Metrics   *observability.Metrics
	Publisher *artifact.Publisher

	providers       *provider.Registry[embedding.Provider]
	deps            []observability.Availability
	summary         *Summary
	onStop          []Hook
	gracefulTimeout time.Duration
}

// NewRegistry returns the embedding provider registry with the built-in
// sidecar and onnx factories.
func NewRegistry() *provider.Registry[embedding.Provider] {
	reg := provider.NewRegistry[embedding.Provider]()
	reg.RegisterFactory(sidecar.ProviderName, sidecar.Factory())
	reg.RegisterFactory(onnx.ProviderName, onnx.Factory())
	return reg
}

// New wires an App from cfg. On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (app *App, err error) {
	o := resolveOptions(opts)

	log := o.logger
	if log == nil {
		log = logger.New(&cfg.Logging, cfg.Name)
		logger.SetGlobalLogger(log)
		logger.RegisterDefaults(componentNames...)
	}

	app = &App{
		Config:          cfg,
		Logger:          log.WithComponent("bootstrap"),
		providers:       o.registry,
		summary:         NewSummary(cfg.Name, version.GetShortVersion()),
		gracefulTimeout: defaultGracefulTimeout,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if app.providers == nil {
		app.providers = NewRegistry()
	}
	defer func() {
		if err != nil {
			_ = app.Shutdown(ctx)
			app = nil
		}
	}()

	metrics, shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability, version.GetShortVersion())
	if err != nil {
		return app, fmt.Errorf("observability: %w", err)
	}
	app.Metrics = metrics
	app.OnStop(shutdownTelemetry)
	app.summary.Track("telemetry", telemetryDetail(cfg.Observability))

	p, err := app.providers.Open(ctx, cfg.Embedding.Provider, cfg.Embedding.Settings())
	if err != nil {
		return app, fmt.Errorf("embedding provider: %w", err)
	}
	app.Provider = p
	app.OnStop(app.providers.CloseAll)
	app.deps = append(app.deps, p)
	app.summary.Track("embedding", fmt.Sprintf("%s (window %.2fs @ %d Hz)", p.Name(), p.WindowSeconds(), p.SampleRate()))

	cache, err := app.cache(ctx)
	if err != nil {
		return app, err
	}

	var jobOpts []job.Option
	jobOpts = append(jobOpts, job.WithLogger(log), job.WithMetrics(metrics))
	if cfg.Storage.Enabled {
		store, err := storage.New(cfg.Storage, log)
		if err != nil {
			return app, fmt.Errorf("storage: %w", err)
		}
		format, err := artifact.ParseFormat(cfg.Output.Format)
		if err != nil {
			return app, err
		}
		app.Publisher = artifact.NewPublisher(store, cfg.Storage, format, log)
		jobOpts = append(jobOpts, job.WithPublisher(app.Publisher))
		app.summary.Track("storage", fmt.Sprintf("%s (%s)", cfg.Storage.Provider, format))
	} else {
		app.summary.Track("storage", "disabled")
	}

	app.Runner = job.NewRunner(
		diarization.New(p, cache, cfg.Diarization),
		cfg.Binding, cfg.Timeline,
		jobOpts...,
	)
	app.summary.Log(app.Logger)
	return app, nil
}

// cache builds the configured embedding cache; nil disables caching. An
// unreachable Redis is logged and kept, since cache failures are bypassed
// per lookup.
func (a *App) cache(ctx context.Context) (*embedding.Cache, error) {
	cc := a.Config.Cache
	switch cc.Backend {
	case config.CacheMemory:
		a.summary.Track("cache", fmt.Sprintf("memory (capacity %d, ttl %s)", cc.Capacity, cc.TTL))
		return embedding.NewCache(provider.NewBoundedMemoryStore[[]float64](cc.Capacity), cc.TTL), nil
	case config.CacheRedis:
		client, err := redis.New(cc.Redis, logger.Get("redis"))
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		a.OnStop(func(context.Context) error { return client.Close() })
		a.deps = append(a.deps, client)
		if err := client.Ping(ctx); err != nil {
			a.Logger.Warn("redis cache unreachable; lookups will miss", logger.ErrorFields("ping", err))
		}
		a.summary.Track("cache", fmt.Sprintf("redis %s (ttl %s)", cc.Redis.Addr, cc.TTL))
		return embedding.NewCache(redis.NewVectorStore(client, cc.Redis.KeyPrefix), cc.TTL), nil
	default:
		a.summary.Track("cache", "disabled")
		return nil, nil
	}
}

// Dependencies returns the readiness probes for the health endpoint.
func (a *App) Dependencies() []observability.Availability {
	return a.deps
}

// RunTask runs a finite task, canceling it on SIGINT/SIGTERM, then shuts
// the App down.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	taskCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	taskErr := task(taskCtx)
	if stopErr := a.Shutdown(ctx); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

// Run calls start, blocks until a shutdown signal or ctx is done, then shuts
// the App down.
func (a *App) Run(ctx context.Context, start func(ctx context.Context) error) error {
	if err := start(ctx); err != nil {
		_ = a.Shutdown(ctx)
		return err
	}
	a.Logger.Info("ready; waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.Shutdown(context.WithoutCancel(ctx))
}

// WaitForSignal blocks until SIGINT/SIGTERM or ctx is done.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		return nil
	}
}

// Shutdown runs the stop hooks in reverse registration order within the
// graceful timeout. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.gracefulTimeout)
	defer cancel()

	hooks := a.onStop
	a.onStop = nil
	err := runHooksReverse(ctx, hooks)
	if err != nil {
		a.Logger.Error("shutdown incomplete", logger.ErrorFields("shutdown", err))
	}
	return err
}

func telemetryDetail(c observability.Config) string {
	if !c.Enabled {
		return "disabled"
	}
	return "otlp " + c.Endpoint
}
