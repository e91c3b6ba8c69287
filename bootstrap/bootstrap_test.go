package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/speakerbind/config"
	"github.com/kbukum/speakerbind/embedding"
	"github.com/kbukum/speakerbind/embedding/embeddingtest"
	"github.com/kbukum/speakerbind/job"
	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/provider"
	"github.com/kbukum/speakerbind/transcript"
)

const rate = 100

func fakeRegistry() *provider.Registry[embedding.Provider] {
	reg := provider.NewRegistry[embedding.Provider]()
	reg.RegisterFactory(config.ProviderSidecar, func(map[string]any) (embedding.Provider, error) {
		return embeddingtest.SignProvider(1, rate), nil
	})
	return reg
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Diarization.HopSeconds = 1
	cfg.Diarization.SimilarityThreshold = 0.8
	return &cfg
}

func request() job.Request {
	words := make([]transcript.Word, 10)
	for i := range words {
		words[i] = transcript.Word{
			ID:          fmt.Sprintf("w%02d", i),
			SourceStart: transcript.FromSeconds(float64(i) + 0.2),
			SourceEnd:   transcript.FromSeconds(float64(i) + 0.8),
		}
	}
	return job.Request{
		ClipID:   "clip-1",
		Audio:    embedding.Audio{SourceID: "clip-1", SampleRate: rate, Samples: embeddingtest.Alternating(10, 2, rate, 0.5)},
		Segments: []transcript.AudioSegment{{Start: 0, End: 10, Kind: transcript.KindSpeechLike, Confidence: 0.9}},
		Words:    words,
	}
}

func TestNew_RunsAndPublishes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Enabled = true
	cfg.Storage.BasePath = t.TempDir()

	ctx := context.Background()
	app, err := New(ctx, cfg, WithLogger(logger.NewNop()), WithRegistry(fakeRegistry()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.Provider.Name() != "sign" {
		t.Errorf("expected the registry provider, got %q", app.Provider.Name())
	}
	if app.Publisher == nil {
		t.Fatal("expected a publisher when storage is enabled")
	}
	if len(app.Dependencies()) != 1 {
		t.Errorf("expected only the provider as a dependency, got %d", len(app.Dependencies()))
	}

	var res *job.Result
	err = app.RunTask(ctx, func(ctx context.Context) error {
		var err error
		res, err = app.Runner.Run(ctx, request())
		return err
	})
	if err != nil {
		t.Fatalf("task failed: %v", err)
	}
	if len(res.Published) != 3 {
		t.Errorf("expected 3 published artifacts, got %v", res.Published)
	}
}

func TestNew_StorageDisabled(t *testing.T) {
	app, err := New(context.Background(), testConfig(t), WithLogger(logger.NewNop()), WithRegistry(fakeRegistry()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer app.Shutdown(context.Background())
	if app.Publisher != nil {
		t.Error("expected no publisher")
	}
	if !strings.Contains(app.summary.String(), "storage=disabled") {
		t.Errorf("expected storage=disabled in summary, got %q", app.summary.String())
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.Provider = config.ProviderONNX
	_, err := New(context.Background(), cfg, WithLogger(logger.NewNop()), WithRegistry(fakeRegistry()))
	if err == nil {
		t.Fatal("expected an error for an unregistered provider")
	}
}

func TestNew_RedisCache(t *testing.T) {
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mini.Close()

	cfg := testConfig(t)
	cfg.Cache.Backend = config.CacheRedis
	cfg.Cache.Redis.Addr = mini.Addr()
	cfg.ApplyDefaults()

	ctx := context.Background()
	app, err := New(ctx, cfg, WithLogger(logger.NewNop()), WithRegistry(fakeRegistry()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer app.Shutdown(ctx)

	names := make([]string, 0, len(app.Dependencies()))
	for _, d := range app.Dependencies() {
		names = append(names, d.Name())
	}
	if !slices.Contains(names, "redis") {
		t.Errorf("expected redis among dependencies, got %v", names)
	}

	if _, err := app.Runner.Run(ctx, request()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(mini.Keys()) == 0 {
		t.Error("expected embeddings to be cached in redis")
	}
}

func TestShutdown_ReverseOrder(t *testing.T) {
	app := &App{Logger: logger.NewNop(), gracefulTimeout: defaultGracefulTimeout}
	var order []string
	boom := errors.New("boom")
	app.OnStop(
		func(context.Context) error { order = append(order, "first"); return nil },
		func(context.Context) error { order = append(order, "second"); return boom },
		func(context.Context) error { order = append(order, "third"); return nil },
	)

	err := app.Shutdown(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected the hook error, got %v", err)
	}
	if want := []string{"third", "second", "first"}; !slices.Equal(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}

	order = nil
	if err := app.Shutdown(context.Background()); err != nil {
		t.Errorf("expected a second shutdown to be a no-op, got %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected no hooks on second shutdown, got %v", order)
	}
}

func TestRunTask_ReturnsTaskError(t *testing.T) {
	app := &App{Logger: logger.NewNop(), gracefulTimeout: defaultGracefulTimeout}
	stopped := false
	app.OnStop(func(context.Context) error { stopped = true; return nil })

	taskErr := errors.New("task failed")
	err := app.RunTask(context.Background(), func(context.Context) error { return taskErr })
	if !errors.Is(err, taskErr) {
		t.Errorf("expected the task error, got %v", err)
	}
	if !stopped {
		t.Error("expected stop hooks to run after the task")
	}
}

func TestSummary(t *testing.T) {
	s := NewSummary("speakerbind", "1.0.0")
	s.Track("embedding", "sidecar")
	s.Track("cache", "memory")
	if got := s.String(); got != "embedding=sidecar cache=memory" {
		t.Errorf("unexpected summary %q", got)
	}
	f := s.Fields()
	if f["version"] != "1.0.0" || f["cache"] != "memory" {
		t.Errorf("unexpected fields %v", f)
	}
}
