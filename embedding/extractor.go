package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/pipeline"
	"github.com/kbukum/speakerbind/vecmath"
)

// ExtractorConfig controls windowing and preprocessing.
type ExtractorConfig struct {
	// WindowSeconds overrides the provider window; 0 uses the provider's.
	WindowSeconds float64
	HopSeconds    float64
	// MinWindowRMS drops quieter windows and short trailing windows when > 0.
	MinWindowRMS          float64
	TaperMaxWindowSeconds float64
	TaperFraction         float64
	DisableTaper          bool
	BatchSize             int
}

// ExtractStats counts what happened to the generated windows.
type ExtractStats struct {
	Generated     int  `json:"generated" yaml:"generated"`
	OutsideGate   int  `json:"outside_gate" yaml:"outside_gate"`
	LowEnergy     int  `json:"low_energy" yaml:"low_energy"`
	ShortDropped  int  `json:"short_dropped" yaml:"short_dropped"`
	ZeroPadded    int  `json:"zero_padded" yaml:"zero_padded"`
	Embedded      int  `json:"embedded" yaml:"embedded"`
	CacheHits     int  `json:"cache_hits" yaml:"cache_hits"`
	Tapered       bool `json:"tapered" yaml:"tapered"`
	WindowSamples int  `json:"window_samples" yaml:"window_samples"`
	HopSamples    int  `json:"hop_samples" yaml:"hop_samples"`
}

// ExtractResult is the ordered embedding sequence plus window accounting.
type ExtractResult struct {
	Embeddings []WindowEmbedding
	Stats      ExtractStats
}

// Extractor produces window embeddings from gated audio.
type Extractor struct {
	provider Provider
	cache    *Cache
	cfg      ExtractorConfig
	log      *logger.Logger
}

// NewExtractor creates an extractor over p. cache may be nil.
func NewExtractor(p Provider, cache *Cache, cfg ExtractorConfig) *Extractor {
	return &Extractor{provider: p, cache: cache, cfg: cfg, log: logger.Get("embedding")}
}

// pending is a window on its way through the extraction pipeline.
type pending struct {
	window  Window
	key     CacheKey
	samples []float32
	cached  []float64
}

// Extract embeds every window whose midpoint satisfies inGate, in time order.
// Any provider failure aborts the whole extraction.
func (e *Extractor) Extract(ctx context.Context, audio Audio, inGate func(t float64) bool) (*ExtractResult, error) {
	res := &ExtractResult{}
	if len(audio.Samples) == 0 {
		return res, nil
	}
	if audio.SampleRate != e.provider.SampleRate() {
		return nil, errors.AudioUnreadable(
			fmt.Sprintf("sample rate %d Hz does not match provider %s (%d Hz)", audio.SampleRate, e.provider.Name(), e.provider.SampleRate()), nil)
	}

	windowSeconds, err := e.windowSeconds()
	if err != nil {
		return nil, err
	}
	stats := &res.Stats
	stats.WindowSamples = SecondsToSamples(windowSeconds, audio.SampleRate)
	stats.HopSamples = SecondsToSamples(e.cfg.HopSeconds, audio.SampleRate)
	if stats.WindowSamples <= 0 || stats.HopSamples <= 0 {
		return nil, errors.InvalidConfig("window and hop must each cover at least one sample")
	}
	stats.Tapered = !e.cfg.DisableTaper && windowSeconds <= e.cfg.TaperMaxWindowSeconds

	useCache := e.cache != nil && audio.SourceID != ""
	base := CacheKey{
		Provider:   e.provider.Name(),
		Model:      ModelID(e.provider),
		SourceID:   audio.SourceID,
		SampleRate: audio.SampleRate,
		Tapered:    stats.Tapered,
	}
	if useCache {
		base.Content = audio.Digest()
	}
	if stats.Tapered {
		base.TaperFraction = e.cfg.TaperFraction
	}

	windows := GenerateWindows(len(audio.Samples), audio.SampleRate, stats.WindowSamples, stats.HopSamples)
	stats.Generated = len(windows)

	src := pipeline.FromSlice(windows)
	gated := pipeline.Filter(src, func(w Window) bool {
		if inGate(w.Midpoint) {
			return true
		}
		stats.OutsideGate++
		return false
	})
	energetic := pipeline.Filter(gated, func(w Window) bool {
		if e.cfg.MinWindowRMS <= 0 {
			if w.Short() {
				stats.ZeroPadded++
			}
			return true
		}
		if w.Short() {
			stats.ShortDropped++
			return false
		}
		if w.RMS(audio.Samples) < e.cfg.MinWindowRMS {
			stats.LowEnergy++
			return false
		}
		return true
	})
	prepared := pipeline.Map(energetic, func(ctx context.Context, w Window) (pending, error) {
		p := pending{window: w, key: base}
		p.key.StartSample = w.StartSample
		p.key.WindowSamples = w.Length
		if useCache {
			if vec, ok := e.cache.Get(ctx, p.key); ok {
				p.cached = vec
				stats.CacheHits++
				return p, nil
			}
		}
		p.samples = w.Slice(audio.Samples)
		if stats.Tapered {
			Taper(p.samples, e.cfg.TaperFraction)
		}
		return p, nil
	})
	batches := pipeline.Batch(prepared, e.cfg.BatchSize)
	embedded := pipeline.FlatMap(batches, func(ctx context.Context, batch []pending) (pipeline.Iterator[WindowEmbedding], error) {
		out, err := e.embedBatch(ctx, useCache, batch)
		if err != nil {
			return nil, err
		}
		return pipeline.SliceIterator(out), nil
	})

	res.Embeddings, err = pipeline.Collect(ctx, embedded)
	if err != nil {
		return nil, err
	}
	if err := checkDimensions(res.Embeddings); err != nil {
		return nil, err
	}
	stats.Embedded = len(res.Embeddings)

	e.log.Debug("windows embedded", logger.Fields(
		"generated", stats.Generated,
		"embedded", stats.Embedded,
		"outside_gate", stats.OutsideGate,
		"low_energy", stats.LowEnergy,
		"short_dropped", stats.ShortDropped,
		"cache_hits", stats.CacheHits,
		"tapered", stats.Tapered,
	))
	return res, nil
}

func (e *Extractor) windowSeconds() (float64, error) {
	declared := e.provider.WindowSeconds()
	configured := e.cfg.WindowSeconds
	switch {
	case configured <= 0 && declared <= 0:
		return 0, errors.InvalidConfig(fmt.Sprintf("provider %s declares no window length; set diarization.window_seconds", e.provider.Name()))
	case configured <= 0:
		return declared, nil
	case declared > 0 && math.Abs(configured-declared) > 1e-9:
		return 0, errors.InvalidConfig(fmt.Sprintf("diarization.window_seconds %.3f conflicts with provider %s window %.3f", configured, e.provider.Name(), declared))
	default:
		return configured, nil
	}
}

// embedBatch resolves a batch in order, sending only cache misses to the provider.
func (e *Extractor) embedBatch(ctx context.Context, useCache bool, batch []pending) ([]WindowEmbedding, error) {
	var missIdx []int
	var missSamples [][]float32
	for i, p := range batch {
		if p.cached == nil {
			missIdx = append(missIdx, i)
			missSamples = append(missSamples, p.samples)
		}
	}

	vectors, err := e.embedMisses(ctx, batch, missIdx, missSamples)
	if err != nil {
		return nil, err
	}

	out := make([]WindowEmbedding, len(batch))
	next := 0
	for i, p := range batch {
		vec := p.cached
		if vec == nil {
			vec = vecmath.FromFloat32(vectors[next])
			next++
			if useCache {
				e.cache.Put(ctx, p.key, vec)
			}
		}
		out[i] = WindowEmbedding{Midpoint: p.window.Midpoint, StartSample: p.window.StartSample, Vector: vec}
	}
	return out, nil
}

func (e *Extractor) embedMisses(ctx context.Context, batch []pending, missIdx []int, windows [][]float32) ([][]float32, error) {
	if len(windows) == 0 {
		return nil, nil
	}
	if bp, ok := e.provider.(BatchProvider); ok && len(windows) > 1 {
		vectors, err := bp.EmbedBatch(ctx, windows)
		if err != nil {
			return nil, errors.EmbeddingFailed(e.provider.Name(), batch[missIdx[0]].window.StartSample, err)
		}
		if len(vectors) != len(windows) {
			return nil, errors.EmbeddingFailed(e.provider.Name(), batch[missIdx[0]].window.StartSample,
				fmt.Errorf("batch returned %d vectors for %d windows", len(vectors), len(windows)))
		}
		return vectors, nil
	}
	vectors := make([][]float32, len(windows))
	for i, w := range windows {
		vec, err := e.provider.Embed(ctx, w)
		if err != nil {
			return nil, errors.EmbeddingFailed(e.provider.Name(), batch[missIdx[i]].window.StartSample, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func checkDimensions(embs []WindowEmbedding) error {
	if len(embs) == 0 {
		return nil
	}
	dim := len(embs[0].Vector)
	if dim == 0 {
		return errors.EmbeddingDimension(1, 0)
	}
	for _, emb := range embs[1:] {
		if len(emb.Vector) != dim {
			return errors.EmbeddingDimension(dim, len(emb.Vector))
		}
	}
	return nil
}
