package embedding

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/logger"
	"github.com/kbukum/speakerbind/provider"
)

// CacheKey identifies one embedded window. Two windows with the same key
// produce the same vector.
type CacheKey struct {
	Provider string
	// Model is the provider's model id, empty when it reports none.
	Model    string
	SourceID string
	// Content is the Audio.Digest of the samples the window was cut from.
	Content       string
	StartSample   int
	WindowSamples int
	SampleRate    int
	Tapered       bool
	TaperFraction float64
}

// String renders the canonical store key. The taper fraction is written
// with the shortest exact float encoding.
func (k CacheKey) String() string {
	taper := "none"
	if k.Tapered {
		taper = strconv.FormatFloat(k.TaperFraction, 'g', -1, 64)
	}
	return fmt.Sprintf("speakerbind:emb:%s:%s:%s:%s:%d:%d:%d:%s",
		k.Provider, k.Model, k.SourceID, k.Content, k.StartSample, k.WindowSamples, k.SampleRate, taper)
}

// Cache is a caller-owned embedding cache over a typed ContextStore.
// Backend failures are logged and treated as misses; the cache never
// changes a result.
type Cache struct {
	store provider.ContextStore[[]float64]
	ttl   time.Duration
	log   *logger.Logger
}

// NewCache wraps store. ttl of 0 means entries never expire.
func NewCache(store provider.ContextStore[[]float64], ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl, log: logger.Get("embedding-cache")}
}

// Get returns the cached unit vector for key.
func (c *Cache) Get(ctx context.Context, key CacheKey) ([]float64, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}
	vec, err := c.store.Load(ctx, key.String())
	if err != nil {
		c.log.Warn("cache lookup bypassed", logger.ErrorFields("load", errors.CacheError("load", err)))
		return nil, false
	}
	if vec == nil || len(*vec) == 0 {
		return nil, false
	}
	return *vec, true
}

// Put stores the unit vector for key.
func (c *Cache) Put(ctx context.Context, key CacheKey, vec []float64) {
	if c == nil || c.store == nil {
		return
	}
	if err := c.store.Save(ctx, key.String(), &vec, c.ttl); err != nil {
		c.log.Warn("cache write bypassed", logger.ErrorFields("save", errors.CacheError("save", err)))
	}
}
