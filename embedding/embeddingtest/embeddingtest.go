// Package embeddingtest provides deterministic embedding providers for tests.
package embeddingtest

import (
	"context"
	"sync"

	"github.com/kbukum/speakerbind/embedding"
)

// FuncProvider is an embedding.Provider backed by a plain function.
type FuncProvider struct {
	ProviderName string
	Window       float64
	Rate         int
	Fn           func(window []float32) ([]float32, error)

	mu    sync.Mutex
	calls int
}

var _ embedding.Provider = (*FuncProvider)(nil)

// Name returns the provider name, "fake" by default.
func (p *FuncProvider) Name() string {
	if p.ProviderName == "" {
		return "fake"
	}
	return p.ProviderName
}

// IsAvailable always reports true.
func (p *FuncProvider) IsAvailable(context.Context) bool { return true }

// WindowSeconds returns the declared window.
func (p *FuncProvider) WindowSeconds() float64 { return p.Window }

// SampleRate returns the declared sample rate.
func (p *FuncProvider) SampleRate() int { return p.Rate }

// Embed calls Fn.
func (p *FuncProvider) Embed(_ context.Context, window []float32) ([]float32, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.Fn(window)
}

// Calls returns how many windows were embedded.
func (p *FuncProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// BatchFuncProvider adds EmbedBatch on top of FuncProvider and records the
// batch sizes it received.
type BatchFuncProvider struct {
	FuncProvider
	Batches []int
}

var _ embedding.BatchProvider = (*BatchFuncProvider)(nil)

// EmbedBatch embeds each window with Fn.
func (p *BatchFuncProvider) EmbedBatch(ctx context.Context, windows [][]float32) ([][]float32, error) {
	p.Batches = append(p.Batches, len(windows))
	out := make([][]float32, len(windows))
	for i, w := range windows {
		vec, err := p.Embed(ctx, w)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// SignProvider maps each window to one of two nearly orthogonal directions
// by the sign of its sample sum: positive audio embeds near +x, negative
// near +y and silence to a third axis. Short windows are expected to be
// zero-padded.
func SignProvider(window float64, rate int) *FuncProvider {
	return &FuncProvider{ProviderName: "sign", Window: window, Rate: rate, Fn: signVector}
}

// SignBatchProvider is SignProvider with batch support.
func SignBatchProvider(window float64, rate int) *BatchFuncProvider {
	return &BatchFuncProvider{FuncProvider: FuncProvider{ProviderName: "sign-batch", Window: window, Rate: rate, Fn: signVector}}
}

func signVector(w []float32) ([]float32, error) {
	var sum float64
	for _, s := range w {
		sum += float64(s)
	}
	switch {
	case sum > 0:
		return []float32{1, 0.05, 0}, nil
	case sum < 0:
		return []float32{0.05, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

// Alternating builds audio that alternates between +amp and -amp every
// segment seconds, starting positive.
func Alternating(seconds, segment float64, rate int, amp float32) []float32 {
	n := int(seconds * float64(rate))
	per := int(segment * float64(rate))
	out := make([]float32, n)
	for i := range out {
		if (i/per)%2 == 0 {
			out[i] = amp
		} else {
			out[i] = -amp
		}
	}
	return out
}
