package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/kbukum/speakerbind/provider"
)

// Provider is the interface embedding backends must implement.
type Provider interface {
	provider.Provider // embeds Name() and IsAvailable()

	// WindowSeconds is the fixed window length the model expects. Zero means
	// the provider accepts any window length.
	WindowSeconds() float64
	// SampleRate is the sample rate the model expects, in Hz.
	SampleRate() int
	// Embed returns the vector for one mono window.
	Embed(ctx context.Context, window []float32) ([]float32, error)
}

// BatchProvider is optionally implemented by providers that embed several
// windows in one request. Results are returned in input order.
type BatchProvider interface {
	Provider
	EmbedBatch(ctx context.Context, windows [][]float32) ([][]float32, error)
}

// ModelIdentifier is optionally implemented by providers whose vectors
// depend on a swappable model. The id is part of every cache key, so two
// models behind the same provider name never share cached vectors.
type ModelIdentifier interface {
	ModelID() string
}

// ModelID returns p's model id, or "" when p does not report one.
func ModelID(p Provider) string {
	if m, ok := p.(ModelIdentifier); ok {
		return m.ModelID()
	}
	return ""
}

// Audio is mono PCM at a fixed sample rate.
type Audio struct {
	// SourceID names the audio for caching; empty disables the cache. Cache
	// keys also carry Digest, so reusing a name for new audio is safe.
	SourceID   string
	SampleRate int
	Samples    []float32
}

// Duration returns the audio length in seconds.
func (a Audio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.SampleRate)
}

// Digest is the hex SHA-256 of the sample rate and the raw sample bits.
func (a Audio) Digest() string {
	h := sha256.New()
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(a.SampleRate))
	h.Write(buf[:])
	for _, s := range a.Samples {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(s))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// WindowEmbedding is the unit-normalized vector for one analysis window.
type WindowEmbedding struct {
	Midpoint    float64   `json:"midpoint"`
	StartSample int       `json:"start_sample"`
	Vector      []float64 `json:"-"`
}
