package onnx

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestMelFilterbank_Shape(t *testing.T) {
	filters := melFilterbank(512, 80, 16000)
	if len(filters) != 80 {
		t.Fatalf("expected 80 filters, got %d", len(filters))
	}
	for b, f := range filters {
		if len(f) != 257 {
			t.Fatalf("filter %d: expected 257 bins, got %d", b, len(f))
		}
		peak := 0.0
		for _, w := range f {
			if w < 0 || w > 1 {
				t.Fatalf("filter %d: weight %v out of [0,1]", b, w)
			}
			peak = math.Max(peak, w)
		}
		if peak == 0 && b > 2 {
			t.Errorf("filter %d: expected a non-empty triangle", b)
		}
	}
}

func TestMelFrontEnd_Frames(t *testing.T) {
	m := newMelFrontEnd(DefaultMelConfig())
	tests := []struct {
		samples int
		frames  int
	}{
		{100, 1},
		{400, 1},
		{560, 2},
		{48000, 298},
	}
	for _, tc := range tests {
		if got := m.frames(tc.samples); got != tc.frames {
			t.Errorf("frames(%d): expected %d, got %d", tc.samples, tc.frames, got)
		}
	}
}

func TestMelFrontEnd_ComputeMeanNormalized(t *testing.T) {
	m := newMelFrontEnd(DefaultMelConfig())
	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = float32(0.3 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	features, frames := m.compute(samples)
	if len(features) != frames*80 {
		t.Fatalf("expected %d features, got %d", frames*80, len(features))
	}
	for b := 0; b < 80; b++ {
		var sum float64
		for f := 0; f < frames; f++ {
			sum += float64(features[f*80+b])
		}
		if math.Abs(sum/float64(frames)) > 1e-3 {
			t.Fatalf("bin %d: expected zero mean, got %v", b, sum/float64(frames))
		}
	}
}

func TestNewProvider_Validation(t *testing.T) {
	if _, err := NewProvider(Config{}); err == nil {
		t.Error("expected error without model path")
	}
	if _, err := NewProvider(Config{ModelPath: filepath.Join(t.TempDir(), "missing.onnx")}); err == nil {
		t.Error("expected error for missing model file")
	}
}

func TestProvider_ModelIDTracksModelFile(t *testing.T) {
	dir := t.TempDir()
	ids := map[string]string{}
	for name, body := range map[string]string{"a.onnx": "weights-a", "b.onnx": "weights-b", "c.onnx": "weights-a"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		p, err := NewProvider(Config{ModelPath: path})
		if err != nil {
			t.Fatalf("NewProvider(%s) failed: %v", name, err)
		}
		ids[name] = p.ModelID()
	}
	if ids["a.onnx"] == ids["b.onnx"] {
		t.Error("expected different model files to get different ids")
	}
	if ids["a.onnx"] != ids["c.onnx"] {
		t.Errorf("expected identical model files to share an id, got %s and %s", ids["a.onnx"], ids["c.onnx"])
	}
}

func TestFactory_Defaults(t *testing.T) {
	model := filepath.Join(t.TempDir(), "ecapa.onnx")
	if err := os.WriteFile(model, []byte("stub"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err := Factory()(map[string]any{"model_path": model})
	if err != nil {
		t.Fatalf("Factory failed: %v", err)
	}
	if p.WindowSeconds() != 3.0 || p.SampleRate() != 16000 {
		t.Errorf("expected 3s @ 16 kHz, got %vs @ %d", p.WindowSeconds(), p.SampleRate())
	}
	if p.IsAvailable(context.Background()) {
		t.Error("expected provider unavailable before Init")
	}
	if _, err := p.Embed(context.Background(), make([]float32, 48000)); err == nil {
		t.Error("expected Embed to fail before Init")
	}
}
