package embedding

import (
	"math"
	"testing"
)

func TestGenerateWindows(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		length    int
		hop       int
		starts    []int
		lastShort bool
	}{
		{"exact fit", 40, 10, 10, []int{0, 10, 20, 30}, false},
		{"overlap exact", 30, 10, 5, []int{0, 5, 10, 15, 20}, false},
		{"trailing short", 35, 10, 10, []int{0, 10, 20, 30}, true},
		{"shorter than window", 4, 10, 5, []int{0}, true},
		{"hop beyond end", 25, 10, 15, []int{0, 15}, false},
		{"empty", 0, 10, 5, nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := GenerateWindows(tc.total, 10, tc.length, tc.hop)
			if len(got) != len(tc.starts) {
				t.Fatalf("expected %d windows, got %d", len(tc.starts), len(got))
			}
			for i, w := range got {
				if w.StartSample != tc.starts[i] {
					t.Errorf("window %d: expected start %d, got %d", i, tc.starts[i], w.StartSample)
				}
				if w.Index != i {
					t.Errorf("window %d: expected index %d, got %d", i, i, w.Index)
				}
			}
			if len(got) > 0 && got[len(got)-1].Short() != tc.lastShort {
				t.Errorf("expected last window short=%v", tc.lastShort)
			}
		})
	}
}

func TestWindowMidpoint_ShortUsesCoveredSpan(t *testing.T) {
	got := GenerateWindows(35, 10, 10, 10)
	if math.Abs(got[0].Midpoint-0.5) > 1e-12 {
		t.Errorf("expected first midpoint 0.5, got %v", got[0].Midpoint)
	}
	if math.Abs(got[3].Midpoint-3.25) > 1e-12 {
		t.Errorf("expected trailing midpoint 3.25, got %v", got[3].Midpoint)
	}
}

func TestWindowSlice_ZeroPads(t *testing.T) {
	samples := []float32{1, 2, 3, 4, 5}
	w := Window{StartSample: 3, Length: 4, Available: 2}
	got := w.Slice(samples)
	want := []float32{4, 5, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestWindowRMS_IgnoresPadding(t *testing.T) {
	samples := []float32{0, 0, 0.5, -0.5}
	w := Window{StartSample: 2, Length: 4, Available: 2}
	if got := w.RMS(samples); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("expected 0.5, got %v", got)
	}
}

func TestTaper(t *testing.T) {
	samples := make([]float32, 101)
	for i := range samples {
		samples[i] = 1
	}
	Taper(samples, 0.2)

	if samples[0] != 0 || samples[100] != 0 {
		t.Errorf("expected zero edges, got %v and %v", samples[0], samples[100])
	}
	if samples[50] != 1 {
		t.Errorf("expected untouched center, got %v", samples[50])
	}
	for i := 0; i < 50; i++ {
		if samples[i] != samples[100-i] {
			t.Fatalf("expected symmetric taper at %d: %v vs %v", i, samples[i], samples[100-i])
		}
	}
}

func TestTaper_ZeroFractionNoop(t *testing.T) {
	samples := []float32{1, 1, 1, 1}
	Taper(samples, 0)
	for _, s := range samples {
		if s != 1 {
			t.Fatalf("expected no change, got %v", samples)
		}
	}
}

func TestSecondsToSamples(t *testing.T) {
	if got := SecondsToSamples(0.75, 16000); got != 12000 {
		t.Errorf("expected 12000, got %d", got)
	}
}
