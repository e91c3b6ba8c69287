package embedding

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"

	"github.com/kbukum/speakerbind/vecmath"
)

// Window is one analysis window over the audio, in samples and seconds.
type Window struct {
	Index       int
	StartSample int
	// Length is the nominal window length in samples.
	Length int
	// Available is the number of real samples inside the window; it is
	// smaller than Length only for the trailing window.
	Available int
	Midpoint  float64
}

// Short reports whether the window runs past the end of the audio.
func (w Window) Short() bool { return w.Available < w.Length }

// GenerateWindows lays uniform windows of length samples every hop samples
// over total samples. Full windows are emitted while they fit; one trailing
// short window covers the remainder when the next hop still starts inside the
// audio. The midpoint is the center of the covered samples.
func GenerateWindows(total, sampleRate, length, hop int) []Window {
	if total <= 0 || sampleRate <= 0 || length <= 0 || hop <= 0 {
		return nil
	}
	var windows []Window
	start := 0
	for ; start+length <= total; start += hop {
		windows = append(windows, newWindow(len(windows), start, length, length, sampleRate))
	}
	if start < total && (len(windows) == 0 || windows[len(windows)-1].StartSample+length < total) {
		windows = append(windows, newWindow(len(windows), start, length, total-start, sampleRate))
	}
	return windows
}

func newWindow(index, start, length, available, sampleRate int) Window {
	return Window{
		Index:       index,
		StartSample: start,
		Length:      length,
		Available:   available,
		Midpoint:    (float64(start) + float64(available)/2) / float64(sampleRate),
	}
}

// Slice copies the window's samples out of audio, zero-padding a short
// trailing window to the nominal length.
func (w Window) Slice(samples []float32) []float32 {
	out := make([]float32, w.Length)
	end := min(w.StartSample+w.Length, len(samples))
	if w.StartSample < end {
		copy(out, samples[w.StartSample:end])
	}
	return out
}

// RMS returns the energy of the real samples in the window.
func (w Window) RMS(samples []float32) float64 {
	end := min(w.StartSample+w.Available, len(samples))
	if w.StartSample >= end {
		return 0
	}
	return vecmath.RMS(samples[w.StartSample:end])
}

// Taper applies a symmetric Tukey taper in place. fraction is the share of
// the window covered by the two cosine ramps combined.
func Taper(samples []float32, fraction float64) {
	if len(samples) < 3 || fraction <= 0 {
		return
	}
	seq := make([]float64, len(samples))
	for i := range seq {
		seq[i] = 1
	}
	window.Tukey{Alpha: math.Min(fraction, 1)}.Transform(seq)
	for i := range samples {
		samples[i] = float32(float64(samples[i]) * seq[i])
	}
}

// SecondsToSamples converts a duration to a whole number of samples.
func SecondsToSamples(seconds float64, sampleRate int) int {
	return int(math.Round(seconds * float64(sampleRate)))
}
