package onnx

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// MelConfig describes the log-mel front end the speaker model was trained on.
type MelConfig struct {
	SampleRate int
	NMels      int
	HopLength  int
	WinLength  int
	NFFT       int
}

// DefaultMelConfig is the 80-bin, 25 ms / 10 ms front end used by common
// speaker encoders at 16 kHz.
func DefaultMelConfig() MelConfig {
	return MelConfig{SampleRate: 16000, NMels: 80, HopLength: 160, WinLength: 400, NFFT: 512}
}

// melFrontEnd computes log-mel filterbank features.
type melFrontEnd struct {
	cfg     MelConfig
	filters [][]float64
	window  []float64
	fft     *fourier.FFT
}

func newMelFrontEnd(cfg MelConfig) *melFrontEnd {
	hann := make([]float64, cfg.WinLength)
	for i := range hann {
		hann[i] = 1
	}
	return &melFrontEnd{
		cfg:     cfg,
		filters: melFilterbank(cfg.NFFT, cfg.NMels, cfg.SampleRate),
		window:  window.Hann(hann),
		fft:     fourier.NewFFT(cfg.NFFT),
	}
}

// frames returns the number of left-aligned frames for n samples.
func (m *melFrontEnd) frames(n int) int {
	if n < m.cfg.WinLength {
		return 1
	}
	return (n-m.cfg.WinLength)/m.cfg.HopLength + 1
}

// compute returns a row-major [frames x nMels] feature matrix with per-bin
// mean subtraction over time.
func (m *melFrontEnd) compute(samples []float32) ([]float32, int) {
	numFrames := m.frames(len(samples))
	nMels := m.cfg.NMels
	out := make([]float32, numFrames*nMels)
	frame := make([]float64, m.cfg.NFFT)
	power := make([]float64, m.cfg.NFFT/2+1)
	var coeffs []complex128

	for f := 0; f < numFrames; f++ {
		start := f * m.cfg.HopLength
		for i := range frame {
			frame[i] = 0
		}
		for i := 0; i < m.cfg.WinLength && start+i < len(samples); i++ {
			frame[i] = float64(samples[start+i]) * m.window[i]
		}
		coeffs = m.fft.Coefficients(coeffs, frame)
		for k := range power {
			re, im := real(coeffs[k]), imag(coeffs[k])
			power[k] = re*re + im*im
		}
		for b := 0; b < nMels; b++ {
			sum := 0.0
			for k, w := range m.filters[b] {
				sum += power[k] * w
			}
			out[f*nMels+b] = float32(math.Log(math.Max(sum, 1e-9)))
		}
	}

	for b := 0; b < nMels; b++ {
		var mean float64
		for f := 0; f < numFrames; f++ {
			mean += float64(out[f*nMels+b])
		}
		mean /= float64(numFrames)
		for f := 0; f < numFrames; f++ {
			out[f*nMels+b] -= float32(mean)
		}
	}
	return out, numFrames
}

// melFilterbank builds HTK-scale triangular filters over nFFT/2+1 bins.
func melFilterbank(nFFT, nMels, sampleRate int) [][]float64 {
	hzToMel := func(hz float64) float64 { return 2595 * math.Log10(1+hz/700) }
	melToHz := func(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

	bins := nFFT/2 + 1
	fMax := float64(sampleRate) / 2
	points := make([]float64, nMels+2)
	top := hzToMel(fMax)
	for i := range points {
		points[i] = melToHz(float64(i) * top / float64(nMels+1))
	}

	filters := make([][]float64, nMels)
	for b := 0; b < nMels; b++ {
		filters[b] = make([]float64, bins)
		lo, mid, hi := points[b], points[b+1], points[b+2]
		for k := 0; k < bins; k++ {
			freq := float64(k) * fMax / float64(bins-1)
			up := (freq - lo) / (mid - lo)
			down := (hi - freq) / (hi - mid)
			filters[b][k] = math.Max(0, math.Min(up, down))
		}
	}
	return filters
}
