// Package vecmath holds the vector arithmetic shared by clustering and
// binding. Embeddings are compared only after L2 normalization, so cosine
// similarity reduces to a dot product.
package vecmath

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Normalize returns a unit-length copy of v. A zero (or non-finite) vector is
// returned as a zero vector of the same dimension.
func Normalize(v []float64) []float64 {
	out := make([]float64, len(v))
	norm := floats.Norm(v, 2)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return out
	}
	floats.ScaleTo(out, 1/norm, v)
	return out
}

// FromFloat32 widens and normalizes a provider vector.
func FromFloat32(v []float32) []float64 {
	wide := make([]float64, len(v))
	for i, x := range v {
		wide[i] = float64(x)
	}
	return Normalize(wide)
}

// Cosine returns the dot product of two unit vectors. Vectors of different
// dimension are treated as dissimilar.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return floats.Dot(a, b)
}

// MergeCentroids returns normalize(na*a + nb*b), the centroid of two
// clusters weighted by their member counts.
func MergeCentroids(a []float64, na int, b []float64, nb int) []float64 {
	sum := make([]float64, len(a))
	floats.AddScaled(sum, float64(na), a)
	floats.AddScaled(sum, float64(nb), b)
	return Normalize(sum)
}

// Median returns the lower median of values, or 0 for an empty slice.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// RMS returns the root mean square of the samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
