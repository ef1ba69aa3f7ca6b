// Package similarity scores target segments against candidate sources and
// aggregates the matches into a ranked verdict.
package similarity

import "math"

// Cosine returns the cosine similarity of a and b clipped to [0,1].
// Opposite vectors are no evidence of copying, so negative values become 0.
// Mismatched or degenerate vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}

	// na*nb is commutative, so Cosine(a, b) == Cosine(b, a) bit for bit
	s := dot / math.Sqrt(na*nb)
	switch {
	case math.IsNaN(s) || s <= 0:
		return 0
	case s >= 1:
		return 1
	}
	return s
}
