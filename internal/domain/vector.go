package domain

import (
	"fmt"
	"math"
)

// Cosine returns the cosine similarity of two vectors in [-1, 1].
// A dimension mismatch is a configuration problem, not a bad candidate,
// so it is reported as ErrVectorDimMismatch rather than skipped.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrVectorDimMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
