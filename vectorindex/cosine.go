package vectorindex

import (
	"fmt"
	"math"

	"github.com/poiesic/lumina/core"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different lengths yield core.ErrDimensionMismatch. A zero
// magnitude on either side yields 0.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", core.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}
