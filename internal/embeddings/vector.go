package embeddings

import "math"

// CosineSimilarity computes the cosine similarity of two vectors.
//
// Vectors of unequal length score 0 rather than erroring: ranking must stay
// available even when the store holds records produced with an older model
// dimension. Zero vectors also score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
