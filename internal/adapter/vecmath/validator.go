package vecmath

import (
	"gonum.org/v1/gonum/floats"

	"alsampler/internal/domain"
)

// FilterValid computes the L2 norm of every row and marks rows whose norm
// reaches domain.MinEmbeddingNorm as valid. Near-zero rows come from silent
// or corrupted segments and would otherwise produce spurious similarities.
func FilterValid(vectors [][]float32) ([]bool, []float64) {
	valid := make([]bool, len(vectors))
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		norms[i] = floats.Norm(ToFloat64(v), 2)
		valid[i] = norms[i] >= domain.MinEmbeddingNorm
	}
	return valid, norms
}

// IsValid reports whether one vector passes FilterValid.
func IsValid(v []float32) bool {
	return floats.Norm(ToFloat64(v), 2) >= domain.MinEmbeddingNorm
}

// FilterValidEmbeddings keeps only the embeddings that pass FilterValid.
func FilterValidEmbeddings(items []domain.EmbeddingVector) []domain.EmbeddingVector {
	out := make([]domain.EmbeddingVector, 0, len(items))
	for _, item := range items {
		if IsValid(item.Vector) {
			out = append(out, item)
		}
	}
	return out
}

// ToFloat64 widens a float32 vector.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// Vectors extracts the raw vectors of a slice of embeddings.
func Vectors(items []domain.EmbeddingVector) [][]float32 {
	out := make([][]float32, len(items))
	for i, item := range items {
		out[i] = item.Vector
	}
	return out
}
