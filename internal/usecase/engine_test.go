package usecase

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"

	"alsampler/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine(mutate func(*EngineOptions)) *Engine {
	opts := DefaultEngineOptions()
	opts.Workers = 2
	if mutate != nil {
		mutate(&opts)
	}
	return NewEngine(opts, testLogger())
}

func randomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = float32(rng.NormFloat64())
	}
	return v
}

func randomPool(n, dim int, seed int64) []domain.EmbeddingVector {
	rng := rand.New(rand.NewSource(seed))
	pool := make([]domain.EmbeddingVector, n)
	for i := range pool {
		pool[i] = domain.EmbeddingVector{ID: fmt.Sprintf("clip-%03d", i), Vector: randomVector(rng, dim)}
	}
	return pool
}

// clusteredPool puts the first n/2 clips near +axis 0 and the rest near +axis 1.
func clusteredPool(n, dim int, seed int64) []domain.EmbeddingVector {
	rng := rand.New(rand.NewSource(seed))
	pool := make([]domain.EmbeddingVector, n)
	for i := range pool {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(0.3 * rng.NormFloat64())
		}
		if i < n/2 {
			v[0] += 1
		} else {
			v[1] += 1
		}
		pool[i] = domain.EmbeddingVector{ID: fmt.Sprintf("clip-%03d", i), Vector: v}
	}
	return pool
}

func floatEquals(a, b, tolerance float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < tolerance
}
