package vecmath

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"alsampler/internal/domain"
)

// NormalizeRows L2-normalises each row into float64. Rows below
// domain.MinEmbeddingNorm are returned as nil and flagged invalid.
func NormalizeRows(vectors [][]float32) ([][]float64, []bool) {
	valid, norms := FilterValid(vectors)
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		if !valid[i] {
			continue
		}
		row := ToFloat64(v)
		floats.Scale(1/norms[i], row)
		out[i] = row
	}
	return out, valid
}

// CosineToSimilarity maps a cosine between unit vectors to a similarity
// under the given metric. Euclidean similarity is 1/(1+d) where d is the
// distance between the unit vectors.
func CosineToSimilarity(metric domain.Metric, cos float64) float64 {
	if metric == domain.MetricEuclidean {
		return 1 / (1 + math.Sqrt(math.Max(0, 2-2*cos)))
	}
	return cos
}

// CosineToDistance maps a cosine between unit vectors to a distance under
// the given metric.
func CosineToDistance(metric domain.Metric, cos float64) float64 {
	cos = clampCosine(cos)
	if metric == domain.MetricEuclidean {
		return math.Sqrt(math.Max(0, 2-2*cos))
	}
	return 1 - cos
}

// ComputeSimilarities returns, for each candidate, its maximum similarity to
// any valid query. Invalid candidates, and every candidate when there is no
// valid query, get domain.InvalidSimilarity.
func ComputeSimilarities(queries, candidates [][]float32, metric domain.Metric) []float64 {
	out := make([]float64, len(candidates))
	for i := range out {
		out[i] = domain.InvalidSimilarity
	}
	if len(candidates) == 0 || len(queries) == 0 {
		return out
	}

	qn, qValid := NormalizeRows(queries)
	validQueries := make([][]float64, 0, len(qn))
	for i, q := range qn {
		if qValid[i] {
			validQueries = append(validQueries, q)
		}
	}
	if len(validQueries) == 0 {
		return out
	}

	cn, cValid := NormalizeRows(candidates)
	for i, c := range cn {
		if !cValid[i] {
			continue
		}
		best := math.Inf(-1)
		for _, q := range validQueries {
			if cos := clampCosine(floats.Dot(q, c)); cos > best {
				best = cos
			}
		}
		out[i] = CosineToSimilarity(metric, best)
	}
	return out
}

// ComputeCosineSimilarities is ComputeSimilarities with the cosine metric.
func ComputeCosineSimilarities(queries, candidates [][]float32) []float64 {
	return ComputeSimilarities(queries, candidates, domain.MetricCosine)
}

// clampCosine keeps rounding error from pushing a cosine outside [-1, 1].
func clampCosine(c float64) float64 {
	return math.Max(-1, math.Min(1, c))
}
