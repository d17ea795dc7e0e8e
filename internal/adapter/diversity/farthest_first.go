package diversity

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"alsampler/internal/adapter/vecmath"
	"alsampler/internal/domain"
)

// FarthestFirst greedily selects up to n indices into embeddings, each time
// taking the point whose distance to the closest seed or already-selected
// point is largest. Degenerate embeddings are never selected.
//
// Without valid seeds every valid point starts at distance 1.0, so the first
// pick is the lowest valid index and diversity comes from the later picks.
func FarthestFirst(embeddings, seeds [][]float32, n int, metric domain.Metric) []int {
	if len(embeddings) == 0 || n <= 0 {
		return []int{}
	}

	points, valid := vecmath.NormalizeRows(embeddings)
	seedRows, seedValid := vecmath.NormalizeRows(seeds)

	validSeeds := make([][]float64, 0, len(seedRows))
	for i, s := range seedRows {
		if seedValid[i] {
			validSeeds = append(validSeeds, s)
		}
	}

	minDist := make([]float64, len(points))
	for i, p := range points {
		if !valid[i] {
			minDist[i] = math.Inf(-1)
			continue
		}
		if len(validSeeds) == 0 {
			minDist[i] = 1.0
			continue
		}
		closest := math.Inf(1)
		for _, s := range validSeeds {
			if d := vecmath.CosineToDistance(metric, floats.Dot(p, s)); d < closest {
				closest = d
			}
		}
		minDist[i] = closest
	}

	selected := make([]int, 0, min(n, len(points)))
	for len(selected) < n {
		best := floats.MaxIdx(minDist)
		if math.IsInf(minDist[best], -1) {
			break
		}
		selected = append(selected, best)

		chosen := points[best]
		for i, p := range points {
			if math.IsInf(minDist[i], -1) {
				continue
			}
			if d := vecmath.CosineToDistance(metric, floats.Dot(p, chosen)); d < minDist[i] {
				minDist[i] = d
			}
		}
		minDist[best] = math.Inf(-1)
	}

	return selected
}
