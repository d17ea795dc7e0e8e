package usecase

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"alsampler/internal/domain"
)

// BuildScoreDistribution bins finite scores into domain.DistributionBins
// uniform bins over [0, 1]. Scores at or above 0.5 count as positive.
// A nil scores slice yields a zero-filled distribution.
func BuildScoreDistribution(cat domain.CategoryID, scores []float64) domain.ScoreDistribution {
	dist := domain.ScoreDistribution{Category: cat}

	finite := make([]float64, 0, len(scores))
	for _, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		s = math.Max(0, math.Min(1, s))
		bin := min(int(s*domain.DistributionBins), domain.DistributionBins-1)
		dist.Bins[bin]++
		if s >= 0.5 {
			dist.PositiveCount++
		} else {
			dist.NegativeCount++
		}
		finite = append(finite, s)
	}

	dist.Total = len(finite)
	if len(finite) > 0 {
		dist.MeanScore = stat.Mean(finite, nil)
	}
	return dist
}
