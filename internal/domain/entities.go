package domain

import (
	"fmt"
	"strings"
	"time"
)

// MinEmbeddingNorm is the smallest L2 norm an embedding may have and still
// take part in similarity computation.
const MinEmbeddingNorm = 1e-6

// InvalidSimilarity is emitted for candidates that cannot be scored.
const InvalidSimilarity = -1.0

// DistributionBins is the number of uniform histogram bins over [0, 1].
const DistributionBins = 20

// CategoryID identifies a target sound-event category.
type CategoryID int64

// EmbeddingVector is a clip embedding. It is treated as a value and never mutated.
type EmbeddingVector struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
}

// ReferenceSet maps a target category to its seed embeddings.
type ReferenceSet map[CategoryID][]EmbeddingVector

// LabeledSample is a human label for one clip.
type LabeledSample struct {
	Embedding  EmbeddingVector
	Categories []CategoryID
	Negative   bool
}

// HasCategory reports whether the sample was assigned to c.
func (s LabeledSample) HasCategory(c CategoryID) bool {
	for _, cat := range s.Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// Metric selects how embedding similarity is measured.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
)

// ParseMetric maps a metric name to a Metric. Unknown names fall back to cosine.
func ParseMetric(s string) Metric {
	if strings.EqualFold(s, string(MetricEuclidean)) {
		return MetricEuclidean
	}
	return MetricCosine
}

// SampleType tags why a clip was proposed for labelling.
type SampleType string

const (
	SampleEasyPositive   SampleType = "easy_positive"
	SampleBoundary       SampleType = "boundary"
	SampleOthers         SampleType = "others"
	SampleActiveLearning SampleType = "active_learning"
)

// SampleRecord is one proposed clip. The engine creates it; callers persist it.
type SampleRecord struct {
	ClipID         string      `json:"clip_id"`
	Score          float64     `json:"score"`
	Type           SampleType  `json:"sample_type"`
	SourceCategory *CategoryID `json:"source_category_id"`
	DatasetRank    *int        `json:"dataset_rank"`
}

// CategoryMetrics summarises training for one category in one iteration.
type CategoryMetrics struct {
	Category       CategoryID  `json:"category_id"`
	PositiveCount  int         `json:"positive_count"`
	NegativeCount  int         `json:"negative_count"`
	Trained        bool        `json:"trained"`
	Degenerate     bool        `json:"degenerate"`
	Strategy       string      `json:"strategy,omitempty"`
	C              float64     `json:"c,omitempty"`
	GridScores     []GridScore `json:"grid_scores,omitempty"`
	UnlabeledUsed  int         `json:"unlabeled_used"`
	UncertainCount int         `json:"uncertain_count"`
	Skipped        string      `json:"skipped,omitempty"`
}

// GridScore is the held-out F1 reached with one regularisation strength.
type GridScore struct {
	C  float64 `json:"c"`
	F1 float64 `json:"f1"`
}

// ScoreDistribution is a per-category histogram of classifier scores.
type ScoreDistribution struct {
	Category      CategoryID            `json:"category_id"`
	Bins          [DistributionBins]int `json:"bins"`
	PositiveCount int                   `json:"positive_count"`
	NegativeCount int                   `json:"negative_count"`
	MeanScore     float64               `json:"mean_score"`
	Total         int                   `json:"total"`
}

// ActiveLearningConfig holds the sampling knobs. Zero values are not
// defaults; start from DefaultActiveLearningConfig.
type ActiveLearningConfig struct {
	EasyPositiveK              int     `yaml:"easy_positive_k"`
	BoundaryN                  int     `yaml:"boundary_n"`
	BoundaryM                  int     `yaml:"boundary_m"`
	OthersP                    int     `yaml:"others_p"`
	UncertaintyLow             float64 `yaml:"uncertainty_low"`
	UncertaintyHigh            float64 `yaml:"uncertainty_high"`
	SamplesPerIteration        int     `yaml:"samples_per_iteration"`
	MaxFarthestFirstCandidates int     `yaml:"max_farthest_first_candidates"`
}

// DefaultActiveLearningConfig returns the stock sampling configuration.
func DefaultActiveLearningConfig() ActiveLearningConfig {
	return ActiveLearningConfig{
		EasyPositiveK:              5,
		BoundaryN:                  200,
		BoundaryM:                  10,
		OthersP:                    20,
		UncertaintyLow:             0.25,
		UncertaintyHigh:            0.75,
		SamplesPerIteration:        20,
		MaxFarthestFirstCandidates: 1000,
	}
}

// Validate checks counts are non-negative and the uncertainty band lies in [0, 1].
func (c ActiveLearningConfig) Validate() error {
	counts := []struct {
		name string
		v    int
	}{
		{"easy_positive_k", c.EasyPositiveK},
		{"boundary_n", c.BoundaryN},
		{"boundary_m", c.BoundaryM},
		{"others_p", c.OthersP},
		{"samples_per_iteration", c.SamplesPerIteration},
		{"max_farthest_first_candidates", c.MaxFarthestFirstCandidates},
	}
	for _, f := range counts {
		if f.v < 0 {
			return fmt.Errorf("%s must be >= 0, got %d", f.name, f.v)
		}
	}
	if c.UncertaintyLow < 0 || c.UncertaintyHigh > 1 || c.UncertaintyLow > c.UncertaintyHigh {
		return fmt.Errorf("uncertainty band must satisfy 0 <= low <= high <= 1, got [%g, %g]",
			c.UncertaintyLow, c.UncertaintyHigh)
	}
	return nil
}

// Session is one annotator's labelling effort over a dataset.
type Session struct {
	ID        string       `json:"id"`
	Dataset   string       `json:"dataset"`
	Targets   []CategoryID `json:"targets"`
	CreatedAt time.Time    `json:"created_at"`
}
