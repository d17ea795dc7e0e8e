package usecase

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"alsampler/internal/adapter/classifier"
	"alsampler/internal/adapter/vecmath"
	"alsampler/internal/domain"
)

// IterationResult is the output of one active-learning round.
type IterationResult struct {
	Samples       []domain.SampleRecord
	Metrics       map[domain.CategoryID]domain.CategoryMetrics
	Distributions map[domain.CategoryID]domain.ScoreDistribution
}

type categoryOutcome struct {
	metrics domain.CategoryMetrics
	scores  []float64
}

// RunIteration trains one classifier per target category from the full
// label history, scores the pool minus exclude, and samples uniformly from
// clips whose score lies in the uncertainty band. A category that cannot
// be trained is logged and reported with zero metrics; it never aborts the
// round.
func (e *Engine) RunIteration(
	labels []domain.LabeledSample,
	targets []domain.CategoryID,
	pool []domain.EmbeddingVector,
	exclude map[string]struct{},
) (*IterationResult, error) {
	cfg := e.opts.Sampling
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	targets = uniqueSorted(targets)
	candidates := make([]domain.EmbeddingVector, 0, len(pool))
	for _, item := range pool {
		if _, skip := exclude[item.ID]; !skip {
			candidates = append(candidates, item)
		}
	}
	candVecs := vecmath.Vectors(candidates)
	unlabeled := e.unlabeledForTraining(candVecs)

	outcomes := make([]categoryOutcome, len(targets))
	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i, cat := range targets {
		i, cat := i, cat
		g.Go(func() error {
			outcomes[i] = e.trainAndScore(cat, labels, candVecs, unlabeled)
			return nil
		})
	}
	_ = g.Wait()

	result := &IterationResult{
		Metrics:       make(map[domain.CategoryID]domain.CategoryMetrics, len(targets)),
		Distributions: make(map[domain.CategoryID]domain.ScoreDistribution, len(targets)),
	}

	type uncertain struct {
		idx   int
		score float64
		cat   domain.CategoryID
	}
	var band []uncertain
	seen := make(map[string]struct{})
	for i, cat := range targets {
		out := outcomes[i]
		for idx, s := range out.scores {
			if s < cfg.UncertaintyLow || s > cfg.UncertaintyHigh {
				continue
			}
			out.metrics.UncertainCount++
			id := candidates[idx].ID
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			band = append(band, uncertain{idx: idx, score: s, cat: cat})
		}
		result.Metrics[cat] = out.metrics
		result.Distributions[cat] = BuildScoreDistribution(cat, out.scores)
	}

	picks := make([]int, len(band))
	for i := range picks {
		picks[i] = i
	}
	if len(band) > cfg.SamplesPerIteration {
		rng := rand.New(rand.NewSource(e.opts.IterationSeed))
		picks = rng.Perm(len(band))[:cfg.SamplesPerIteration]
		sort.Ints(picks)
	}
	for _, p := range picks {
		u := band[p]
		result.Samples = append(result.Samples,
			newRecord(candidates[u.idx].ID, u.score, domain.SampleActiveLearning, &u.cat, 0))
	}

	e.logger.Info("iteration complete",
		"targets", len(targets),
		"pool", len(candidates),
		"uncertain", len(band),
		"sampled", len(result.Samples))
	return result, nil
}

// trainAndScore fits the classifier for one category and scores the pool.
// Failures are recorded in the metrics and leave scores nil.
func (e *Engine) trainAndScore(cat domain.CategoryID, labels []domain.LabeledSample, pool, unlabeled [][]float32) categoryOutcome {
	x, y := partitionLabels(cat, labels)
	out := categoryOutcome{metrics: domain.CategoryMetrics{Category: cat}}
	for _, positive := range y {
		if positive {
			out.metrics.PositiveCount++
		} else {
			out.metrics.NegativeCount++
		}
	}
	m := &out.metrics

	if m.PositiveCount < e.opts.MinPerClass || m.NegativeCount < e.opts.MinPerClass {
		m.Skipped = "insufficient labels"
		e.logger.Warn("skipping category",
			"category", cat,
			"reason", m.Skipped,
			"positives", m.PositiveCount,
			"negatives", m.NegativeCount)
		return out
	}

	opts := e.opts.Classifier
	if e.opts.Strategy == classifier.StrategySelfTrainingSVM {
		m.UnlabeledUsed = len(unlabeled)
		opts.C = e.chooseC(cat, x, y, unlabeled, m)
	} else {
		unlabeled = nil
	}

	clf, err := classifier.New(e.opts.Strategy, opts)
	if err == nil {
		err = clf.Fit(x, y, unlabeled)
	}
	if err != nil {
		m.Skipped = fmt.Sprintf("training failed: %v", err)
		e.logger.Warn("skipping category", "category", cat, "reason", m.Skipped)
		return out
	}
	m.Trained = true
	m.Degenerate = clf.Degenerate()
	m.Strategy = clf.Name()
	m.C = opts.C

	scores, err := clf.PredictProba(pool)
	if err != nil {
		m.Skipped = fmt.Sprintf("scoring failed: %v", err)
		e.logger.Warn("skipping category", "category", cat, "reason", m.Skipped)
		return out
	}
	out.scores = scores
	return out
}

// chooseC grid-searches C when both classes have enough labels, otherwise
// or on failure it returns the configured default.
func (e *Engine) chooseC(cat domain.CategoryID, x [][]float32, y []bool, unlabeled [][]float32, m *domain.CategoryMetrics) float64 {
	fallback := e.opts.Classifier.C
	if m.PositiveCount < e.opts.GridSearchMinPerClass || m.NegativeCount < e.opts.GridSearchMinPerClass {
		e.logger.Info("too few labels for grid search, using default C",
			"category", cat, "c", fallback)
		return fallback
	}

	best, scores, err := classifier.GridSearchC(x, y, unlabeled, e.opts.Classifier, e.opts.GridSearch)
	m.GridScores = scores
	var gsErr *classifier.GridSearchError
	if errors.As(err, &gsErr) {
		e.logger.Warn("grid search failed, using default C",
			"category", cat, "c", fallback, "error", gsErr)
		return fallback
	}
	e.logger.Debug("grid search", "category", cat, "best_c", best)
	return best
}

// unlabeledForTraining draws a seeded sample of the pool and reduces it by
// clustering so self-training cost stays bounded.
func (e *Engine) unlabeledForTraining(pool [][]float32) [][]float32 {
	if !e.opts.UseUnlabeled || e.opts.Strategy != classifier.StrategySelfTrainingSVM || len(pool) == 0 {
		return nil
	}
	sample := pool
	if e.opts.UnlabeledSampleSize > 0 && len(pool) > e.opts.UnlabeledSampleSize {
		rng := rand.New(rand.NewSource(e.opts.IterationSeed))
		picks := rng.Perm(len(pool))[:e.opts.UnlabeledSampleSize]
		sort.Ints(picks)
		sample = make([][]float32, len(picks))
		for i, p := range picks {
			sample[i] = pool[p]
		}
	}
	reduced := classifier.ReduceUnlabeled(sample, e.opts.Reduce)
	e.logger.Debug("unlabeled pool reduced", "sampled", len(sample), "kept", len(reduced))
	return reduced
}

// partitionLabels builds the training set for one category. A sample
// assigned to cat is positive unless marked negative; a sample not assigned
// to cat is negative when it is an explicit negative or belongs to another
// category. Samples assigned to cat are never negatives for it.
func partitionLabels(cat domain.CategoryID, labels []domain.LabeledSample) ([][]float32, []bool) {
	var x [][]float32
	var y []bool
	for _, l := range labels {
		switch {
		case l.HasCategory(cat):
			if !l.Negative {
				x = append(x, l.Embedding.Vector)
				y = append(y, true)
			}
		case l.Negative || len(l.Categories) > 0:
			x = append(x, l.Embedding.Vector)
			y = append(y, false)
		}
	}
	return x, y
}

func uniqueSorted(cats []domain.CategoryID) []domain.CategoryID {
	seen := make(map[domain.CategoryID]struct{}, len(cats))
	out := make([]domain.CategoryID, 0, len(cats))
	for _, c := range cats {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
