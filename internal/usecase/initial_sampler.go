package usecase

import (
	"math/rand"
	"sort"

	"alsampler/internal/adapter/diversity"
	"alsampler/internal/adapter/vecmath"
	"alsampler/internal/domain"
)

const othersSeed = 42

// ComputeInitialSamples proposes the round-0 samples: per category the
// easy positives and a random draw from the boundary window, then a
// farthest-first spread over clips no category ranked near the top.
// It returns the records and the pool size.
func (e *Engine) ComputeInitialSamples(refs domain.ReferenceSet, pool []domain.EmbeddingVector, metric domain.Metric) ([]domain.SampleRecord, int, error) {
	cfg := e.opts.Sampling
	if err := cfg.Validate(); err != nil {
		return nil, 0, err
	}
	if len(pool) == 0 {
		return nil, 0, nil
	}

	poolVecs := vecmath.Vectors(pool)
	selected := make(map[string]struct{})
	bestRank := make([]int, len(pool))
	for i := range bestRank {
		bestRank[i] = -1
	}

	var records []domain.SampleRecord
	var seeds [][]float32
	for _, cat := range sortedCategories(refs) {
		refVecs := vecmath.Vectors(refs[cat])
		if len(refVecs) == 0 {
			e.logger.Debug("skipping category without references", "category", cat)
			continue
		}
		seeds = append(seeds, refVecs...)

		sims := vecmath.ComputeSimilarities(refVecs, poolVecs, metric)
		order := rankDescending(sims)
		for rank, idx := range order {
			if bestRank[idx] < 0 || rank < bestRank[idx] {
				bestRank[idx] = rank
			}
		}

		// Easy positives.
		taken := 0
		for rank, idx := range order {
			if taken >= cfg.EasyPositiveK {
				break
			}
			id := pool[idx].ID
			if _, ok := selected[id]; ok {
				continue
			}
			selected[id] = struct{}{}
			records = append(records, newRecord(id, sims[idx], domain.SampleEasyPositive, &cat, rank+1))
			taken++
		}

		// Boundary window.
		start := min(cfg.EasyPositiveK, len(order))
		end := min(cfg.EasyPositiveK+cfg.BoundaryN, len(order))
		var available []int
		for rank := start; rank < end; rank++ {
			if _, ok := selected[pool[order[rank]].ID]; !ok {
				available = append(available, rank)
			}
		}
		m := min(cfg.BoundaryM, len(available))
		rng := rand.New(rand.NewSource(42 + int64(cat)))
		picks := rng.Perm(len(available))[:m]
		sort.Ints(picks)
		for _, p := range picks {
			rank := available[p]
			idx := order[rank]
			selected[pool[idx].ID] = struct{}{}
			records = append(records, newRecord(pool[idx].ID, sims[idx], domain.SampleBoundary, &cat, rank+1))
		}

		e.logger.Debug("category ranked",
			"category", cat,
			"easy_positives", taken,
			"boundary", m,
			"boundary_available", len(available))
	}

	if len(seeds) == 0 {
		return records, len(pool), nil
	}

	others := e.selectOthers(pool, poolVecs, seeds, selected, bestRank, metric)
	records = append(records, others...)
	return records, len(pool), nil
}

// selectOthers spreads cfg.OthersP picks over clips that fell outside every
// category's easy-positive and boundary window.
func (e *Engine) selectOthers(
	pool []domain.EmbeddingVector,
	poolVecs, seeds [][]float32,
	selected map[string]struct{},
	bestRank []int,
	metric domain.Metric,
) []domain.SampleRecord {
	cfg := e.opts.Sampling
	window := cfg.EasyPositiveK + cfg.BoundaryN

	var candidates []int
	for i, item := range pool {
		if _, ok := selected[item.ID]; ok {
			continue
		}
		if bestRank[i] >= 0 && bestRank[i] < window {
			continue
		}
		candidates = append(candidates, i)
	}

	if len(candidates) > cfg.MaxFarthestFirstCandidates {
		rng := rand.New(rand.NewSource(othersSeed))
		picks := rng.Perm(len(candidates))[:cfg.MaxFarthestFirstCandidates]
		sort.Ints(picks)
		sampled := make([]int, len(picks))
		for i, p := range picks {
			sampled[i] = candidates[p]
		}
		candidates = sampled
	}
	if len(candidates) == 0 || cfg.OthersP == 0 {
		return nil
	}

	candVecs := make([][]float32, len(candidates))
	for i, idx := range candidates {
		candVecs[i] = poolVecs[idx]
	}
	chosen := diversity.FarthestFirst(candVecs, seeds, cfg.OthersP, metric)

	chosenVecs := make([][]float32, len(chosen))
	for i, c := range chosen {
		chosenVecs[i] = candVecs[c]
	}
	sims := vecmath.ComputeSimilarities(seeds, chosenVecs, metric)

	records := make([]domain.SampleRecord, 0, len(chosen))
	for i, c := range chosen {
		idx := candidates[c]
		rank := len(pool) + 1
		if bestRank[idx] >= 0 {
			rank = bestRank[idx] + 1
		}
		selected[pool[idx].ID] = struct{}{}
		records = append(records, newRecord(pool[idx].ID, sims[i], domain.SampleOthers, nil, rank))
	}

	e.logger.Debug("others selected", "candidates", len(candidates), "selected", len(records))
	return records
}

// rankDescending returns pool indices ordered by similarity, highest first.
// Ties keep pool order.
func rankDescending(sims []float64) []int {
	order := make([]int, len(sims))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return sims[order[a]] > sims[order[b]] })
	return order
}

func sortedCategories(refs domain.ReferenceSet) []domain.CategoryID {
	cats := make([]domain.CategoryID, 0, len(refs))
	for c := range refs {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

func newRecord(id string, score float64, kind domain.SampleType, cat *domain.CategoryID, rank int) domain.SampleRecord {
	rec := domain.SampleRecord{
		ClipID: id,
		Score:  score,
		Type:   kind,
	}
	if cat != nil {
		c := *cat
		rec.SourceCategory = &c
	}
	if rank > 0 {
		r := rank
		rec.DatasetRank = &r
	}
	return rec
}
