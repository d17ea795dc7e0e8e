package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"alsampler/config"
	"alsampler/internal/adapter/memstore"
	"alsampler/internal/domain"
	"alsampler/internal/logging"
	"alsampler/internal/port"
	"alsampler/internal/usecase"
)

// clip is one synthetic embedding with its hidden ground truth.
type clip struct {
	id       string
	vector   []float32
	category domain.CategoryID // 0 = background
}

func main() {
	configDir := flag.String("config", ".", "Directory holding alsampler.yaml")
	nClips := flag.Int("clips", 3000, "Number of synthetic clips")
	dim := flag.Int("dim", 32, "Embedding dimension")
	nCats := flag.Int("cats", 3, "Number of target categories")
	rounds := flag.Int("rounds", 5, "Active-learning rounds after round 0")
	spread := flag.Float64("spread", 0.6, "Cluster spread (higher = harder)")
	strategy := flag.String("strategy", "", "Classifier strategy override")
	seed := flag.Int64("seed", 1, "Data generation seed")
	verbose := flag.Bool("v", false, "Log engine decisions")
	flag.Parse()

	cfg, err := config.LoadFromDir(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *strategy != "" {
		cfg.Classifier.Strategy = *strategy
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	level := logging.ParseLevel("error")
	if *verbose {
		level = logging.ParseLevel("debug")
	}
	logger := logging.Init(false, level)

	opts, err := cfg.EngineOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	clips, refs := generate(*nClips, *dim, *nCats, *spread, *seed)
	truth := make(map[string]domain.CategoryID, len(clips))
	st := memstore.NewMemoryStore()
	records := make([]port.EmbeddingRecord, len(clips))
	for i, c := range clips {
		records[i] = port.EmbeddingRecord{ID: c.id, Vector: c.vector}
		truth[c.id] = c.category
	}
	if err := st.UpsertClips("synthetic", records); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := st.PutReferences(refs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	targets := make([]domain.CategoryID, *nCats)
	for i := range targets {
		targets[i] = domain.CategoryID(i + 1)
	}
	engine := usecase.NewEngine(opts, logger)
	uc := usecase.NewSessionUseCase(st, engine, domain.ParseMetric(cfg.Sampling.Metric), cfg.Sampling.MaxPool, logger)
	session, err := uc.Create("synthetic", targets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ACTIVE LEARNING BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Clips: %d  Dimension: %d  Categories: %d  Spread: %.2f\n", *nClips, *dim, *nCats, *spread)
	fmt.Printf("Strategy: %s  Metric: %s\n\n", opts.Strategy, cfg.Sampling.Metric)

	labelled := make(map[domain.CategoryID]int)
	for round := 0; round <= *rounds; round++ {
		start := time.Now()
		result, err := uc.Sample(session.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Round %d failed: %v\n", round, err)
			os.Exit(1)
		}
		elapsed := time.Since(start)

		hits, attributed := 0, 0
		byType := make(map[domain.SampleType]int)
		for _, s := range result.Samples {
			byType[s.Type]++
			actual := truth[s.ClipID]
			if s.SourceCategory != nil {
				attributed++
				if actual == *s.SourceCategory {
					hits++
				}
			}
			labelled[actual]++
			// The oracle answers with the hidden ground truth.
			var err error
			if actual == 0 {
				err = uc.Label(session.ID, s.ClipID, nil, true)
			} else {
				err = uc.Label(session.ID, s.ClipID, []domain.CategoryID{actual}, false)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Label failed: %v\n", err)
				os.Exit(1)
			}
		}

		fmt.Printf("Round %d  (%s, pool %d)\n", result.Round, elapsed.Round(time.Millisecond), result.PoolSize)
		fmt.Printf("  Samples: %d %s\n", len(result.Samples), formatTypes(byType))
		if attributed > 0 {
			fmt.Printf("  Hit rate: %.1f%% (%d/%d matched their source category)\n",
				100*float64(hits)/float64(attributed), hits, attributed)
		}
		for _, cat := range targets {
			m, ok := result.Metrics[cat]
			if !ok {
				continue
			}
			d := result.Distributions[cat]
			fmt.Printf("  cat %d: pos=%d neg=%d uncertain=%d mean=%.3f %s\n",
				cat, m.PositiveCount, m.NegativeCount, m.UncertainCount, d.MeanScore, histogram(d))
		}
		if len(result.Samples) == 0 {
			fmt.Println("  No uncertain clips left; stopping.")
			break
		}
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("LABELS COLLECTED:\n")
	cats := make([]int, 0, len(labelled))
	for c := range labelled {
		cats = append(cats, int(c))
	}
	sort.Ints(cats)
	for _, c := range cats {
		name := fmt.Sprintf("category %d", c)
		if c == 0 {
			name = "background"
		}
		fmt.Printf("  %-12s %d\n", name, labelled[domain.CategoryID(c)])
	}
}

// generate builds nCats Gaussian clusters plus background noise, and three
// references per category drawn near each cluster centre.
func generate(n, dim, nCats int, spread float64, seed int64) ([]clip, []port.EmbeddingRecord) {
	rng := rand.New(rand.NewSource(seed))
	centres := make([][]float64, nCats+1)
	for c := range centres {
		centres[c] = make([]float64, dim)
		for j := range centres[c] {
			centres[c][j] = rng.NormFloat64()
		}
	}

	sample := func(centre []float64, scale float64) []float32 {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(centre[j] + scale*rng.NormFloat64())
		}
		return v
	}

	clips := make([]clip, n)
	for i := range clips {
		// Half the pool is background spread widely around centre 0.
		cat := 0
		if rng.Float64() < 0.5 {
			cat = 1 + rng.Intn(nCats)
		}
		scale := spread
		if cat == 0 {
			scale = 2 * spread
		}
		clips[i] = clip{
			id:       fmt.Sprintf("clip-%05d", i),
			vector:   sample(centres[cat], scale),
			category: domain.CategoryID(cat),
		}
	}

	var refs []port.EmbeddingRecord
	for c := 1; c <= nCats; c++ {
		cat := int64(c)
		for r := 0; r < 3; r++ {
			refs = append(refs, port.EmbeddingRecord{
				ID:       fmt.Sprintf("ref-%d-%d", c, r),
				Vector:   sample(centres[c], spread/2),
				Category: &cat,
			})
		}
	}
	return clips, refs
}

func formatTypes(byType map[domain.SampleType]int) string {
	order := []domain.SampleType{domain.SampleEasyPositive, domain.SampleBoundary, domain.SampleOthers, domain.SampleActiveLearning}
	var parts []string
	for _, t := range order {
		if byType[t] > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", t, byType[t]))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// histogram renders the score distribution as a sparkline.
func histogram(d domain.ScoreDistribution) string {
	const ticks = " .:-=+*#"
	peak := 0
	for _, b := range d.Bins {
		peak = max(peak, b)
	}
	if peak == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('|')
	for _, b := range d.Bins {
		sb.WriteByte(ticks[b*(len(ticks)-1)/peak])
	}
	sb.WriteByte('|')
	return sb.String()
}
