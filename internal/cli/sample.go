package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"alsampler/internal/domain"
)

var (
	sampleJSON   bool
	sampleMetric string
)

var sampleCmd = &cobra.Command{
	Use:   "sample <session-id>",
	Short: "Propose the next clips to label",
	Long: `Propose the next round of clips for a session and store them.
The first round is drawn around the reference embeddings; later rounds
train a classifier per target category on the labels so far.

Examples:
  alsampler sample <session-id>
  alsampler sample <session-id> --json --metric euclidean`,
	Args: cobra.ExactArgs(1),
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.Flags().BoolVar(&sampleJSON, "json", false, "output as JSON")
	sampleCmd.Flags().StringVar(&sampleMetric, "metric", "", "similarity metric: cosine or euclidean (default from config)")
}

// SampleOutput is the JSON shape of the sample command.
type SampleOutput struct {
	SessionID     string                     `json:"session_id"`
	Round         int                        `json:"round"`
	PoolSize      int                        `json:"pool_size"`
	Samples       []domain.SampleRecord      `json:"samples"`
	Metrics       []domain.CategoryMetrics   `json:"metrics,omitempty"`
	Distributions []domain.ScoreDistribution `json:"distributions,omitempty"`
}

func runSample(cmd *cobra.Command, args []string) error {
	metric := cfg.Sampling.Metric
	if sampleMetric != "" {
		metric = sampleMetric
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	uc, err := newSessionUseCase(st, domain.ParseMetric(metric))
	if err != nil {
		return err
	}
	result, err := uc.Sample(args[0])
	if err != nil {
		return err
	}

	out := SampleOutput{
		SessionID: args[0],
		Round:     result.Round,
		PoolSize:  result.PoolSize,
		Samples:   result.Samples,
	}
	for _, m := range result.Metrics {
		out.Metrics = append(out.Metrics, m)
	}
	sort.Slice(out.Metrics, func(i, j int) bool { return out.Metrics[i].Category < out.Metrics[j].Category })
	for _, d := range result.Distributions {
		out.Distributions = append(out.Distributions, d)
	}
	sort.Slice(out.Distributions, func(i, j int) bool { return out.Distributions[i].Category < out.Distributions[j].Category })

	if sampleJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Round %d: %d samples from a pool of %d\n\n", out.Round, len(out.Samples), out.PoolSize)
	for _, s := range out.Samples {
		printSample(s)
	}
	if len(out.Metrics) > 0 {
		fmt.Printf("\nCategories:\n")
		for _, m := range out.Metrics {
			status := "trained"
			if !m.Trained {
				status = "skipped: " + m.Skipped
			}
			fmt.Printf("  %-6d pos=%-4d neg=%-4d uncertain=%-5d %s\n",
				m.Category, m.PositiveCount, m.NegativeCount, m.UncertainCount, status)
		}
	}
	return nil
}
