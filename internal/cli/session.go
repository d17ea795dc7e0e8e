package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"alsampler/internal/domain"
)

var (
	sessionDataset string
	sessionTargets []int64
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage labelling sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Start a labelling session",
	Long: `Start a labelling session over a dataset for one or more target categories.

Examples:
  alsampler session create --dataset forest --target 3 --target 7`,
	Args: cobra.NoArgs,
	RunE: runSessionCreate,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session and its sample history",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionList,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionCreateCmd, sessionShowCmd, sessionListCmd)
	sessionCreateCmd.Flags().StringVar(&sessionDataset, "dataset", "", "dataset to sample from (default: every imported clip)")
	sessionCreateCmd.Flags().Int64SliceVarP(&sessionTargets, "target", "t", nil, "target category id (repeatable, required)")
	sessionCreateCmd.MarkFlagRequired("target")
}

func toCategories(ids []int64) []domain.CategoryID {
	out := make([]domain.CategoryID, len(ids))
	for i, id := range ids {
		out[i] = domain.CategoryID(id)
	}
	return out
}

func runSessionCreate(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	uc, err := newSessionUseCase(st, domain.ParseMetric(cfg.Sampling.Metric))
	if err != nil {
		return err
	}
	session, err := uc.Create(sessionDataset, toCategories(sessionTargets))
	if err != nil {
		return err
	}

	fmt.Println(session.ID)
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	session, err := st.GetSession(args[0])
	if err != nil {
		return err
	}
	uc, err := newSessionUseCase(st, domain.ParseMetric(cfg.Sampling.Metric))
	if err != nil {
		return err
	}
	history, err := uc.History(session.ID)
	if err != nil {
		return err
	}
	labels, err := st.FetchLabels(session.ID)
	if err != nil {
		return err
	}

	dataset := session.Dataset
	if dataset == "" {
		dataset = "(all)"
	}
	fmt.Printf("Session:  %s\n", session.ID)
	fmt.Printf("Dataset:  %s\n", dataset)
	fmt.Printf("Targets:  %v\n", session.Targets)
	fmt.Printf("Created:  %s\n", session.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Labels:   %d\n", len(labels))

	round := -1
	for _, s := range history {
		if s.Round != round {
			round = s.Round
			fmt.Printf("\nRound %d:\n", round)
		}
		printSample(s.Record)
	}
	if len(history) == 0 {
		fmt.Println("\nNo samples yet. Run 'alsampler sample " + session.ID + "'.")
	}
	return nil
}

func runSessionList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	sessions, err := st.ListSessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s  targets=%v  dataset=%q\n",
			s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Targets, s.Dataset)
	}
	return nil
}

func printSample(r domain.SampleRecord) {
	cat := "-"
	if r.SourceCategory != nil {
		cat = fmt.Sprintf("%d", *r.SourceCategory)
	}
	rank := ""
	if r.DatasetRank != nil {
		rank = fmt.Sprintf("  rank=%d", *r.DatasetRank)
	}
	fmt.Printf("  %-40s %-15s cat=%-4s score=%.4f%s\n", r.ClipID, r.Type, cat, r.Score, rank)
}
