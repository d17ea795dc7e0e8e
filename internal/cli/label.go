package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	labelCategories []int64
	labelNegative   bool
)

var labelCmd = &cobra.Command{
	Use:   "label <session-id> <clip-id>",
	Short: "Record a label for a clip",
	Long: `Record which target categories a clip contains, or mark it negative.
Labelling a clip again replaces its previous label.

Examples:
  alsampler label <session-id> clip-0042 --category 3 --category 7
  alsampler label <session-id> clip-0043 --negative`,
	Args: cobra.ExactArgs(2),
	RunE: runLabel,
}

func init() {
	rootCmd.AddCommand(labelCmd)
	labelCmd.Flags().Int64SliceVarP(&labelCategories, "category", "c", nil, "category present in the clip (repeatable)")
	labelCmd.Flags().BoolVarP(&labelNegative, "negative", "n", false, "clip contains none of the session targets")
	labelCmd.MarkFlagsMutuallyExclusive("category", "negative")
	labelCmd.MarkFlagsOneRequired("category", "negative")
}

func runLabel(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	uc, err := newSessionUseCase(st, "")
	if err != nil {
		return err
	}
	if err := uc.Label(args[0], args[1], toCategories(labelCategories), labelNegative); err != nil {
		return fmt.Errorf("failed to record label: %w", err)
	}

	fmt.Printf("Labelled %s\n", args[1])
	return nil
}
