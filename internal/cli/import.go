package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"alsampler/internal/adapter/fs"
	"alsampler/internal/adapter/store"
	"alsampler/internal/usecase"
)

var (
	importDataset string
	importReplace bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load embedding files into the store",
	Long: `Load JSONL embedding files, one {"id": ..., "vector": [...]} object per line.

Examples:
  alsampler import clips ./embeddings --dataset forest
  alsampler import refs ./references.jsonl   # lines also carry "category"`,
}

var importClipsCmd = &cobra.Command{
	Use:   "clips <path>",
	Short: "Import clip embeddings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(args[0], usecase.ImportClips)
	},
}

var importRefsCmd = &cobra.Command{
	Use:   "refs <path>",
	Short: "Import reference embeddings for target categories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(args[0], usecase.ImportReferences)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importClipsCmd, importRefsCmd)
	importClipsCmd.Flags().StringVar(&importDataset, "dataset", "", "dataset the clips belong to")
	importClipsCmd.Flags().BoolVar(&importReplace, "replace", false, "remove all clips and references before importing")
}

func runImport(path string, kind usecase.ImportKind) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	if importReplace && kind == usecase.ImportClips {
		fmt.Println("Clearing existing clips and references...")
		if err := st.ClearClips(); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
	}

	walker := fs.NewWalker(cfg.Import.Includes, cfg.Import.Excludes)
	importUC := usecase.NewImportUseCase(st, walker, fs.NewJSONLReader(), cfg.Import.BatchSize)

	fmt.Printf("Scanning %s...\n", path)
	result, err := importUC.Import(path, importDataset, kind, newProgress("Importing"))
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("\nImport complete:\n")
	fmt.Printf("  Files read:     %d\n", result.FilesRead)
	fmt.Printf("  Files failed:   %d\n", result.FilesFailed)
	fmt.Printf("  Records stored: %d\n", result.RecordsStored)
	if kind == usecase.ImportClips {
		printClipCount(st)
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nStore: %s\n", cfg.StoreDBPath(rootDir))
	return nil
}

func printClipCount(st *store.BoltStore) {
	n, err := st.CountClips(importDataset)
	if err != nil {
		logger.Warn("failed to count clips", "error", err)
		return
	}
	label := importDataset
	if label == "" {
		label = "all datasets"
	}
	fmt.Printf("  Clips in store: %d (%s)\n", n, label)
}

// newProgress returns a callback that draws a progress bar once the
// total is known.
func newProgress(verb string) usecase.ProgressFunc {
	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	return func(processed, total int, currentFile string) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+verb+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 && processed < total {
			rate := float64(processed) / time.Since(startTime).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-processed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] %s ETA: %s", verb, filepath.Base(currentFile), formatDuration(eta)))
			}
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
