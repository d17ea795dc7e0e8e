package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"alsampler/config"
	"alsampler/internal/adapter/store"
	"alsampler/internal/domain"
	"alsampler/internal/logging"
	"alsampler/internal/usecase"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "alsampler",
	Short: "Active-learning sampler for audio-event embeddings",
	Long: `alsampler proposes which audio clips an annotator should label next.
Round 0 draws easy positives, boundary clips and diverse outliers around
reference embeddings; later rounds train one classifier per target category
on the labels so far and propose the clips it is least sure about.

Example usage:
  alsampler import clips ./embeddings --dataset forest
  alsampler import refs ./references.jsonl
  alsampler session create --dataset forest --target 3 --target 7
  alsampler sample <session-id>
  alsampler label <session-id> <clip-id> --category 3`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		_ = godotenv.Load()

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.ApplyEnv()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger = logging.Init(cfg.Logging.JSON, logging.ParseLevel(cfg.Logging.Level))
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./alsampler.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

// openStore opens the configured store, creating and migrating it as needed.
func openStore() (*store.BoltStore, error) {
	if err := cfg.EnsureStoreDir(rootDir); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	st, err := store.NewBoltStore(cfg.StoreDBPath(rootDir))
	if err != nil {
		return nil, err
	}

	result, err := st.CheckMigration()
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to check migration: %w", err)
	}
	if result.NeedsRebuild {
		st.Close()
		return nil, fmt.Errorf("store cannot be used: %s", result.Reason)
	}
	if result.NeedsMigration {
		logger.Info("migrating store", "reason", result.Reason)
		if err := st.Migrate(); err != nil {
			st.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}
	return st, nil
}

// newSessionUseCase wires a session use case over st.
func newSessionUseCase(st *store.BoltStore, metric domain.Metric) (*usecase.SessionUseCase, error) {
	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	engine := usecase.NewEngine(opts, logger)
	return usecase.NewSessionUseCase(st, engine, metric, cfg.Sampling.MaxPool, logger), nil
}
