package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"alsampler/internal/adapter/classifier"
	"alsampler/internal/domain"
	"alsampler/internal/usecase"
)

// Config holds all configuration for alsampler.
type Config struct {
	Sampling   SamplingConfig   `yaml:"sampling"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Store      StoreConfig      `yaml:"store"`
	Import     ImportConfig     `yaml:"import"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SamplingConfig holds the sampling knobs and the similarity metric.
type SamplingConfig struct {
	domain.ActiveLearningConfig `yaml:",inline"`
	Metric                      string `yaml:"metric"` // "cosine" or "euclidean"
	MaxPool                     int    `yaml:"max_pool"` // 0 = whole dataset
	IterationSeed               int64  `yaml:"iteration_seed"`
}

// ClassifierConfig holds per-category training configuration.
type ClassifierConfig struct {
	Strategy              string                       `yaml:"strategy"` // "sigmoid" or "self_training_svm"
	Options               classifier.Options           `yaml:",inline"`
	GridSearch            classifier.GridSearchOptions `yaml:"grid_search"`
	Reduce                classifier.ReduceOptions     `yaml:"reduce"`
	UseUnlabeled          bool                         `yaml:"use_unlabeled"`
	UnlabeledSampleSize   int                          `yaml:"unlabeled_sample_size"`
	MinPerClass           int                          `yaml:"min_per_class"`
	GridSearchMinPerClass int                          `yaml:"grid_search_min_per_class"`
	Workers               int                          `yaml:"workers"` // 0 = one per CPU
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `yaml:"path"` // relative paths resolve against the root directory
}

// ImportConfig holds embedding-file discovery configuration.
type ImportConfig struct {
	Includes  []string `yaml:"includes"`
	Excludes  []string `yaml:"excludes"`
	BatchSize int      `yaml:"batch_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sampling: SamplingConfig{
			ActiveLearningConfig: domain.DefaultActiveLearningConfig(),
			Metric:               string(domain.MetricCosine),
			IterationSeed:        42,
		},
		Classifier: ClassifierConfig{
			Strategy:              string(classifier.StrategySelfTrainingSVM),
			Options:               classifier.DefaultOptions(),
			GridSearch:            classifier.DefaultGridSearchOptions(),
			Reduce:                classifier.DefaultReduceOptions(),
			UseUnlabeled:          true,
			UnlabeledSampleSize:   10000,
			MinPerClass:           1,
			GridSearchMinPerClass: 5,
		},
		Store: StoreConfig{
			Path: filepath.Join(".alsampler", "store.db"),
		},
		Import: ImportConfig{
			Includes:  []string{"**/*.jsonl"},
			Excludes:  []string{"**/.git/**", "**/.alsampler/**"},
			BatchSize: 1000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for alsampler.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "alsampler.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".alsampler", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// ApplyEnv overrides file settings from ALSAMPLER_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ALSAMPLER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ALSAMPLER_STRATEGY"); v != "" {
		c.Classifier.Strategy = v
	}
	if v := os.Getenv("ALSAMPLER_DB"); v != "" {
		c.Store.Path = v
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if err := c.Sampling.Validate(); err != nil {
		return fmt.Errorf("sampling: %w", err)
	}
	switch domain.Metric(c.Sampling.Metric) {
	case domain.MetricCosine, domain.MetricEuclidean:
	default:
		return fmt.Errorf("sampling: unknown metric %q", c.Sampling.Metric)
	}
	if _, err := classifier.ParseStrategy(c.Classifier.Strategy); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if c.Classifier.Options.C <= 0 {
		return fmt.Errorf("classifier: c must be positive, got %g", c.Classifier.Options.C)
	}
	if t := c.Classifier.Options.SelfTrainingThreshold; t < 0.5 || t > 1 {
		return fmt.Errorf("classifier: self_training_threshold must be in [0.5, 1], got %g", t)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store: path is required")
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StoreDBPath resolves the store path against dir.
func (c *Config) StoreDBPath(dir string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(dir, c.Store.Path)
}

// EnsureStoreDir ensures the directory holding the store file exists.
func (c *Config) EnsureStoreDir(dir string) error {
	return os.MkdirAll(filepath.Dir(c.StoreDBPath(dir)), 0755)
}

// EngineOptions maps the configuration onto sampling engine options.
func (c *Config) EngineOptions() (usecase.EngineOptions, error) {
	strategy, err := classifier.ParseStrategy(c.Classifier.Strategy)
	if err != nil {
		return usecase.EngineOptions{}, err
	}
	workers := c.Classifier.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return usecase.EngineOptions{
		Sampling:              c.Sampling.ActiveLearningConfig,
		Strategy:              strategy,
		Classifier:            c.Classifier.Options,
		GridSearch:            c.Classifier.GridSearch,
		Reduce:                c.Classifier.Reduce,
		UseUnlabeled:          c.Classifier.UseUnlabeled,
		UnlabeledSampleSize:   c.Classifier.UnlabeledSampleSize,
		MinPerClass:           c.Classifier.MinPerClass,
		GridSearchMinPerClass: c.Classifier.GridSearchMinPerClass,
		Workers:               workers,
		IterationSeed:         c.Sampling.IterationSeed,
	}, nil
}
