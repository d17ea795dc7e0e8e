package usecase

import (
	"log/slog"
	"runtime"

	"alsampler/internal/adapter/classifier"
	"alsampler/internal/domain"
)

// EngineOptions configures the sampling engine.
type EngineOptions struct {
	Sampling   domain.ActiveLearningConfig
	Strategy   classifier.Strategy
	Classifier classifier.Options
	GridSearch classifier.GridSearchOptions
	Reduce     classifier.ReduceOptions

	// UseUnlabeled feeds a clustered sample of the pool into self-training.
	UseUnlabeled        bool
	UnlabeledSampleSize int

	// MinPerClass is the label count each class needs before a category is trained.
	MinPerClass int
	// GridSearchMinPerClass is the label count each class needs before C is grid-searched.
	GridSearchMinPerClass int

	Workers       int
	IterationSeed int64
}

// DefaultEngineOptions returns the stock engine configuration.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Sampling:              domain.DefaultActiveLearningConfig(),
		Strategy:              classifier.StrategySelfTrainingSVM,
		Classifier:            classifier.DefaultOptions(),
		GridSearch:            classifier.DefaultGridSearchOptions(),
		Reduce:                classifier.DefaultReduceOptions(),
		UseUnlabeled:          true,
		UnlabeledSampleSize:   10000,
		MinPerClass:           1,
		GridSearchMinPerClass: 5,
		Workers:               runtime.NumCPU(),
		IterationSeed:         42,
	}
}

// Engine computes initial and uncertainty samples. It holds no state
// between calls and is safe for concurrent use by independent sessions.
type Engine struct {
	opts   EngineOptions
	logger *slog.Logger
}

// NewEngine creates an Engine. A nil logger uses slog.Default().
func NewEngine(opts EngineOptions, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinPerClass < 1 {
		opts.MinPerClass = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{opts: opts, logger: logger}
}

// Options returns the engine configuration.
func (e *Engine) Options() EngineOptions {
	return e.opts
}
