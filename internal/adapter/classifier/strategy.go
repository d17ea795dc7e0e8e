package classifier

import (
	"fmt"

	"alsampler/internal/port"
)

// Strategy selects the classifier used per category.
type Strategy string

const (
	// StrategySigmoid is normalised logistic regression with balanced class weights.
	StrategySigmoid Strategy = "sigmoid"
	// StrategySelfTrainingSVM is a Platt-scaled linear SVM wrapped in self-training.
	StrategySelfTrainingSVM Strategy = "self_training_svm"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySigmoid, StrategySelfTrainingSVM:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("%w: unknown classifier strategy %q (supported: sigmoid, self_training_svm)", ErrInvalidArgument, s)
	}
}

// Options configures classifier training.
type Options struct {
	C                     float64 `yaml:"c"`
	MaxIter               int     `yaml:"max_iter"`
	SelfTrainingThreshold float64 `yaml:"self_training_threshold"`
	SelfTrainingMaxIter   int     `yaml:"self_training_max_iter"`
	Seed                  int64   `yaml:"seed"`
}

// DefaultOptions returns the stock training options.
func DefaultOptions() Options {
	return Options{
		C:                     1.0,
		MaxIter:               1000,
		SelfTrainingThreshold: 0.75,
		SelfTrainingMaxIter:   10,
		Seed:                  42,
	}
}

// New builds an unfitted classifier for the strategy.
func New(strategy Strategy, opts Options) (port.Classifier, error) {
	if opts.C <= 0 {
		return nil, fmt.Errorf("%w: C must be positive, got %g", ErrInvalidArgument, opts.C)
	}
	switch strategy {
	case StrategySigmoid:
		return NewSigmoid(opts), nil
	case StrategySelfTrainingSVM:
		return NewSelfTrainingSVM(opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown classifier strategy %q", ErrInvalidArgument, strategy)
	}
}
