package classifier

import (
	"fmt"
	"math"
	"math/rand"
)

// SelfTrainingSVM wraps a Platt-scaled linear SVM in self-training: each
// round the current model pseudo-labels unlabeled rows it is confident
// about, and the model is refit on labels plus pseudo-labels.
type SelfTrainingSVM struct {
	opts     Options
	model    *linearSVM
	constant constant
	dim      int
	// PseudoLabeled is the number of unlabeled rows absorbed by the last Fit.
	PseudoLabeled int
}

// NewSelfTrainingSVM returns an unfitted self-training SVM.
func NewSelfTrainingSVM(opts Options) *SelfTrainingSVM {
	return &SelfTrainingSVM{opts: opts}
}

func (s *SelfTrainingSVM) Name() string { return string(StrategySelfTrainingSVM) }

// Fit trains on x/y, optionally absorbing confident predictions on unlabeled.
func (s *SelfTrainingSVM) Fit(x [][]float32, y []bool, unlabeled [][]float32) error {
	if err := checkShapes(x, y); err != nil {
		return err
	}
	s.model = nil
	s.constant = constant{}
	s.PseudoLabeled = 0
	s.dim = len(x[0])
	if err := checkDims(unlabeled, s.dim); err != nil {
		return err
	}

	if c, ok := singleClass(y); ok {
		s.constant = c
		return nil
	}

	rng := rand.New(rand.NewSource(s.opts.Seed))
	trainX := normalize(x)
	trainY := append([]bool(nil), y...)
	pool := normalize(unlabeled)

	model, err := fitLinearSVM(trainX, trainY, s.opts.C, s.opts.MaxIter, rng)
	if err != nil {
		return fmt.Errorf("self-training svm: %w", err)
	}

	for iter := 0; iter < s.opts.SelfTrainingMaxIter && len(pool) > 0; iter++ {
		var kept [][]float64
		added := 0
		for _, row := range pool {
			p := model.proba(row)
			if math.Max(p, 1-p) > s.opts.SelfTrainingThreshold {
				trainX = append(trainX, row)
				trainY = append(trainY, p >= 0.5)
				added++
				continue
			}
			kept = append(kept, row)
		}
		if added == 0 {
			break
		}
		s.PseudoLabeled += added
		pool = kept

		model, err = fitLinearSVM(trainX, trainY, s.opts.C, s.opts.MaxIter, rng)
		if err != nil {
			return fmt.Errorf("self-training svm: round %d: %w", iter+1, err)
		}
	}

	s.model = model
	return nil
}

// PredictProba scores each row in [0, 1].
func (s *SelfTrainingSVM) PredictProba(x [][]float32) ([]float64, error) {
	if s.model == nil && !s.constant.set {
		return nil, ErrNotFitted
	}
	if err := checkDims(x, s.dim); err != nil {
		return nil, err
	}
	if s.constant.set {
		return s.constant.fill(len(x)), nil
	}
	rows := normalize(x)
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = s.model.proba(row)
	}
	return out, nil
}

// Degenerate reports a single-class fit.
func (s *SelfTrainingSVM) Degenerate() bool { return s.constant.set }
