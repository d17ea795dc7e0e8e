package classifier

import (
	"fmt"
)

// Sigmoid is L2-normalised logistic regression with balanced class weights.
type Sigmoid struct {
	opts     Options
	model    *logisticModel
	constant constant
	dim      int
}

// NewSigmoid returns an unfitted sigmoid classifier.
func NewSigmoid(opts Options) *Sigmoid {
	return &Sigmoid{opts: opts}
}

func (s *Sigmoid) Name() string { return string(StrategySigmoid) }

// Fit trains the model. unlabeled is ignored.
func (s *Sigmoid) Fit(x [][]float32, y []bool, _ [][]float32) error {
	if err := checkShapes(x, y); err != nil {
		return err
	}
	s.model = nil
	s.constant = constant{}
	s.dim = len(x[0])

	if c, ok := singleClass(y); ok {
		s.constant = c
		return nil
	}

	model, err := fitLogistic(normalize(x), hardTargets(y), balancedWeights(y), s.opts.C, s.opts.MaxIter)
	if err != nil {
		return fmt.Errorf("sigmoid: %w", err)
	}
	s.model = model
	return nil
}

// PredictProba scores each row in [0, 1].
func (s *Sigmoid) PredictProba(x [][]float32) ([]float64, error) {
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
func (s *Sigmoid) Degenerate() bool { return s.constant.set }

func checkDims(x [][]float32, dim int) error {
	for i, row := range x {
		if len(row) != dim {
			return fmt.Errorf("%w: row %d has dimension %d, model expects %d", ErrInvalidArgument, i, len(row), dim)
		}
	}
	return nil
}
