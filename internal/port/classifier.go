package port

// Classifier is a binary classifier over clip embeddings.
type Classifier interface {
	// Fit trains on labelled embeddings. unlabeled may be nil; strategies
	// that are not semi-supervised ignore it.
	Fit(x [][]float32, y []bool, unlabeled [][]float32) error

	// PredictProba returns the positive-class probability for each row.
	PredictProba(x [][]float32) ([]float64, error)

	// Degenerate reports whether the last Fit saw a single class and the
	// classifier predicts a constant.
	Degenerate() bool

	// Name returns the strategy name.
	Name() string
}
