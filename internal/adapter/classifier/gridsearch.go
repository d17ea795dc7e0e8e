package classifier

import (
	"fmt"
	"math"
	"math/rand"

	"alsampler/internal/domain"
)

// GridSearchOptions configures GridSearchC.
type GridSearchOptions struct {
	Candidates   []float64 `yaml:"candidates"`
	TestFraction float64   `yaml:"test_fraction"`
	Seed         int64     `yaml:"seed"`
}

// DefaultGridSearchOptions returns the stock C grid and split.
func DefaultGridSearchOptions() GridSearchOptions {
	return GridSearchOptions{
		Candidates:   []float64{0.1, 1.0, 10.0},
		TestFraction: 0.3,
		Seed:         42,
	}
}

// GridSearchC picks the SVM regularisation strength with the best F1 on a
// stratified hold-out split. Every candidate is trained as a self-training
// SVM on the training split. The first candidate wins ties. A
// *GridSearchError is returned when the data cannot be split or no
// candidate trains; callers then use the default C.
func GridSearchC(x [][]float32, y []bool, unlabeled [][]float32, base Options, opts GridSearchOptions) (float64, []domain.GridScore, error) {
	if err := checkShapes(x, y); err != nil {
		return 0, nil, &GridSearchError{Reason: "bad input", Err: err}
	}
	if len(opts.Candidates) == 0 {
		return 0, nil, &GridSearchError{Reason: "no candidates"}
	}
	if opts.TestFraction <= 0 || opts.TestFraction >= 1 {
		return 0, nil, &GridSearchError{Reason: fmt.Sprintf("test fraction %g outside (0, 1)", opts.TestFraction)}
	}

	trainIdx, testIdx, err := stratifiedSplit(y, opts.TestFraction, opts.Seed)
	if err != nil {
		return 0, nil, err
	}
	trainX, trainY := subset(x, y, trainIdx)
	testX, testY := subset(x, y, testIdx)

	bestC := math.NaN()
	bestF1 := math.Inf(-1)
	scores := make([]domain.GridScore, 0, len(opts.Candidates))
	var lastErr error
	for _, c := range opts.Candidates {
		o := base
		o.C = c
		if c <= 0 {
			lastErr = fmt.Errorf("%w: C must be positive, got %g", ErrInvalidArgument, c)
			continue
		}
		model := NewSelfTrainingSVM(o)
		if err := model.Fit(trainX, trainY, unlabeled); err != nil {
			lastErr = err
			continue
		}
		proba, err := model.PredictProba(testX)
		if err != nil {
			lastErr = err
			continue
		}
		f1 := F1Score(testY, proba)
		scores = append(scores, domain.GridScore{C: c, F1: f1})
		if f1 > bestF1 {
			bestF1, bestC = f1, c
		}
	}
	if math.IsNaN(bestC) {
		return 0, scores, &GridSearchError{Reason: "every candidate failed", Err: lastErr}
	}
	return bestC, scores, nil
}

// stratifiedSplit shuffles each class with a fixed seed and holds out
// round(fraction*count) of it, keeping at least one sample per class on
// each side.
func stratifiedSplit(y []bool, fraction float64, seed int64) ([]int, []int, error) {
	var pos, neg []int
	for i, label := range y {
		if label {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	if len(pos) < 2 || len(neg) < 2 {
		return nil, nil, &GridSearchError{
			Reason: fmt.Sprintf("cannot stratify %d positives and %d negatives", len(pos), len(neg)),
		}
	}

	rng := rand.New(rand.NewSource(seed))
	var train, test []int
	for _, class := range [][]int{pos, neg} {
		rng.Shuffle(len(class), func(i, j int) { class[i], class[j] = class[j], class[i] })
		nTest := int(math.Round(fraction * float64(len(class))))
		nTest = max(1, min(nTest, len(class)-1))
		test = append(test, class[:nTest]...)
		train = append(train, class[nTest:]...)
	}
	return train, test, nil
}

func subset(x [][]float32, y []bool, idx []int) ([][]float32, []bool) {
	sx := make([][]float32, len(idx))
	sy := make([]bool, len(idx))
	for i, j := range idx {
		sx[i], sy[i] = x[j], y[j]
	}
	return sx, sy
}

// F1Score is the positive-class F1 of thresholding proba at 0.5.
func F1Score(y []bool, proba []float64) float64 {
	var tp, fp, fn float64
	for i, label := range y {
		predicted := proba[i] >= 0.5
		switch {
		case predicted && label:
			tp++
		case predicted && !label:
			fp++
		case !predicted && label:
			fn++
		}
	}
	if tp == 0 {
		return 0
	}
	return 2 * tp / (2*tp + fp + fn)
}
