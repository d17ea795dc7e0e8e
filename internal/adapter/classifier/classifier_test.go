package classifier

import (
	"errors"
	"math/rand"
	"testing"
)

// blobs returns two separable clusters around +center and -center.
func blobs(n, dim int, seed int64) ([][]float32, []bool) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float32, 0, 2*n)
	y := make([]bool, 0, 2*n)
	for i := 0; i < 2*n; i++ {
		positive := i%2 == 0
		row := make([]float32, dim)
		for j := range row {
			row[j] = float32(0.2 * rng.NormFloat64())
		}
		if positive {
			row[0] += 1
		} else {
			row[1] += 1
		}
		x = append(x, row)
		y = append(y, positive)
	}
	return x, y
}

func strategies() []Strategy {
	return []Strategy{StrategySigmoid, StrategySelfTrainingSVM}
}

func TestClassifiersSeparateBlobs(t *testing.T) {
	x, y := blobs(30, 6, 1)
	testX, testY := blobs(20, 6, 2)
	unlabeled, _ := blobs(40, 6, 3)

	for _, s := range strategies() {
		t.Run(string(s), func(t *testing.T) {
			clf, err := New(s, DefaultOptions())
			if err != nil {
				t.Fatal(err)
			}
			if err := clf.Fit(x, y, unlabeled); err != nil {
				t.Fatalf("fit failed: %v", err)
			}
			if clf.Degenerate() {
				t.Fatal("expected a two-class model")
			}
			proba, err := clf.PredictProba(testX)
			if err != nil {
				t.Fatal(err)
			}
			if f1 := F1Score(testY, proba); f1 < 0.9 {
				t.Errorf("expected F1 >= 0.9 on separable blobs, got %.3f", f1)
			}
			for i, p := range proba {
				if p < 0 || p > 1 {
					t.Errorf("proba[%d] = %f outside [0, 1]", i, p)
				}
			}
		})
	}
}

func TestClassifiersSingleClassIsConstant(t *testing.T) {
	x, _ := blobs(5, 4, 4)

	for _, s := range strategies() {
		for _, label := range []bool{true, false} {
			clf, _ := New(s, DefaultOptions())
			y := make([]bool, len(x))
			for i := range y {
				y[i] = label
			}
			if err := clf.Fit(x, y, nil); err != nil {
				t.Fatalf("%s: fit failed: %v", s, err)
			}
			if !clf.Degenerate() {
				t.Errorf("%s: expected degenerate classifier", s)
			}
			proba, err := clf.PredictProba(x[:3])
			if err != nil {
				t.Fatal(err)
			}
			want := 0.0
			if label {
				want = 1.0
			}
			for _, p := range proba {
				if p != want {
					t.Errorf("%s: expected constant %f, got %f", s, want, p)
				}
			}
		}
	}
}

func TestClassifiersRejectBadInput(t *testing.T) {
	x, y := blobs(5, 4, 5)

	for _, s := range strategies() {
		clf, _ := New(s, DefaultOptions())

		if _, err := clf.PredictProba(x); !errors.Is(err, ErrNotFitted) {
			t.Errorf("%s: expected ErrNotFitted, got %v", s, err)
		}
		if err := clf.Fit(x, y[:len(y)-1], nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: expected ErrInvalidArgument for length mismatch, got %v", s, err)
		}
		if err := clf.Fit(nil, nil, nil); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: expected ErrInvalidArgument for empty input, got %v", s, err)
		}
		if err := clf.Fit(x, y, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := clf.PredictProba([][]float32{{1, 2}}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: expected ErrInvalidArgument for wrong dimension, got %v", s, err)
		}
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	if _, err := New("random_forest", DefaultOptions()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := ParseStrategy("self_training_svm"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	opts := DefaultOptions()
	opts.C = 0
	if _, err := New(StrategySigmoid, opts); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for C=0, got %v", err)
	}
}

func TestSelfTrainingAbsorbsConfidentUnlabeled(t *testing.T) {
	x, y := blobs(10, 4, 6)
	unlabeled, _ := blobs(50, 4, 7)

	clf := NewSelfTrainingSVM(DefaultOptions())
	if err := clf.Fit(x, y, unlabeled); err != nil {
		t.Fatal(err)
	}
	if clf.PseudoLabeled == 0 {
		t.Error("expected some unlabeled rows to be pseudo-labelled")
	}
	if clf.PseudoLabeled > len(unlabeled) {
		t.Errorf("pseudo-labelled %d rows out of %d", clf.PseudoLabeled, len(unlabeled))
	}
}

func TestSigmoidDegenerateRowsStillScored(t *testing.T) {
	x, y := blobs(10, 3, 8)
	clf := NewSigmoid(DefaultOptions())
	if err := clf.Fit(x, y, nil); err != nil {
		t.Fatal(err)
	}
	proba, err := clf.PredictProba([][]float32{{0, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if proba[0] < 0 || proba[0] > 1 {
		t.Errorf("expected probability in [0, 1], got %f", proba[0])
	}
}
