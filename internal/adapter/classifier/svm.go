package classifier

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

const (
	svmTolerance = 1e-3
	// plattC keeps the calibration fit finite on separable decision values.
	plattC = 1e3
)

// linearSVM is a soft-margin linear SVM with a Platt-scaled probability output.
type linearSVM struct {
	weights []float64
	bias    float64
	platt   *logisticModel
}

// fitLinearSVM solves the hinge-loss dual by coordinate descent. The bias is
// learned as the weight of an implicit constant feature.
func fitLinearSVM(x [][]float64, y []bool, c float64, maxIter int, rng *rand.Rand) (*linearSVM, error) {
	n, dim := len(x), len(x[0])
	alpha := make([]float64, n)
	w := make([]float64, dim)
	var b float64

	sign := make([]float64, n)
	qii := make([]float64, n)
	for i, row := range x {
		sign[i] = -1
		if y[i] {
			sign[i] = 1
		}
		qii[i] = floats.Dot(row, row) + 1
	}

	for iter := 0; iter < maxIter; iter++ {
		maxPG, minPG := math.Inf(-1), math.Inf(1)
		for _, i := range rng.Perm(n) {
			g := sign[i]*(floats.Dot(w, x[i])+b) - 1

			pg := g
			switch {
			case alpha[i] == 0:
				pg = math.Min(g, 0)
			case alpha[i] == c:
				pg = math.Max(g, 0)
			}
			maxPG = math.Max(maxPG, pg)
			minPG = math.Min(minPG, pg)

			if math.Abs(pg) < 1e-12 {
				continue
			}
			old := alpha[i]
			alpha[i] = math.Min(math.Max(alpha[i]-g/qii[i], 0), c)
			delta := (alpha[i] - old) * sign[i]
			floats.AddScaled(w, delta, x[i])
			b += delta
		}
		if maxPG-minPG < svmTolerance {
			break
		}
	}

	m := &linearSVM{weights: w, bias: b}

	// Platt scaling with smoothed targets on the training decision values.
	var pos int
	for _, label := range y {
		if label {
			pos++
		}
	}
	hi := (float64(pos) + 1) / (float64(pos) + 2)
	lo := 1 / (float64(n-pos) + 2)
	decisions := make([][]float64, n)
	targets := make([]float64, n)
	ones := make([]float64, n)
	for i, row := range x {
		decisions[i] = []float64{m.decision(row)}
		targets[i] = lo
		if y[i] {
			targets[i] = hi
		}
		ones[i] = 1
	}
	platt, err := fitLogistic(decisions, targets, ones, plattC, 100)
	if err != nil {
		return nil, err
	}
	m.platt = platt
	return m, nil
}

func (m *linearSVM) decision(row []float64) float64 {
	return floats.Dot(m.weights, row) + m.bias
}

func (m *linearSVM) proba(row []float64) float64 {
	return m.platt.proba([]float64{m.decision(row)})
}
