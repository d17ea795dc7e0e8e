package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// logisticModel is a linear model scored through the logistic function.
type logisticModel struct {
	weights []float64
	bias    float64
}

// fitLogistic minimises
//
//	0.5*||w||^2 + c * sum_i weight_i * crossEntropy(target_i, sigmoid(w.x_i + b))
//
// with L-BFGS. The intercept is not penalised. Targets may be soft.
func fitLogistic(x [][]float64, targets, weights []float64, c float64, maxIter int) (*logisticModel, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("%w: no training samples", ErrInvalidArgument)
	}
	dim := len(x[0])
	z := make([]float64, len(x))

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			w, b := p[:dim], p[dim]
			loss := 0.5 * floats.Dot(w, w)
			for i, row := range x {
				z[i] = floats.Dot(w, row) + b
				loss += c * weights[i] * (softplus(z[i]) - targets[i]*z[i])
			}
			return loss
		},
		Grad: func(grad, p []float64) {
			w, b := p[:dim], p[dim]
			copy(grad[:dim], w)
			grad[dim] = 0
			for i, row := range x {
				residual := c * weights[i] * (sigmoid(floats.Dot(w, row)+b) - targets[i])
				floats.AddScaled(grad[:dim], residual, row)
				grad[dim] += residual
			}
		},
	}

	settings := &optimize.Settings{
		GradientThreshold: 1e-6,
		MajorIterations:   maxIter,
	}
	result, err := optimize.Minimize(problem, make([]float64, dim+1), settings, &optimize.LBFGS{})
	if result == nil || result.X == nil {
		return nil, fmt.Errorf("logistic fit: %w", err)
	}
	// Line-search stalls still leave a usable iterate.
	params := result.X
	for _, v := range params {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("logistic fit diverged")
		}
	}
	return &logisticModel{
		weights: append([]float64(nil), params[:dim]...),
		bias:    params[dim],
	}, nil
}

func (m *logisticModel) decision(row []float64) float64 {
	return floats.Dot(m.weights, row) + m.bias
}

func (m *logisticModel) proba(row []float64) float64 {
	return sigmoid(m.decision(row))
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1+exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

// balancedWeights gives each class a total weight of n/2, matching
// n_samples / (n_classes * count(class)).
func balancedWeights(y []bool) []float64 {
	var pos int
	for _, label := range y {
		if label {
			pos++
		}
	}
	neg := len(y) - pos
	n := float64(len(y))
	weights := make([]float64, len(y))
	for i, label := range y {
		if label {
			weights[i] = n / (2 * float64(pos))
		} else {
			weights[i] = n / (2 * float64(neg))
		}
	}
	return weights
}

func hardTargets(y []bool) []float64 {
	targets := make([]float64, len(y))
	for i, label := range y {
		if label {
			targets[i] = 1
		}
	}
	return targets
}
