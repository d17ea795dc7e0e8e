package classifier

import "alsampler/internal/adapter/vecmath"

// normalize is the first stage of every strategy: rows are scaled to unit
// L2 norm. Degenerate rows become zero vectors so they still get a score.
func normalize(x [][]float32) [][]float64 {
	rows, valid := vecmath.NormalizeRows(x)
	for i := range rows {
		if !valid[i] {
			rows[i] = make([]float64, len(x[i]))
		}
	}
	return rows
}

// constant holds the prediction of a single-class fit.
type constant struct {
	set   bool
	value float64
}

func singleClass(y []bool) (constant, bool) {
	for _, label := range y[1:] {
		if label != y[0] {
			return constant{}, false
		}
	}
	if y[0] {
		return constant{set: true, value: 1}, true
	}
	return constant{set: true, value: 0}, true
}

func (c constant) fill(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = c.value
	}
	return out
}
