package classifier

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports malformed training or prediction input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFitted is returned when predicting before a successful Fit.
	ErrNotFitted = errors.New("classifier not fitted")
)

// GridSearchError means no regularisation strength could be chosen.
// Callers fall back to the default C.
type GridSearchError struct {
	Reason string
	Err    error
}

func (e *GridSearchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("grid search: %s: %v", e.Reason, e.Err)
	}
	return "grid search: " + e.Reason
}

// Unwrap lets errors.Is match ErrInvalidArgument.
func (e *GridSearchError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidArgument
}

func checkShapes(x [][]float32, y []bool) error {
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d embeddings but %d labels", ErrInvalidArgument, len(x), len(y))
	}
	if len(x) == 0 {
		return fmt.Errorf("%w: no training samples", ErrInvalidArgument)
	}
	dim := len(x[0])
	for i, row := range x {
		if len(row) != dim {
			return fmt.Errorf("%w: row %d has dimension %d, expected %d", ErrInvalidArgument, i, len(row), dim)
		}
	}
	return nil
}
