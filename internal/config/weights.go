package config

import (
	"errors"
	"fmt"
	"math"
)

// WeightTotal is the sum every ScoringWeights must reach
const WeightTotal = 100.0

// weightSumTolerance absorbs float representation error only (e.g. 33.3+33.3+33.4)
const weightSumTolerance = 1e-9

// ErrInvalidWeights is returned when weights are negative or do not sum to 100
var ErrInvalidWeights = errors.New("invalid scoring weights")

// ScoringWeights allocates the 100 points of the composite score
type ScoringWeights struct {
	POP       float64 `yaml:"pop" json:"pop"`
	Liquidity float64 `yaml:"liquidity" json:"liquidity"`
	VRP       float64 `yaml:"vrp" json:"vrp"`
	Edge      float64 `yaml:"edge" json:"edge"`
	Greeks    float64 `yaml:"greeks" json:"greeks"`
	Size      float64 `yaml:"size" json:"size"`
}

// Sum returns the total of all six weights
func (w ScoringWeights) Sum() float64 {
	return w.POP + w.Liquidity + w.VRP + w.Edge + w.Greeks + w.Size
}

// Validate checks non-negativity and the sum-to-100 constraint
func (w ScoringWeights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"pop", w.POP},
		{"liquidity", w.Liquidity},
		{"vrp", w.VRP},
		{"edge", w.Edge},
		{"greeks", w.Greeks},
		{"size", w.Size},
	}

	for _, f := range fields {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s weight %.3f must be a non-negative number", ErrInvalidWeights, f.name, f.value)
		}
	}

	if total := w.Sum(); math.Abs(total-WeightTotal) > weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %.6f, must equal %.0f", ErrInvalidWeights, total, WeightTotal)
	}
	return nil
}
