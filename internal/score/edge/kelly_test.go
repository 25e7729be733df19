package edge

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate_NegativeEdgeScoresZero(t *testing.T) {
	c := NewCalculator(0.10, 15)

	result := c.Calculate(0.595, 0.38)
	assert.True(t, result.Valid)
	assert.InDelta(t, -0.1789, result.Edge, 1e-9)
	assert.Zero(t, result.Score)
	assert.False(t, result.Positive())

	// very high POP with tiny RR still negative
	result = c.Calculate(0.95, 0.02)
	assert.Less(t, result.Edge, 0.0)
	assert.Zero(t, result.Score)

	// zero edge is rejected as well
	result = c.Calculate(0.5, 1.0)
	assert.InDelta(t, 0.0, result.Edge, 1e-12)
	assert.Zero(t, result.Score)
}

func TestCalculate_PositiveEdgeScalesLinearly(t *testing.T) {
	c := NewCalculator(0.10, 15)

	result := c.Calculate(0.846, 0.21)
	assert.True(t, result.Positive())
	assert.InDelta(t, 0.02366, result.Edge, 1e-9)
	assert.InDelta(t, 3.549, result.Score, 1e-9)

	// capped at the weight once edge reaches the target
	result = c.Calculate(0.8, 0.5)
	assert.InDelta(t, 0.2, result.Edge, 1e-9)
	assert.Equal(t, 15.0, result.Score)
}

func TestCalculate_InvalidInputsDoNotPanic(t *testing.T) {
	c := NewCalculator(0, 15)
	assert.Equal(t, DefaultTarget, c.Target())

	for _, tc := range []struct{ pop, rr float64 }{
		{1.5, 0.3},
		{-0.1, 0.3},
		{math.NaN(), 0.3},
		{0.6, 0},
		{0.6, -1},
		{0.6, math.Inf(1)},
	} {
		result := c.Calculate(tc.pop, tc.rr)
		assert.False(t, result.Valid, "pop=%v rr=%v", tc.pop, tc.rr)
		assert.Zero(t, result.Edge)
		assert.Zero(t, result.Score)
		assert.NotEmpty(t, result.Reason)
	}
}

func TestKellyFraction(t *testing.T) {
	assert.InDelta(t, 0.2/0.5, KellyFraction(0.2, 0.5), 1e-12)
	assert.Zero(t, KellyFraction(-0.1, 0.5))
	assert.Zero(t, KellyFraction(0.1, 0))
}
