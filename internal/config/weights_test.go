package config

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoringWeights_SumTo100(t *testing.T) {
	w := ScoringWeights{POP: 30, Liquidity: 20, VRP: 20, Edge: 15, Greeks: 10, Size: 5}
	assert.NoError(t, w.Validate())
	assert.Equal(t, 100.0, w.Sum())
}

func TestScoringWeights_FloatTolerance(t *testing.T) {
	w := ScoringWeights{POP: 33.3, Liquidity: 33.3, VRP: 33.4}
	assert.NoError(t, w.Validate())
}

func TestScoringWeights_Rejects(t *testing.T) {
	testCases := []struct {
		name    string
		weights ScoringWeights
	}{
		{"sum 99", ScoringWeights{POP: 30, Liquidity: 20, VRP: 20, Edge: 15, Greeks: 9, Size: 5}},
		{"sum 101", ScoringWeights{POP: 31, Liquidity: 20, VRP: 20, Edge: 15, Greeks: 10, Size: 5}},
		{"negative", ScoringWeights{POP: 110, Liquidity: -10}},
		{"nan", ScoringWeights{POP: math.NaN(), Liquidity: 100}},
		{"all zero", ScoringWeights{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.weights.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidWeights))
		})
	}
}
