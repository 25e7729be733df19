package config

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/ivcrush/internal/score/liquidity"
	"github.com/sawpanic/ivcrush/internal/score/vrp"
)

func validSpec() Spec {
	return Spec{
		Name:    "test",
		Weights: ScoringWeights{POP: 30, Liquidity: 20, VRP: 20, Edge: 15, Greeks: 10, Size: 5},
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	cfg, err := New(validSpec())
	require.NoError(t, err)

	assert.Equal(t, vrp.DefaultProfile, cfg.VRPProfile)
	assert.Equal(t, vrp.DefaultMinPeriods, cfg.MinPeriods)
	assert.Equal(t, liquidity.DefaultThresholds(), cfg.Liquidity)
	assert.Equal(t, liquidity.AssumeExcellent, cfg.MissingData)
	assert.Equal(t, DefaultLiquidityScores(), cfg.LiqScores)
	assert.Equal(t, DefaultTargets(), cfg.Targets)
	assert.Equal(t, DefaultSizing(), cfg.Sizing)
	assert.Equal(t, 1, cfg.MaxPositions)
}

func TestNew_RejectsBadWeights(t *testing.T) {
	spec := validSpec()
	spec.Weights.Size = 6

	_, err := New(spec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidWeights))
}

func TestNew_RejectsThresholdOrder(t *testing.T) {
	spec := validSpec()
	good := 2.5
	spec.VRP.Overrides = vrp.Overrides{Good: &good}

	_, err := New(spec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vrp.ErrThresholdOrder))
}

func TestNew_RejectsInvalidFields(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"empty name", func(s *Spec) { s.Name = "  " }},
		{"min score over 100", func(s *Spec) { s.MinScore = 101 }},
		{"min score nan", func(s *Spec) { s.MinScore = math.NaN() }},
		{"negative positions", func(s *Spec) { s.MaxPositions = -1 }},
		{"negative periods", func(s *Spec) { s.VRP.MinPeriods = -2 }},
		{"unknown policy", func(s *Spec) { s.Liquidity.MissingData = "assume_nothing" }},
		{"pop target above one", func(s *Spec) {
			tg := DefaultTargets()
			tg.POP = 1.2
			s.Targets = &tg
		}},
		{"decreasing liquidity scores", func(s *Spec) {
			s.Liquidity.Scores = &LiquidityScores{Excellent: 0.5, Good: 0.75, Warning: 0.5}
		}},
		{"kelly above one", func(s *Spec) {
			s.Sizing = &SizingSettings{KellyFraction: 1.5, MinContracts: 1}
		}},
		{"max below min contracts", func(s *Spec) {
			s.Sizing = &SizingSettings{KellyFraction: 0.25, MinContracts: 3, MaxContracts: 2}
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec := validSpec()
			tc.mutate(&spec)
			_, err := New(spec)
			assert.Error(t, err)
		})
	}
}

func TestNew_LiquidityThresholdsValidated(t *testing.T) {
	spec := validSpec()
	th := liquidity.DefaultThresholds()
	th.WarningMinOI = 50 // below the reject floor
	spec.Liquidity.Thresholds = &th

	_, err := New(spec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, liquidity.ErrThresholdOrder))
}

func TestFingerprint_StableAndSensitive(t *testing.T) {
	a := MustNew(validSpec())
	b := MustNew(validSpec())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	spec := validSpec()
	spec.MinScore = 10
	c := MustNew(spec)
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestLiquidityScores_Fraction(t *testing.T) {
	s := DefaultLiquidityScores()
	assert.Equal(t, 1.0, s.Fraction(liquidity.TierExcellent))
	assert.Equal(t, 0.75, s.Fraction(liquidity.TierGood))
	assert.Equal(t, 0.5, s.Fraction(liquidity.TierWarning))
	assert.Equal(t, 0.0, s.Fraction(liquidity.TierReject))
}
