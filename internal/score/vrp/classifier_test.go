package vrp

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestClassifier_Tiers(t *testing.T) {
	c := NewClassifier(Thresholds{Excellent: 1.8, Good: 1.4, Marginal: 1.2}, 4)

	testCases := []struct {
		implied  float64
		expected Tier
	}{
		{10.0, TierExcellent}, // 2.0x
		{9.0, TierExcellent},  // 1.8x boundary
		{7.5, TierGood},       // 1.5x
		{6.0, TierMarginal},   // 1.2x boundary
		{5.5, TierPoor},       // 1.1x
	}

	for _, tc := range testCases {
		result := c.Classify(Input{
			ImpliedMovePct:  tc.implied,
			HistoricalMoves: []float64{5, -5, 4, 6},
		})
		assert.Equal(t, tc.expected, result.Tier, "implied=%.1f ratio=%.2f", tc.implied, result.Ratio)
		assert.InDelta(t, tc.implied/5.0, result.Ratio, 1e-9)
		assert.Equal(t, 4, result.Periods)
	}
}

func TestClassifier_InsufficientHistory(t *testing.T) {
	c := NewClassifier(Thresholds{Excellent: 1.8, Good: 1.4, Marginal: 1.2}, 4)

	result := c.Classify(Input{ImpliedMovePct: 12, HistoricalMoves: []float64{3, 4, 5}})
	assert.Equal(t, TierNoHistoricalData, result.Tier)
	assert.True(t, result.Excluded())
	assert.Zero(t, result.Ratio, "no fabricated ratio for excluded candidates")

	result = c.Classify(Input{ImpliedMovePct: 12, HistoricalAvgMovePct: 0, Periods: 8})
	assert.Equal(t, TierNoHistoricalData, result.Tier)
	assert.Zero(t, result.Ratio)

	result = c.Classify(Input{ImpliedMovePct: 0, HistoricalAvgMovePct: 4, Periods: 8})
	assert.Equal(t, TierNoHistoricalData, result.Tier)
}

func TestClassifier_PrecomputedAverage(t *testing.T) {
	c := NewClassifier(Thresholds{Excellent: 2.0, Good: 1.5, Marginal: 1.2}, 0)
	assert.Equal(t, DefaultMinPeriods, c.MinPeriods())

	result := c.Classify(Input{ImpliedMovePct: 8, HistoricalAvgMovePct: 4, Periods: 12})
	assert.Equal(t, TierExcellent, result.Tier)
	assert.InDelta(t, 2.0, result.Ratio, 1e-9)
}

func TestResolveThresholds(t *testing.T) {
	for _, name := range ProfileNames() {
		th, err := ResolveThresholds(Profile(name), Overrides{})
		require.NoError(t, err, name)
		assert.GreaterOrEqual(t, th.Excellent, th.Good, name)
		assert.GreaterOrEqual(t, th.Good, th.Marginal, name)
	}

	th, err := ResolveThresholds("", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, profiles[DefaultProfile], th)

	th, err = ResolveThresholds("aggressive", Overrides{Excellent: ptr(1.9)})
	require.NoError(t, err)
	assert.Equal(t, 1.9, th.Excellent)
	assert.Equal(t, 1.3, th.Good, "non-overridden fields fall back to the profile")

	_, err = ResolveThresholds(ProfileBalanced, Overrides{Good: ptr(2.5)})
	assert.ErrorIs(t, err, ErrThresholdOrder)

	_, err = ResolveThresholds(ProfileBalanced, Overrides{Marginal: ptr(0)})
	assert.ErrorIs(t, err, ErrThresholdOrder)

	_, err = ResolveThresholds("EXTREME", Overrides{})
	assert.Error(t, err)
}

func TestResolveThresholds_OverrideWarning(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	const warning = "VRP threshold overrides applied on top of named profile"

	_, err := ResolveThresholds("", Overrides{Excellent: ptr(1.9)})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), warning, "default profile takes overrides silently")

	_, err = ResolveThresholds(ProfileBalanced, Overrides{})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), warning, "named profile without overrides")

	_, err = ResolveThresholds(ProfileBalanced, Overrides{Excellent: ptr(1.9)})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), warning)
	assert.Contains(t, buf.String(), `"profile":"BALANCED"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
