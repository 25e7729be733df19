package liquidity

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/ivcrush/internal/domain/strategy"
)

func snap(oi int, spread float64, vol int) *strategy.LiquiditySnapshot {
	return &strategy.LiquiditySnapshot{OpenInterest: oi, SpreadPct: spread, Volume: vol}
}

func TestAnalyzer_ClassifyLeg(t *testing.T) {
	a := NewAnalyzer(DefaultThresholds(), "")

	testCases := []struct {
		name     string
		snapshot strategy.LiquiditySnapshot
		expected Tier
	}{
		{"thin open interest", *snap(99, 2, 1000), TierReject},
		{"wide spread", *snap(10000, 51, 1000), TierReject},
		{"no volume", *snap(10000, 2, 9), TierReject},
		{"modest open interest", *snap(499, 2, 1000), TierWarning},
		{"spread above ten percent", *snap(10000, 10.5, 1000), TierWarning},
		{"light volume", *snap(10000, 2, 49), TierWarning},
		{"deep book", *snap(5000, 5, 500), TierExcellent},
		{"adequate", *snap(4999, 5, 500), TierGood},
		{"adequate spread", *snap(6000, 6, 800), TierGood},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tier, reason := a.ClassifyLeg(tc.snapshot)
			assert.Equal(t, tc.expected, tier)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestAnalyzer_CorruptQuotesReject(t *testing.T) {
	a := NewAnalyzer(DefaultThresholds(), AssumeExcellent)

	testCases := []struct {
		name     string
		snapshot *strategy.LiquiditySnapshot
	}{
		{"crossed quote", snap(9000, -20, 900)},
		{"nan spread", snap(9000, math.NaN(), 900)},
		{"infinite spread", snap(9000, math.Inf(1), 900)},
		{"negative open interest", snap(-1, 2, 900)},
		{"negative volume", snap(9000, 2, -5)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := strategy.Strategy{
				Kind: strategy.KindNaked,
				Legs: []strategy.Leg{{Type: strategy.Put, Role: strategy.Short, Strike: 95, Liquidity: tc.snapshot}},
			}
			result := a.Analyze(st)
			assert.Equal(t, TierReject, result.Tier)
			require.Len(t, result.Legs, 1)
			assert.Contains(t, result.Legs[0].Reason, "invalid")
		})
	}
}

func TestAnalyzer_WorstShortLegWins(t *testing.T) {
	a := NewAnalyzer(DefaultThresholds(), AssumeExcellent)

	condor := strategy.Strategy{
		Kind: strategy.KindIronCondor,
		Legs: []strategy.Leg{
			{Type: strategy.Put, Role: strategy.Long, Strike: 90, Liquidity: snap(5, 80, 0)},
			{Type: strategy.Put, Role: strategy.Short, Strike: 95, Liquidity: snap(20000, 1, 5000)},
			{Type: strategy.Call, Role: strategy.Short, Strike: 105, Liquidity: snap(50, 1, 5000)},
			{Type: strategy.Call, Role: strategy.Long, Strike: 110, Liquidity: snap(20000, 1, 5000)},
		},
	}

	result := a.Analyze(condor)
	assert.Equal(t, TierReject, result.Tier, "one rejected short leg rejects the package")
	require.Len(t, result.Legs, 2, "long legs are not evaluated")
	require.NotNil(t, result.Worst)
	assert.Equal(t, 105.0, result.Worst.Strike)

	// long wing alone being illiquid does not gate the strategy
	condor.Legs[2].Liquidity = snap(20000, 1, 5000)
	result = a.Analyze(condor)
	assert.Equal(t, TierExcellent, result.Tier)
}

func TestAnalyzer_MissingDataPolicy(t *testing.T) {
	spread := strategy.Strategy{
		Kind: strategy.KindVerticalCredit,
		Legs: []strategy.Leg{
			{Type: strategy.Put, Role: strategy.Short, Strike: 95},
			{Type: strategy.Put, Role: strategy.Long, Strike: 90},
		},
	}

	testCases := []struct {
		policy   MissingDataPolicy
		expected Tier
	}{
		{AssumeExcellent, TierExcellent},
		{AssumeGood, TierGood},
		{AssumeWarning, TierWarning},
	}

	for _, tc := range testCases {
		result := NewAnalyzer(DefaultThresholds(), tc.policy).Analyze(spread)
		assert.Equal(t, tc.expected, result.Tier, string(tc.policy))
		require.Len(t, result.Legs, 1)
		assert.True(t, result.Legs[0].Assumed)
	}
}

func TestAnalyzer_NoShortLegsEvaluatesAll(t *testing.T) {
	a := NewAnalyzer(DefaultThresholds(), AssumeExcellent)
	s := strategy.Strategy{
		Kind: strategy.KindNaked,
		Legs: []strategy.Leg{{Type: strategy.Call, Role: strategy.Long, Strike: 100, Liquidity: snap(300, 3, 100)}},
	}
	assert.Equal(t, TierWarning, a.Analyze(s).Tier)
}

func TestThresholds_Validate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.WarningMinOI = 50
	assert.ErrorIs(t, bad.Validate(), ErrThresholdOrder)

	bad = DefaultThresholds()
	bad.ExcellentMaxSpread = 20
	assert.ErrorIs(t, bad.Validate(), ErrThresholdOrder)

	bad = DefaultThresholds()
	bad.ExcellentMinVolume = 40
	assert.ErrorIs(t, bad.Validate(), ErrThresholdOrder)
}

func TestTier_OrderingAndText(t *testing.T) {
	assert.Equal(t, TierReject, Worst(TierExcellent, TierReject))
	assert.Equal(t, TierWarning, Worst(TierWarning, TierGood))

	data, err := json.Marshal(TierGood)
	require.NoError(t, err)
	assert.Equal(t, `"GOOD"`, string(data))

	var tier Tier
	require.NoError(t, json.Unmarshal([]byte(`"warning"`), &tier))
	assert.Equal(t, TierWarning, tier)

	_, err = ParseTier("superb")
	assert.Error(t, err)
}
