package sizing

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/score/composite"
	"github.com/sawpanic/ivcrush/internal/score/edge"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func request(pop, rr float64) Request {
	return Request{
		Symbol:             "ACME",
		Kind:               "iron_condor",
		Edge:               edge.NewCalculator(0.10, 15).Calculate(pop, rr),
		MaxLossPerContract: 350,
		Score:              80,
		AverageScore:       80,
		Capital:            100000,
	}
}

func TestSize_QuarterKelly(t *testing.T) {
	sizer := NewSizer(config.DefaultSizing())
	rec := sizer.Size(request(0.8, 0.5))

	// edge 0.20, f 0.40, quarter-Kelly 0.10 of $100k = $10k / $350
	assert.False(t, rec.Fallback)
	assert.InDelta(t, 0.4, rec.KellyFraction, 1e-9)
	assert.InDelta(t, 10000, rec.Notional, 1e-6)
	assert.Equal(t, 28, rec.Contracts)
	assert.InDelta(t, 9800, rec.MaxRisk, 1e-9)
}

func TestSize_VRPMultiplierScales(t *testing.T) {
	sizer := NewSizer(config.DefaultSizing())
	req := request(0.8, 0.5)
	req.Score = 100

	rec := sizer.Size(req)
	assert.InDelta(t, 1.25, rec.VRPMultiplier, 1e-9)
	assert.Equal(t, 35, rec.Contracts)
}

func TestSize_ClampedToBounds(t *testing.T) {
	settings := config.DefaultSizing()
	settings.MaxContracts = 20
	sizer := NewSizer(settings)

	rec := sizer.Size(request(0.8, 0.5))
	assert.Equal(t, 20, rec.Contracts)
	assert.True(t, rec.Capped)

	small := request(0.8, 0.5)
	small.Capital = 1000
	rec = sizer.Size(small)
	assert.Equal(t, 1, rec.Contracts)
	assert.False(t, rec.Fallback)
	assert.Contains(t, rec.Reason, "raised to minimum")
}

func TestSize_InvalidPOPFallsBackWithWarning(t *testing.T) {
	buf := captureLogs(t)
	sizer := NewSizer(config.DefaultSizing())

	var rec Recommendation
	require.NotPanics(t, func() { rec = sizer.Size(request(1.5, 0.5)) })

	assert.True(t, rec.Fallback)
	assert.Equal(t, 1, rec.Contracts)
	assert.Contains(t, rec.Reason, "invalid edge input")
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "Sizing fell back to minimum contracts")
}

func TestSize_FallbackCases(t *testing.T) {
	sizer := NewSizer(config.DefaultSizing())

	weak := request(0.68, 0.5)
	weak.Edge = edge.Result{Valid: true, POP: 0.68, RewardRisk: 0.5, Edge: 0.01}
	noLoss := request(0.8, 0.5)
	noLoss.MaxLossPerContract = 0
	broke := request(0.8, 0.5)
	broke.Capital = 0

	for name, req := range map[string]Request{"weak edge": weak, "no max loss": noLoss, "no capital": broke} {
		rec := sizer.Size(req)
		assert.True(t, rec.Fallback, name)
		assert.Equal(t, 1, rec.Contracts, name)
	}
}

func TestVRPMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, VRPMultiplier(70, 0))
	assert.Equal(t, 1.0, VRPMultiplier(70, -5))
	assert.InDelta(t, 0.875, VRPMultiplier(70, 80), 1e-12)
}

func TestSizeSelection(t *testing.T) {
	mk := func(final float64, eligible bool) composite.Scored {
		s := composite.Scored{Final: final, Gates: composite.GateResult{Allowed: eligible}}
		s.Strategy.Symbol = "ACME"
		s.Strategy.MaxLoss = 350
		s.Edge = edge.NewCalculator(0.10, 15).Calculate(0.8, 0.5)
		return s
	}
	ranking := composite.Ranking{Ranked: []composite.Scored{mk(90, true), mk(85, false), mk(70, true), mk(60, true)}}

	sized := NewSizer(config.DefaultSizing()).SizeSelection(ranking, 2, 100000)
	require.Len(t, sized, 2)
	assert.Equal(t, 90.0, sized[0].Scored.Final)
	assert.Equal(t, 70.0, sized[1].Scored.Final)

	// qualifying average = (90+70+60)/3
	assert.InDelta(t, 90.0/(220.0/3), sized[0].Recommendation.VRPMultiplier, 1e-9)
	assert.Greater(t, sized[0].Recommendation.Contracts, sized[1].Recommendation.Contracts)
}
