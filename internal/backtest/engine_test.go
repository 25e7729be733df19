package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/domain/strategy"
)

func testConfig(t *testing.T, name string, minScore float64) *config.ScoringConfig {
	t.Helper()
	cfg, err := config.New(config.Spec{
		Name:         name,
		Weights:      config.ScoringWeights{POP: 30, Liquidity: 20, VRP: 20, Edge: 15, Greeks: 10, Size: 5},
		MinScore:     minScore,
		MaxPositions: 1,
	})
	require.NoError(t, err)
	return cfg
}

func day(d int) time.Time {
	return time.Date(2024, 4, d, 0, 0, 0, 0, time.UTC)
}

// condor around 100 with 90/110 shorts, $150 credit and $350 max loss
func condor(symbol string) strategy.Strategy {
	return strategy.Strategy{
		Symbol:     symbol,
		Expiration: day(26),
		Kind:       strategy.KindIronCondor,
		Legs: []strategy.Leg{
			{Type: strategy.Put, Role: strategy.Long, Strike: 85},
			{Type: strategy.Put, Role: strategy.Short, Strike: 90},
			{Type: strategy.Call, Role: strategy.Short, Strike: 110},
			{Type: strategy.Call, Role: strategy.Long, Strike: 115},
		},
		Credit:     150,
		MaxLoss:    350,
		Breakevens: []float64{88.5, 111.5},
		POP:        0.78,
		RewardRisk: 0.5,
		Greeks:     &strategy.Greeks{Theta: 0.05, Vega: -0.10},
	}
}

func event(symbol string, date time.Time, realized float64, history []float64) Event {
	return Event{
		Symbol:          symbol,
		Date:            date,
		Price:           100,
		ImpliedMovePct:  8,
		HistoricalMoves: history,
		RealizedMovePct: realized,
		Candidates:      []strategy.Strategy{condor(symbol)},
	}
}

var history = []float64{3, 4, 3.5, 4.5}

func testDataset() Dataset {
	return Dataset{
		event("BETA", day(25), -12, history),
		event("ACME", day(25), 3, history),
		event("GAMA", day(29), 2, nil),
		event("LATE", day(30).AddDate(0, 1, 0), 1, history),
	}
}

func testEngine() *Engine {
	opts := DefaultOptions()
	opts.End = day(30)
	return NewEngine(opts)
}

func TestRun_WorkedExample(t *testing.T) {
	res, err := testEngine().Run(context.Background(), testDataset(), testConfig(t, "test", 50))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Events)
	require.Len(t, res.Trades, 2)

	// score 90, edge 0.17, f = 0.34, 100000 × 0.34 × 0.25 / 350 = 24.28
	acme := res.Trades[0]
	assert.Equal(t, "ACME", acme.Symbol)
	assert.Equal(t, 1, acme.Rank)
	assert.InDelta(t, 90, acme.Score, 1e-9)
	assert.Equal(t, 24, acme.Contracts)
	assert.False(t, acme.Fallback)
	assert.InDelta(t, 103, acme.ExitPrice, 1e-9)
	assert.InDelta(t, 150, acme.PnLPerContract, 1e-9)
	assert.InDelta(t, 3600, acme.PnL, 1e-9)
	assert.True(t, acme.Win())

	// exit 88: short 90 put is 2 in the money, 150 - 200 = -50
	beta := res.Trades[1]
	assert.Equal(t, "BETA", beta.Symbol)
	assert.InDelta(t, 88, beta.ExitPrice, 1e-9)
	assert.InDelta(t, -50, beta.PnLPerContract, 1e-9)
	assert.InDelta(t, -1200, beta.PnL, 1e-9)

	require.Len(t, res.Skips, 1)
	assert.Equal(t, "GAMA", res.Skips[0].Symbol)
	assert.Contains(t, res.Skips[0].Reason, "NO_HISTORICAL_DATA")

	assert.Equal(t, 2, res.Stats.Trades)
	assert.InDelta(t, 2400, res.Stats.TotalPnL, 1e-9)
	assert.InDelta(t, 0.5, res.Stats.WinRate, 1e-12)
	assert.InDelta(t, 1200, res.Stats.MaxDrawdown, 1e-9)
	assert.Equal(t, res.Fingerprint, testConfig(t, "test", 50).Fingerprint())
}

func TestRun_Idempotent(t *testing.T) {
	cfg := testConfig(t, "test", 50)
	ds := testDataset()

	first, err := testEngine().Run(context.Background(), ds, cfg)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.End = day(30)
	opts.Workers = 1
	second, err := NewEngine(opts).Run(context.Background(), ds, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_NothingEligible(t *testing.T) {
	res, err := testEngine().Run(context.Background(), testDataset(), testConfig(t, "strict", 95))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	require.Len(t, res.Skips, 3)
	assert.Contains(t, res.Skips[0].Reason, "no eligible strategy")
	assert.Zero(t, res.Stats.Sharpe)
	assert.Zero(t, res.Stats.WinRate)
}

func TestRun_NoCandidates(t *testing.T) {
	ev := event("ACME", day(25), 3, history)
	ev.Candidates = nil

	res, err := testEngine().Run(context.Background(), Dataset{ev}, testConfig(t, "test", 50))
	require.NoError(t, err)
	require.Len(t, res.Skips, 1)
	assert.Equal(t, "no candidate strategies", res.Skips[0].Reason)
}

func TestRun_Errors(t *testing.T) {
	_, err := testEngine().Run(context.Background(), testDataset(), nil)
	assert.Error(t, err)

	_, err = NewEngine(Options{Capital: 0}).Run(context.Background(), testDataset(), testConfig(t, "test", 50))
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = testEngine().Run(ctx, testDataset(), testConfig(t, "test", 50))
	assert.ErrorIs(t, err, context.Canceled)
}

type recordingObserver struct {
	started  int
	indexes  []int
	finished *Result
}

func (r *recordingObserver) RunStarted(_ string, events int) { r.started = events }
func (r *recordingObserver) EventProcessed(_ string, index, _ int, _ []Trade, _ *Skip) {
	r.indexes = append(r.indexes, index)
}
func (r *recordingObserver) RunFinished(_ string, res *Result) { r.finished = res }

func TestRun_ObserverOrder(t *testing.T) {
	rec := &recordingObserver{}
	engine := testEngine()
	engine.SetObserver(MultiObserver{rec, NopObserver{}})

	res, err := engine.Run(context.Background(), testDataset(), testConfig(t, "test", 50))
	require.NoError(t, err)

	assert.Equal(t, 3, rec.started)
	assert.Equal(t, []int{0, 1, 2}, rec.indexes)
	assert.Same(t, res, rec.finished)
}

func TestCompare_Ranking(t *testing.T) {
	strict := testConfig(t, "strict", 95)
	normal := testConfig(t, "normal", 50)

	cmp, err := testEngine().Compare(context.Background(), testDataset(), []*config.ScoringConfig{strict, normal})
	require.NoError(t, err)

	require.Len(t, cmp.Results, 2)
	assert.Equal(t, "strict", cmp.Results[0].Config)
	assert.Equal(t, "normal", cmp.Results[1].Config)

	best, ok := cmp.Best()
	require.True(t, ok)
	assert.Equal(t, "normal", best.Config)
	assert.Equal(t, 1, best.Rank)
	assert.Equal(t, 2, cmp.Ranked[1].Rank)
	assert.NotEmpty(t, cmp.Ranked[0].Alerts)
	assert.NotEmpty(t, cmp.DatasetFingerprint)

	_, err = testEngine().Compare(context.Background(), testDataset(), nil)
	assert.Error(t, err)
}

func TestRankRows_TieBreaks(t *testing.T) {
	rows := []ComparisonRow{
		{Config: "b"},
		{Config: "a"},
		{Config: "c"},
	}
	rows[2].Stats.Sharpe = 0.5
	rows[0].Stats.TotalPnL = 10

	RankRows(rows)
	assert.Equal(t, "c", rows[0].Config)
	assert.Equal(t, "b", rows[1].Config)
	assert.Equal(t, "a", rows[2].Config)
}

func TestDatasetFingerprint(t *testing.T) {
	a, err := testDataset().Fingerprint()
	require.NoError(t, err)
	b, err := testDataset().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	changed := testDataset()
	changed[0].RealizedMovePct = -11
	c, err := changed.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
