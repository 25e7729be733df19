package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/ivcrush/internal/application"
	"github.com/sawpanic/ivcrush/internal/backtest"
	"github.com/sawpanic/ivcrush/internal/backtest/artifacts"
	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/domain/strategy"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error", "--env", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func condor(symbol string) strategy.Strategy {
	return strategy.Strategy{
		Symbol:     symbol,
		Expiration: time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC),
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

func TestConfigsList(t *testing.T) {
	out, err := run(t, "configs", "list")
	require.NoError(t, err)
	for _, name := range config.PresetNames() {
		assert.Contains(t, out, name)
	}
}

func TestConfigsExportThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	_, err := run(t, "configs", "export", path)
	require.NoError(t, err)

	out, err := run(t, "configs", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "6 configs")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("configs:\n  - name: x\n    weights: {pop: 10}\n"), 0644))
	_, err = run(t, "configs", "validate", path, bad)
	assert.Error(t, err)
}

func TestScore_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	data, err := json.Marshal(application.RankInput{
		Symbol:          "ACME",
		ImpliedMovePct:  8,
		HistoricalMoves: []float64{3, 4, 3.5, 4.5},
		Candidates:      []strategy.Strategy{condor("ACME")},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	out, err := run(t, "score", "--input", path, "--config-name", "balanced", "--json")
	require.NoError(t, err)

	var outcome application.RankOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome), out)
	assert.Equal(t, "balanced", outcome.Config)
	assert.Equal(t, "ACME", outcome.Symbol)
	assert.Len(t, outcome.Ranking.Ranked, 1)
}

func TestScore_UnknownConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbol: ACME\nimplied_move_pct: 8\n"), 0644))

	_, err := run(t, "score", "--input", path, "--config-name", "nope")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestCompare_WritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	dsPath := filepath.Join(dir, "events.json")
	ev := func(symbol string, realized float64) backtest.Event {
		return backtest.Event{
			Symbol:          symbol,
			Date:            time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC),
			Price:           100,
			ImpliedMovePct:  8,
			HistoricalMoves: []float64{3, 4, 3.5, 4.5},
			RealizedMovePct: realized,
			Candidates:      []strategy.Strategy{condor(symbol)},
		}
	}
	require.NoError(t, artifacts.SaveDataset(backtest.Dataset{ev("ACME", 3), ev("BETA", -12)}, dsPath))

	outDir := filepath.Join(dir, "out")
	out, err := run(t, "compare", "-d", dsPath, "--configs", "balanced,legacy", "-o", outDir, "--no-store", "--json")
	require.NoError(t, err)

	var outcome application.CompareOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome), out)
	assert.Len(t, outcome.Comparison.Ranked, 2)

	reports, err := filepath.Glob(filepath.Join(outDir, "*", "*.md"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	snapshot, err := artifacts.LoadDataset(filepath.Join(filepath.Dir(reports[0]), "dataset.json"))
	require.NoError(t, err)
	assert.Len(t, snapshot, 2)
}

func TestBacktest_BadDates(t *testing.T) {
	_, err := run(t, "backtest", "-d", "missing.json", "--start", "2024-13-01")
	assert.Error(t, err)

	_, err = run(t, "backtest", "-d", "missing.json", "--start", "2024-05-01", "--end", "2024-04-01")
	assert.Error(t, err)
}
