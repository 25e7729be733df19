package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/ivcrush/internal/backtest"
	"github.com/sawpanic/ivcrush/internal/report/perf"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestProgressIndicator_Line(t *testing.T) {
	var out bytes.Buffer
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	pi := NewProgressIndicator(&out, "backtest", 4, ProgressConfig{ShowProgress: true, ShowETA: true})
	pi.startTime = start
	pi.now = func() time.Time { return start.Add(10 * time.Second) }

	pi.Update(1, "ACME")
	line := out.String()
	assert.Contains(t, line, "backtest [#####...............] 1/4 (25.0%)")
	assert.Contains(t, line, "ETA: 30s - ACME")

	pi.FinishWithMessage("done")
	assert.Contains(t, out.String(), "backtest: done (10s)\n")
}

func TestProgressIndicator_Quiet(t *testing.T) {
	var out bytes.Buffer
	pi := NewProgressIndicator(&out, "quiet", 3, QuietProgressConfig())
	pi.Update(1, "")
	pi.Update(2, "halfway")
	assert.Empty(t, out.String())

	silent := NewProgressIndicator(nil, "nil", 3, DefaultProgressConfig())
	silent.Update(1, "")
	silent.FinishWithMessage("done")
}

func TestBacktestProgress_Observer(t *testing.T) {
	logs := captureLogs(t)
	var out bytes.Buffer

	bp := NewBacktestProgress(&out, ProgressConfig{ShowProgress: true})
	bp.LogEvery = 2

	var obs backtest.Observer = bp
	obs.RunStarted("balanced", 3)
	obs.EventProcessed("balanced", 0, 3, []backtest.Trade{{Symbol: "ACME", PnL: 10}}, nil)
	obs.EventProcessed("balanced", 1, 3, nil, &backtest.Skip{Symbol: "BETA", Reason: "no candidate strategies"})
	obs.EventProcessed("balanced", 2, 3, []backtest.Trade{{Symbol: "GAMA"}, {Symbol: "GAMA"}}, nil)
	obs.RunFinished("balanced", &backtest.Result{Config: "balanced", Stats: perf.Stats{Trades: 3, TotalPnL: 10}})

	trades, skips := bp.Counts()
	assert.Equal(t, 3, trades)
	assert.Equal(t, 1, skips)

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"message":"Backtest started"`)
	assert.Contains(t, lines[1], `"processed":2`)
	assert.Contains(t, lines[2], `"processed":3`)
	assert.Contains(t, lines[2], `"trades":3`)

	assert.Contains(t, out.String(), "3/3 (100.0%) - 3 trades, 1 skips")
	assert.Contains(t, out.String(), "3 trades, P&L $10.00")
}

func TestSetup_Levels(t *testing.T) {
	prevLevel := zerolog.GlobalLevel()
	prevLogger := log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prevLogger
	})

	require.NoError(t, Setup("WARN", FormatJSON, os.Stderr))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	assert.Error(t, Setup("loud", FormatJSON, os.Stderr))
	assert.Error(t, Setup("", FormatJSON, os.Stderr))
}

func TestWriter_Formats(t *testing.T) {
	assert.Equal(t, os.Stderr, Writer(FormatJSON, os.Stderr))
	_, ok := Writer(FormatConsole, os.Stderr).(zerolog.ConsoleWriter)
	assert.True(t, ok)
}
