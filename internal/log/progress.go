package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/ivcrush/internal/backtest"
)

// ProgressIndicator renders a single-line progress bar for long backtests
type ProgressIndicator struct {
	mu           sync.Mutex
	out          io.Writer
	name         string
	total        int
	current      int
	startTime    time.Time
	now          func() time.Time
	frame        int
	showSpinner  bool
	showProgress bool
	showETA      bool
}

// ProgressConfig configures progress indicator behavior
type ProgressConfig struct {
	ShowSpinner  bool
	ShowProgress bool
	ShowETA      bool
}

var spinnerFrames = []string{"-", "\\", "|", "/"}

// NewProgressIndicator creates a progress indicator writing to out. A nil
// out disables rendering.
func NewProgressIndicator(out io.Writer, name string, total int, config ProgressConfig) *ProgressIndicator {
	return &ProgressIndicator{
		out:          out,
		name:         name,
		total:        total,
		startTime:    time.Now(),
		now:          time.Now,
		showSpinner:  config.ShowSpinner,
		showProgress: config.ShowProgress,
		showETA:      config.ShowETA,
	}
}

// Update sets progress and displays an optional message
func (pi *ProgressIndicator) Update(current int, message string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.current = current
	pi.render(message)
}

// FinishWithMessage completes the progress line
func (pi *ProgressIndicator) FinishWithMessage(message string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	if pi.out == nil {
		return
	}
	duration := pi.now().Sub(pi.startTime)
	fmt.Fprintf(pi.out, "\r\033[K%s: %s (%v)\n", pi.name, message, duration.Round(time.Millisecond))
}

func (pi *ProgressIndicator) render(message string) {
	if pi.out == nil || !(pi.showSpinner || pi.showProgress || pi.showETA) {
		return
	}
	fmt.Fprint(pi.out, pi.line(message))
}

// line builds the progress line; the caller holds mu
func (pi *ProgressIndicator) line(message string) string {
	var output strings.Builder

	// Clear line and return to beginning
	output.WriteString("\r\033[K")

	if pi.showSpinner {
		output.WriteString(spinnerFrames[pi.frame%len(spinnerFrames)])
		output.WriteString(" ")
		pi.frame++
	}

	output.WriteString(pi.name)

	if pi.showProgress && pi.total > 0 {
		percentage := float64(pi.current) / float64(pi.total) * 100
		barWidth := 20
		filled := barWidth * pi.current / pi.total

		output.WriteString(" [")
		output.WriteString(strings.Repeat("#", filled))
		output.WriteString(strings.Repeat(".", barWidth-filled))
		output.WriteString(fmt.Sprintf("] %d/%d (%.1f%%)", pi.current, pi.total, percentage))
	} else if pi.total > 0 {
		output.WriteString(fmt.Sprintf(" (%d/%d)", pi.current, pi.total))
	}

	if pi.showETA && pi.total > 0 && pi.current > 0 {
		elapsed := pi.now().Sub(pi.startTime)
		perStep := elapsed / time.Duration(pi.current)
		eta := perStep * time.Duration(pi.total-pi.current)
		output.WriteString(fmt.Sprintf(" ETA: %v", eta.Round(time.Second)))
	}

	if message != "" {
		output.WriteString(" - ")
		output.WriteString(message)
	}
	return output.String()
}

// DefaultProgressConfig shows bar, spinner and ETA
func DefaultProgressConfig() ProgressConfig {
	return ProgressConfig{ShowSpinner: true, ShowProgress: true, ShowETA: true}
}

// QuietProgressConfig renders nothing; structured log lines still flow
func QuietProgressConfig() ProgressConfig {
	return ProgressConfig{}
}

// BacktestProgress is a backtest.Observer that drives a progress bar and logs
// a structured line every LogEvery processed events
type BacktestProgress struct {
	out      io.Writer
	config   ProgressConfig
	LogEvery int

	mu       sync.Mutex
	progress *ProgressIndicator
	trades   int
	skips    int
}

// NewBacktestProgress creates a progress observer. out may be nil for
// log-only progress.
func NewBacktestProgress(out io.Writer, config ProgressConfig) *BacktestProgress {
	return &BacktestProgress{out: out, config: config, LogEvery: 100}
}

func (bp *BacktestProgress) RunStarted(config string, events int) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.progress = NewProgressIndicator(bp.out, "backtest "+config, events, bp.config)
	bp.trades, bp.skips = 0, 0

	log.Info().
		Str("config", config).
		Int("events", events).
		Msg("Backtest started")
}

func (bp *BacktestProgress) EventProcessed(config string, index, total int, trades []backtest.Trade, skip *backtest.Skip) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.trades += len(trades)
	if skip != nil {
		bp.skips++
	}
	done := index + 1
	if bp.progress != nil {
		bp.progress.Update(done, fmt.Sprintf("%d trades, %d skips", bp.trades, bp.skips))
	}
	if bp.LogEvery > 0 && (done%bp.LogEvery == 0 || done == total) {
		log.Info().
			Str("config", config).
			Int("processed", done).
			Int("total", total).
			Int("trades", bp.trades).
			Int("skips", bp.skips).
			Msg("Backtest progress")
	}
}

func (bp *BacktestProgress) RunFinished(config string, result *backtest.Result) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if bp.progress != nil {
		bp.progress.FinishWithMessage(fmt.Sprintf("%d trades, P&L $%.2f", result.Stats.Trades, result.Stats.TotalPnL))
	}
}

// Counts returns trades and skips seen in the current run
func (bp *BacktestProgress) Counts() (trades, skips int) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.trades, bp.skips
}
