// Package perf aggregates per-trade P&L into performance statistics
package perf

import (
	"math"

	"github.com/shopspring/decimal"
)

// Stats summarizes a chronological sequence of trade P&Ls in dollars
type Stats struct {
	// Trade counts
	Trades int `json:"trades"`
	Wins   int `json:"wins"`   // P&L > 0
	Losses int `json:"losses"` // P&L < 0

	// P&L
	WinRate     float64 `json:"win_rate"`     // wins / trades, 0 with no trades
	TotalPnL    float64 `json:"total_pnl"`    // sum of trade P&L
	AvgPnL      float64 `json:"avg_pnl"`      // mean trade P&L
	GrossProfit float64 `json:"gross_profit"` // sum of winning P&L
	GrossLoss   float64 `json:"gross_loss"`   // sum of losing P&L, positive
	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"` // positive

	// Risk-adjusted
	Sharpe       float64 `json:"sharpe"`        // mean / sample stdev, per trade
	Sortino      float64 `json:"sortino"`       // mean / sample stdev of losing trades
	MaxDrawdown  float64 `json:"max_drawdown"`  // largest peak-to-trough of cumulative P&L, dollars
	ProfitFactor float64 `json:"profit_factor"` // gross profit / gross loss, 0 when nothing was lost
}

// Calculate computes Stats over pnls in the order given. Order matters only
// for MaxDrawdown. Every division is guarded and yields 0 rather than NaN.
func Calculate(pnls []float64) Stats {
	stats := Stats{Trades: len(pnls)}
	if len(pnls) == 0 {
		return stats
	}

	total := decimal.Zero
	profit := decimal.Zero
	loss := decimal.Zero
	losing := make([]float64, 0, len(pnls))

	for _, pnl := range pnls {
		d := decimal.NewFromFloat(pnl)
		total = total.Add(d)
		switch {
		case pnl > 0:
			stats.Wins++
			profit = profit.Add(d)
		case pnl < 0:
			stats.Losses++
			loss = loss.Sub(d)
			losing = append(losing, pnl)
		}
	}

	n := decimal.NewFromInt(int64(len(pnls)))
	stats.TotalPnL = total.InexactFloat64()
	stats.AvgPnL = total.Div(n).InexactFloat64()
	stats.WinRate = float64(stats.Wins) / float64(stats.Trades)
	stats.GrossProfit = profit.InexactFloat64()
	stats.GrossLoss = loss.InexactFloat64()

	if stats.Wins > 0 {
		stats.AvgWin = profit.Div(decimal.NewFromInt(int64(stats.Wins))).InexactFloat64()
	}
	if stats.Losses > 0 {
		stats.AvgLoss = loss.Div(decimal.NewFromInt(int64(stats.Losses))).InexactFloat64()
	}
	if loss.IsPositive() {
		stats.ProfitFactor = profit.Div(loss).InexactFloat64()
	}

	stats.Sharpe = ratio(stats.AvgPnL, SampleStdDev(pnls))
	if len(losing) >= 2 {
		stats.Sortino = ratio(stats.AvgPnL, SampleStdDev(losing))
	}
	stats.MaxDrawdown = MaxDrawdown(pnls)

	return stats
}

func ratio(mean, stdev float64) float64 {
	if stdev == 0 || math.IsNaN(stdev) {
		return 0
	}
	return mean / stdev
}

// SampleStdDev is the n-1 standard deviation; 0 for fewer than two values
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// Cumulative returns the running sum of pnls starting from zero equity
func Cumulative(pnls []float64) []float64 {
	curve := make([]float64, len(pnls))
	equity := 0.0
	for i, pnl := range pnls {
		equity += pnl
		curve[i] = equity
	}
	return curve
}

// MaxDrawdown is the largest drop of cumulative P&L from a prior peak. The
// starting equity of zero counts as a peak, so an opening loss is a drawdown.
func MaxDrawdown(pnls []float64) float64 {
	peak := 0.0
	maxDD := 0.0
	for _, equity := range Cumulative(pnls) {
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
