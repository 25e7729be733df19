// Package vrp classifies the volatility risk premium of an earnings event:
// how far the option-implied move exceeds the historically realized move.
package vrp

import (
	"fmt"
	"math"
)

// Tier is the VRP quality bucket
type Tier string

const (
	TierExcellent        Tier = "EXCELLENT"
	TierGood             Tier = "GOOD"
	TierMarginal         Tier = "MARGINAL"
	TierPoor             Tier = "POOR"
	TierNoHistoricalData Tier = "NO_HISTORICAL_DATA"
)

// DefaultMinPeriods is the number of past earnings moves needed before a
// historical average is trusted
const DefaultMinPeriods = 4

// Input is the raw VRP evidence for one underlying. HistoricalMoves are
// absolute or signed per-period moves in percent; when empty,
// HistoricalAvgMovePct and Periods are used as given.
type Input struct {
	ImpliedMovePct       float64   `json:"implied_move_pct"`
	HistoricalMoves      []float64 `json:"historical_moves,omitempty"`
	HistoricalAvgMovePct float64   `json:"historical_avg_move_pct,omitempty"`
	Periods              int       `json:"periods,omitempty"`
}

// Result is the classified VRP of one underlying
type Result struct {
	ImpliedMovePct       float64 `json:"implied_move_pct"`
	HistoricalAvgMovePct float64 `json:"historical_avg_move_pct"`
	Periods              int     `json:"periods"`
	Ratio                float64 `json:"ratio"`
	Tier                 Tier    `json:"tier"`
	Reason               string  `json:"reason,omitempty"`
}

// Excluded reports whether the result removes the underlying from scoring
func (r Result) Excluded() bool {
	return r.Tier == TierNoHistoricalData
}

// Classifier holds resolved cutoffs; safe for concurrent use
type Classifier struct {
	thresholds Thresholds
	minPeriods int
}

// NewClassifier creates a classifier. Thresholds must already be resolved and
// validated; minPeriods < 1 selects DefaultMinPeriods.
func NewClassifier(t Thresholds, minPeriods int) *Classifier {
	if minPeriods < 1 {
		minPeriods = DefaultMinPeriods
	}
	return &Classifier{thresholds: t, minPeriods: minPeriods}
}

// Thresholds returns the cutoffs in use
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// MinPeriods returns the minimum number of historical observations
func (c *Classifier) MinPeriods() int {
	return c.minPeriods
}

// Classify converts the input into a ratio and tier
func (c *Classifier) Classify(in Input) Result {
	avg, periods := historicalAverage(in)

	result := Result{
		ImpliedMovePct:       in.ImpliedMovePct,
		HistoricalAvgMovePct: avg,
		Periods:              periods,
	}

	switch {
	case periods < c.minPeriods:
		result.Tier = TierNoHistoricalData
		result.Reason = fmt.Sprintf("only %d historical periods, need %d", periods, c.minPeriods)
		return result
	case avg <= 0 || math.IsNaN(avg):
		result.Tier = TierNoHistoricalData
		result.Reason = "historical average move is zero"
		return result
	case in.ImpliedMovePct <= 0 || math.IsNaN(in.ImpliedMovePct):
		result.Tier = TierNoHistoricalData
		result.Reason = "implied move is not positive"
		return result
	}

	result.Ratio = in.ImpliedMovePct / avg
	result.Tier = c.tierFor(result.Ratio)
	return result
}

func (c *Classifier) tierFor(ratio float64) Tier {
	switch {
	case ratio >= c.thresholds.Excellent:
		return TierExcellent
	case ratio >= c.thresholds.Good:
		return TierGood
	case ratio >= c.thresholds.Marginal:
		return TierMarginal
	default:
		return TierPoor
	}
}

func historicalAverage(in Input) (float64, int) {
	if len(in.HistoricalMoves) == 0 {
		return in.HistoricalAvgMovePct, in.Periods
	}

	sum := 0.0
	for _, move := range in.HistoricalMoves {
		sum += math.Abs(move)
	}
	return sum / float64(len(in.HistoricalMoves)), len(in.HistoricalMoves)
}
