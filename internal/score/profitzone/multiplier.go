// Package profitzone penalizes double-sided strategies whose profitable
// range is narrow relative to the expected earnings move.
package profitzone

import "math"

const (
	// Floor is the smallest multiplier ever applied
	Floor = 0.3
	// Ceiling means no penalty
	Ceiling = 1.0
)

// segment is one linear piece: ratios in [lo, hi) map linearly onto [from, to]
type segment struct {
	lo, hi   float64
	from, to float64
}

var segments = []segment{
	{lo: 0.20, hi: 0.40, from: 0.50, to: 0.70},
	{lo: 0.40, hi: 0.70, from: 0.70, to: 0.90},
	{lo: 0.70, hi: 1.00, from: 0.90, to: 1.00},
}

// Result describes how the multiplier was derived
type Result struct {
	ZoneWidth  float64 `json:"zone_width"`
	ZonePct    float64 `json:"zone_pct"`
	Ratio      float64 `json:"ratio"`
	Multiplier float64 `json:"multiplier"`
	Applied    bool    `json:"applied"`
}

// Penalized reports whether the multiplier reduces the score
func (r Result) Penalized() bool {
	return r.Applied && r.Multiplier < Ceiling
}

// Compute returns the profit-zone multiplier for a strategy's breakevens.
// Single-breakeven strategies are exempt.
func Compute(breakevens []float64, impliedMovePct float64) Result {
	if len(breakevens) != 2 {
		return Result{Multiplier: Ceiling}
	}

	low, high := breakevens[0], breakevens[1]
	result := Result{Applied: true, ZoneWidth: high - low}

	mid := (low + high) / 2
	if result.ZoneWidth <= 0 || mid <= 0 {
		result.Multiplier = Floor
		return result
	}

	result.ZonePct = result.ZoneWidth / mid * 100
	if impliedMovePct <= 0 || math.IsNaN(impliedMovePct) {
		// no expected move to compare against: the zone is unbounded in relative terms
		result.Multiplier = Ceiling
		return result
	}

	result.Ratio = result.ZonePct / impliedMovePct
	result.Multiplier = ForRatio(result.Ratio)
	return result
}

// ForRatio maps zone_pct / implied_move onto the multiplier table
func ForRatio(ratio float64) float64 {
	if ratio >= 1.0 {
		return Ceiling
	}
	if ratio < segments[0].lo {
		return Floor
	}
	for _, s := range segments {
		if ratio >= s.lo && ratio < s.hi {
			m := s.from + (ratio-s.lo)*(s.to-s.from)/(s.hi-s.lo)
			return math.Max(Floor, math.Min(Ceiling, m))
		}
	}
	return Floor
}
