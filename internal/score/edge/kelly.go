// Package edge turns probability of profit and reward/risk into a signed
// Kelly edge and a bounded score.
package edge

import (
	"fmt"
	"math"
)

// DefaultTarget is the edge that earns full marks
const DefaultTarget = 0.10

// Result of an edge calculation. Valid is false when the inputs could not be
// trusted; Edge and Score are zero in that case.
type Result struct {
	POP        float64 `json:"pop"`
	RewardRisk float64 `json:"reward_risk"`
	Edge       float64 `json:"edge"`
	Score      float64 `json:"score"`
	Valid      bool    `json:"valid"`
	Reason     string  `json:"reason,omitempty"`
}

// Positive reports whether the trade has positive expected value
func (r Result) Positive() bool {
	return r.Valid && r.Edge > 0
}

// Calculator scores edge against a target; safe for concurrent use
type Calculator struct {
	target float64
	weight float64
}

// NewCalculator creates a calculator. target <= 0 selects DefaultTarget.
func NewCalculator(target, weight float64) *Calculator {
	if target <= 0 {
		target = DefaultTarget
	}
	return &Calculator{target: target, weight: weight}
}

// Target returns the edge that earns the full weight
func (c *Calculator) Target() float64 {
	return c.target
}

// Calculate computes edge = POP×RR − (1−POP). Non-positive edge scores zero
// no matter how attractive POP or RR look on their own.
func (c *Calculator) Calculate(pop, rr float64) Result {
	result := Result{POP: pop, RewardRisk: rr}

	if err := ValidateInputs(pop, rr); err != nil {
		result.Reason = err.Error()
		return result
	}

	result.Valid = true
	result.Edge = Edge(pop, rr)
	if result.Edge <= 0 {
		result.Reason = fmt.Sprintf("non-positive edge %.4f", result.Edge)
		return result
	}

	result.Score = math.Min(result.Edge/c.target, 1.0) * c.weight
	return result
}

// ValidateInputs checks POP ∈ [0,1] and RR > 0
func ValidateInputs(pop, rr float64) error {
	if math.IsNaN(pop) || pop < 0 || pop > 1 {
		return fmt.Errorf("pop %.4f outside [0,1]", pop)
	}
	if math.IsNaN(rr) || math.IsInf(rr, 0) || rr <= 0 {
		return fmt.Errorf("reward/risk %.4f must be positive", rr)
	}
	return nil
}

// Edge is the expected value per unit risked
func Edge(pop, rr float64) float64 {
	return pop*rr - (1 - pop)
}

// KellyFraction is the Kelly-optimal fraction of capital for a binary
// outcome spread: edge / RR. Returns 0 for non-positive inputs.
func KellyFraction(edge, rr float64) float64 {
	if edge <= 0 || rr <= 0 {
		return 0
	}
	return edge / rr
}
