package composite

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sawpanic/ivcrush/internal/score/liquidity"
)

// Gate names reported in GateResult
const (
	GateMinScore  = "min_score"
	GateLiquidity = "liquidity"
)

// EligibilityGates are the hard conditions a scored strategy must pass before
// it can be selected. They never change the score itself.
type EligibilityGates struct {
	minScore float64
}

// NewEligibilityGates creates gates for a configuration's minimum score
func NewEligibilityGates(minScore float64) *EligibilityGates {
	return &EligibilityGates{minScore: minScore}
}

// GateResult holds the eligibility outcome
type GateResult struct {
	Allowed     bool              `json:"allowed"`
	Reason      string            `json:"reason"`
	GatesPassed map[string]bool   `json:"gates_passed"`
	GateReasons map[string]string `json:"gate_reasons"`
}

// EvaluateAll checks the minimum score and the liquidity tier
func (g *EligibilityGates) EvaluateAll(final float64, tier liquidity.Tier) GateResult {
	result := GateResult{
		GatesPassed: make(map[string]bool, 2),
		GateReasons: make(map[string]string, 2),
	}

	scorePass := final >= g.minScore
	result.GatesPassed[GateMinScore] = scorePass
	if scorePass {
		result.GateReasons[GateMinScore] = fmt.Sprintf("score %.2f ≥ %.2f", final, g.minScore)
	} else {
		result.GateReasons[GateMinScore] = fmt.Sprintf("score %.2f < %.2f", final, g.minScore)
	}

	liqPass := tier != liquidity.TierReject
	result.GatesPassed[GateLiquidity] = liqPass
	result.GateReasons[GateLiquidity] = fmt.Sprintf("liquidity %s", tier)

	result.Allowed = scorePass && liqPass
	if result.Allowed {
		result.Reason = "eligible"
	} else {
		result.Reason = buildFailureReason(result)
	}
	return result
}

func buildFailureReason(result GateResult) string {
	var failed []string
	for name, passed := range result.GatesPassed {
		if !passed {
			failed = append(failed, fmt.Sprintf("%s (%s)", name, result.GateReasons[name]))
		}
	}
	sort.Strings(failed)
	return "failed: " + strings.Join(failed, ", ")
}
