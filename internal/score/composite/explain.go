package composite

import (
	"fmt"
	"strings"

	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/score/edge"
	"github.com/sawpanic/ivcrush/internal/score/liquidity"
	"github.com/sawpanic/ivcrush/internal/score/profitzone"
	"github.com/sawpanic/ivcrush/internal/score/vrp"
)

// Rationale records which factors drove a score. It is built while scoring
// because the individual factor inputs cannot be recovered from the total.
type Rationale struct {
	Factors  []string `json:"factors"`
	Warnings []string `json:"warnings,omitempty"`
}

// String renders the rationale as a single line for logs and reports
func (r Rationale) String() string {
	parts := append([]string{}, r.Factors...)
	for _, w := range r.Warnings {
		parts = append(parts, "WARN "+w)
	}
	return strings.Join(parts, "; ")
}

// explainer accumulates rationale lines in component order
type explainer struct {
	weights config.ScoringWeights
	r       Rationale
}

func newExplainer(w config.ScoringWeights) *explainer {
	return &explainer{weights: w}
}

func (e *explainer) factor(format string, args ...interface{}) {
	e.r.Factors = append(e.r.Factors, fmt.Sprintf(format, args...))
}

func (e *explainer) warn(format string, args ...interface{}) {
	e.r.Warnings = append(e.r.Warnings, fmt.Sprintf(format, args...))
}

func (e *explainer) pop(pop, target, score float64, valid bool) {
	if !valid {
		e.factor("pop invalid: 0.00/%.0f", e.weights.POP)
		return
	}
	e.factor("pop %.1f%% vs target %.1f%%: %.2f/%.0f", pop*100, target*100, score, e.weights.POP)
}

func (e *explainer) liquidity(res liquidity.Result, score float64) {
	line := fmt.Sprintf("liquidity %s: %.2f/%.0f", res.Tier, score, e.weights.Liquidity)
	if res.Worst != nil {
		line = fmt.Sprintf("liquidity %s (%s %.2f %s): %.2f/%.0f",
			res.Tier, res.Worst.Type, res.Worst.Strike, res.Worst.Reason, score, e.weights.Liquidity)
	}
	e.factor("%s", line)

	assumed := 0
	for _, leg := range res.Legs {
		if leg.Assumed {
			assumed++
		}
	}
	if assumed > 0 {
		e.warn("liquidity assumed for %d of %d legs", assumed, len(res.Legs))
	}
	if res.Tier == liquidity.TierReject {
		e.warn("liquidity REJECT, not selectable")
	}
}

func (e *explainer) vrp(res vrp.Result, score float64) {
	if res.Excluded() {
		e.factor("vrp %s: 0.00/%.0f", res.Tier, e.weights.VRP)
		e.warn("vrp unavailable: %s", res.Reason)
		return
	}
	e.factor("vrp %.2fx %s: %.2f/%.0f", res.Ratio, res.Tier, score, e.weights.VRP)
}

func (e *explainer) edge(res edge.Result, target float64) {
	if !res.Valid {
		e.factor("edge n/a: 0.00/%.0f", e.weights.Edge)
		e.warn("invalid edge input: %s", res.Reason)
		return
	}
	e.factor("edge %+.4f vs target %.2f: %.2f/%.0f", res.Edge, target, res.Score, e.weights.Edge)
	if !res.Positive() {
		e.warn("non-positive expected value")
	}
}

func (e *explainer) greeks(theta, vega, score float64, known bool) {
	if !known {
		e.factor("greeks unknown: %.2f/%.0f", score, e.weights.Greeks)
		e.warn("greeks missing, full marks assumed")
		return
	}
	e.factor("greeks theta %.3f vega %.3f: %.2f/%.0f", theta, vega, score, e.weights.Greeks)
}

func (e *explainer) profitZone(res profitzone.Result) {
	if !res.Applied {
		e.factor("profit zone exempt: x1.000")
		return
	}
	e.factor("profit zone %.2f%% vs implied move (ratio %.3f): x%.3f", res.ZonePct, res.Ratio, res.Multiplier)
	if res.Penalized() {
		e.warn("narrow profit zone, score scaled by %.3f", res.Multiplier)
	}
}

func (e *explainer) size() {
	if e.weights.Size > 0 {
		e.factor("size weight %.0f applied at sizing", e.weights.Size)
	}
}

func (e *explainer) gates(g GateResult) {
	if !g.Allowed {
		e.warn("%s", g.Reason)
	}
}

func (e *explainer) rationale() Rationale {
	return e.r
}
