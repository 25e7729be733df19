// Package composite combines the VRP, liquidity, edge, greeks and
// profit-zone factors into one ranking score per candidate strategy.
package composite

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/domain/strategy"
	"github.com/sawpanic/ivcrush/internal/score/edge"
	"github.com/sawpanic/ivcrush/internal/score/liquidity"
	"github.com/sawpanic/ivcrush/internal/score/profitzone"
	"github.com/sawpanic/ivcrush/internal/score/vrp"
)

// Components are the weighted factor scores before the profit-zone multiplier
type Components struct {
	POP       float64 `json:"pop"`
	Liquidity float64 `json:"liquidity"`
	VRP       float64 `json:"vrp"`
	Edge      float64 `json:"edge"`
	Greeks    float64 `json:"greeks"`
}

// Sum is the raw composite score
func (c Components) Sum() float64 {
	return c.POP + c.Liquidity + c.VRP + c.Edge + c.Greeks
}

// Scored is an annotated copy of a strategy. The input strategy is never
// modified.
type Scored struct {
	Strategy   strategy.Strategy `json:"strategy"`
	Components Components        `json:"components"`
	Raw        float64           `json:"raw_score"`
	Final      float64           `json:"final_score"`
	ProfitZone profitzone.Result `json:"profit_zone"`
	Liquidity  liquidity.Result  `json:"liquidity"`
	Edge       edge.Result       `json:"edge"`
	VRP        vrp.Result        `json:"vrp"`
	Gates      GateResult        `json:"gates"`
	Rationale  Rationale         `json:"rationale"`
	Rank       int               `json:"rank,omitempty"` // 1-based, set by Rank
}

// Eligible reports whether the strategy passed every selection gate
func (s Scored) Eligible() bool {
	return s.Gates.Allowed
}

// Scorer scores strategies under one configuration; safe for concurrent use
type Scorer struct {
	cfg        *config.ScoringConfig
	classifier *vrp.Classifier
	analyzer   *liquidity.Analyzer
	edgeCalc   *edge.Calculator
	gates      *EligibilityGates
}

// NewScorer creates a scorer from a validated configuration
func NewScorer(cfg *config.ScoringConfig) *Scorer {
	return &Scorer{
		cfg:        cfg,
		classifier: vrp.NewClassifier(cfg.VRP, cfg.MinPeriods),
		analyzer:   liquidity.NewAnalyzer(cfg.Liquidity, cfg.MissingData),
		edgeCalc:   edge.NewCalculator(cfg.Targets.Edge, cfg.Weights.Edge),
		gates:      NewEligibilityGates(cfg.MinScore),
	}
}

// Config returns the configuration the scorer was built with
func (s *Scorer) Config() *config.ScoringConfig {
	return s.cfg
}

// ClassifyVRP runs the configured VRP classifier
func (s *Scorer) ClassifyVRP(in vrp.Input) vrp.Result {
	return s.classifier.Classify(in)
}

// Score computes
//
//	final = (pop + liquidity + vrp + edge + greeks) × profit-zone multiplier
//
// The size weight is part of the 100-point budget but is not awarded here;
// it is spent when the selected strategy is sized.
func (s *Scorer) Score(st strategy.Strategy, v vrp.Result) Scored {
	w := s.cfg.Weights
	tg := s.cfg.Targets
	ex := newExplainer(w)

	scored := Scored{Strategy: cloneStrategy(st), VRP: v}

	// Step 1: edge validates POP/RR for every POP-derived component
	scored.Edge = s.edgeCalc.Calculate(st.POP, st.RewardRisk)
	popValid := edge.ValidateInputs(st.POP, 1) == nil
	if !scored.Edge.Valid {
		log.Warn().
			Str("symbol", st.Symbol).
			Str("kind", string(st.Kind)).
			Float64("pop", st.POP).
			Float64("rr", st.RewardRisk).
			Str("reason", scored.Edge.Reason).
			Msg("Invalid edge inputs, scoring edge as zero")
	}

	// Step 2: component scores
	if popValid {
		scored.Components.POP = math.Min(st.POP/tg.POP, 1.0) * w.POP
	}
	ex.pop(st.POP, tg.POP, scored.Components.POP, popValid)

	scored.Liquidity = s.analyzer.Analyze(st)
	scored.Components.Liquidity = s.cfg.LiqScores.Fraction(scored.Liquidity.Tier) * w.Liquidity
	ex.liquidity(scored.Liquidity, scored.Components.Liquidity)

	if !v.Excluded() && v.Ratio > 0 {
		scored.Components.VRP = math.Min(v.Ratio/tg.VRPRatio, 1.0) * w.VRP
	}
	ex.vrp(v, scored.Components.VRP)

	scored.Components.Edge = scored.Edge.Score
	ex.edge(scored.Edge, s.edgeCalc.Target())

	greeks := st.NetGreeks()
	if greeks == nil {
		scored.Components.Greeks = w.Greeks
		ex.greeks(0, 0, scored.Components.Greeks, false)
	} else {
		thetaFactor := clamp01(greeks.Theta / tg.Theta)
		vegaFactor := clamp01(-greeks.Vega / tg.Vega)
		scored.Components.Greeks = w.Greeks * (thetaFactor + vegaFactor) / 2
		ex.greeks(greeks.Theta, greeks.Vega, scored.Components.Greeks, true)
	}

	// Step 3: profit-zone geometry scales the whole sum; single-sided
	// strategies have no bounded zone
	scored.ProfitZone = profitzone.Result{Multiplier: profitzone.Ceiling}
	if st.IsDoubleSided() {
		scored.ProfitZone = profitzone.Compute(st.Breakevens, v.ImpliedMovePct)
	}
	ex.profitZone(scored.ProfitZone)

	scored.Raw = scored.Components.Sum()
	scored.Final = scored.Raw * scored.ProfitZone.Multiplier
	ex.size()

	// Step 4: selection gates
	scored.Gates = s.gates.EvaluateAll(scored.Final, scored.Liquidity.Tier)
	ex.gates(scored.Gates)

	scored.Rationale = ex.rationale()
	return scored
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}

// cloneStrategy copies the slices and pointers of st so the scored copy
// shares no memory with the caller's strategy
func cloneStrategy(st strategy.Strategy) strategy.Strategy {
	out := st
	out.Breakevens = append([]float64(nil), st.Breakevens...)
	out.Legs = make([]strategy.Leg, len(st.Legs))
	for i, leg := range st.Legs {
		if leg.Liquidity != nil {
			snap := *leg.Liquidity
			leg.Liquidity = &snap
		}
		if leg.Greeks != nil {
			g := *leg.Greeks
			leg.Greeks = &g
		}
		out.Legs[i] = leg
	}
	if st.Greeks != nil {
		g := *st.Greeks
		out.Greeks = &g
	}
	return out
}
