// Package sizing converts the edge of a selected strategy into a contract
// count with fractional-Kelly sizing.
package sizing

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/ivcrush/internal/config"
	"github.com/sawpanic/ivcrush/internal/domain/strategy"
	"github.com/sawpanic/ivcrush/internal/score/composite"
	"github.com/sawpanic/ivcrush/internal/score/edge"
)

// Request carries everything needed to size one strategy
type Request struct {
	Symbol             string
	Kind               strategy.Kind
	Edge               edge.Result // POP, RR and edge of the strategy
	MaxLossPerContract float64     // dollars
	Score              float64     // final composite score
	AverageScore       float64     // mean final score of the qualifying set
	Capital            float64     // dollars available
}

// Recommendation is a sized position
type Recommendation struct {
	Symbol        string        `json:"symbol"`
	Kind          strategy.Kind `json:"kind"`
	Contracts     int           `json:"contracts"`
	KellyFraction float64       `json:"kelly_fraction"` // edge / RR before scaling
	VRPMultiplier float64       `json:"vrp_multiplier"`
	Notional      float64       `json:"notional"`
	MaxRisk       float64       `json:"max_risk"` // contracts × max loss
	Fallback      bool          `json:"fallback"`
	Capped        bool          `json:"capped,omitempty"`
	Reason        string        `json:"reason"`
}

// Sizer applies one configuration's sizing settings; safe for concurrent use
type Sizer struct {
	settings config.SizingSettings
}

// NewSizer creates a sizer from validated settings
func NewSizer(settings config.SizingSettings) *Sizer {
	return &Sizer{settings: settings}
}

// Size computes
//
//	contracts = floor(capital × edge/RR × kellyFraction × vrpMultiplier / maxLoss)
//
// Bad or weak inputs fall back to the minimum contract count instead of
// zero, and the reason is logged and returned.
func (s *Sizer) Size(req Request) Recommendation {
	rec := Recommendation{
		Symbol:        req.Symbol,
		Kind:          req.Kind,
		VRPMultiplier: VRPMultiplier(req.Score, req.AverageScore),
	}

	switch {
	case !req.Edge.Valid:
		return s.fallback(rec, req, fmt.Sprintf("invalid edge input: %s", req.Edge.Reason))
	case req.Edge.Edge < s.settings.MinEdge:
		return s.fallback(rec, req, fmt.Sprintf("edge %.4f below minimum %.4f", req.Edge.Edge, s.settings.MinEdge))
	case !(req.MaxLossPerContract > 0) || math.IsInf(req.MaxLossPerContract, 0):
		return s.fallback(rec, req, fmt.Sprintf("max loss %.2f is not positive", req.MaxLossPerContract))
	case !(req.Capital > 0) || math.IsInf(req.Capital, 0):
		return s.fallback(rec, req, fmt.Sprintf("capital %.2f is not positive", req.Capital))
	}

	rec.KellyFraction = edge.KellyFraction(req.Edge.Edge, req.Edge.RewardRisk)

	notional := decimal.NewFromFloat(req.Capital).
		Mul(decimal.NewFromFloat(rec.KellyFraction)).
		Mul(decimal.NewFromFloat(s.settings.KellyFraction)).
		Mul(decimal.NewFromFloat(rec.VRPMultiplier))
	rec.Notional = notional.InexactFloat64()

	contracts := int(notional.Div(decimal.NewFromFloat(req.MaxLossPerContract)).Floor().IntPart())
	rec.Reason = fmt.Sprintf("%.2f%% kelly x %.2f x vrp %.2f on $%.0f", rec.KellyFraction*100, s.settings.KellyFraction, rec.VRPMultiplier, req.Capital)

	if contracts < s.settings.MinContracts {
		contracts = s.settings.MinContracts
		rec.Reason += fmt.Sprintf(", raised to minimum %d", contracts)
	}
	if s.settings.MaxContracts > 0 && contracts > s.settings.MaxContracts {
		contracts = s.settings.MaxContracts
		rec.Capped = true
		rec.Reason += fmt.Sprintf(", capped at %d", contracts)
	}

	rec.Contracts = contracts
	rec.MaxRisk = maxRisk(contracts, req.MaxLossPerContract)
	return rec
}

func (s *Sizer) fallback(rec Recommendation, req Request, reason string) Recommendation {
	log.Warn().
		Str("symbol", req.Symbol).
		Str("kind", string(req.Kind)).
		Str("reason", reason).
		Int("contracts", s.settings.MinContracts).
		Msg("Sizing fell back to minimum contracts")

	rec.Contracts = s.settings.MinContracts
	rec.Fallback = true
	rec.Reason = reason
	if req.MaxLossPerContract > 0 && !math.IsInf(req.MaxLossPerContract, 0) {
		rec.MaxRisk = maxRisk(rec.Contracts, req.MaxLossPerContract)
	}
	return rec
}

func maxRisk(contracts int, maxLoss float64) float64 {
	return decimal.NewFromInt(int64(contracts)).Mul(decimal.NewFromFloat(maxLoss)).InexactFloat64()
}

// VRPMultiplier scales a candidate against its qualifying peers:
// score / average. A non-positive average yields 1.0.
func VRPMultiplier(score, average float64) float64 {
	if !(average > 0) || math.IsNaN(score) || score < 0 {
		return 1.0
	}
	return score / average
}

// RequestFor builds a sizing request for a scored strategy
func RequestFor(s composite.Scored, average, capital float64) Request {
	return Request{
		Symbol:             s.Strategy.Symbol,
		Kind:               s.Strategy.Kind,
		Edge:               s.Edge,
		MaxLossPerContract: s.Strategy.MaxLoss,
		Score:              s.Final,
		AverageScore:       average,
		Capital:            capital,
	}
}

// Sized pairs a selected strategy with its recommendation
type Sized struct {
	Scored         composite.Scored `json:"scored"`
	Recommendation Recommendation   `json:"recommendation"`
}

// SizeSelection sizes the top maxPositions eligible strategies of a ranking
// against the ranking's qualifying average
func (s *Sizer) SizeSelection(r composite.Ranking, maxPositions int, capital float64) []Sized {
	selected := r.Top(maxPositions)
	avg := r.QualifyingAverage()

	out := make([]Sized, 0, len(selected))
	for _, sc := range selected {
		out = append(out, Sized{
			Scored:         sc,
			Recommendation: s.Size(RequestFor(sc, avg, capital)),
		})
	}
	return out
}
