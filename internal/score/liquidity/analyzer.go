// Package liquidity reduces per-leg order-book quality into a single
// worst-case tier for a multi-leg strategy.
package liquidity

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sawpanic/ivcrush/internal/domain/strategy"
)

// Tier is totally ordered: Reject < Warning < Good < Excellent
type Tier int

const (
	TierReject Tier = iota
	TierWarning
	TierGood
	TierExcellent
)

func (t Tier) String() string {
	switch t {
	case TierReject:
		return "REJECT"
	case TierWarning:
		return "WARNING"
	case TierGood:
		return "GOOD"
	case TierExcellent:
		return "EXCELLENT"
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// MarshalText renders the tier name in JSON/YAML output
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses a tier name
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier parses a tier name, case-insensitively
func ParseTier(s string) (Tier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "REJECT":
		return TierReject, nil
	case "WARNING":
		return TierWarning, nil
	case "GOOD":
		return TierGood, nil
	case "EXCELLENT":
		return TierExcellent, nil
	}
	return TierReject, fmt.Errorf("unknown liquidity tier %q", s)
}

// Worst returns the lower of two tiers
func Worst(a, b Tier) Tier {
	if a < b {
		return a
	}
	return b
}

// MissingDataPolicy decides which tier a leg without a liquidity snapshot gets
type MissingDataPolicy string

const (
	AssumeExcellent MissingDataPolicy = "assume_excellent"
	AssumeGood      MissingDataPolicy = "assume_good"
	AssumeWarning   MissingDataPolicy = "assume_warning"
)

// Thresholds are the per-leg cutoffs. Spread values are percentages.
type Thresholds struct {
	RejectMinOI         int     `yaml:"reject_min_oi" json:"reject_min_oi"`
	RejectMaxSpreadPct  float64 `yaml:"reject_max_spread_pct" json:"reject_max_spread_pct"`
	RejectMinVolume     int     `yaml:"reject_min_volume" json:"reject_min_volume"`
	WarningMinOI        int     `yaml:"warning_min_oi" json:"warning_min_oi"`
	WarningMaxSpreadPct float64 `yaml:"warning_max_spread_pct" json:"warning_max_spread_pct"`
	WarningMinVolume    int     `yaml:"warning_min_volume" json:"warning_min_volume"`
	ExcellentMinOI      int     `yaml:"excellent_min_oi" json:"excellent_min_oi"`
	ExcellentMaxSpread  float64 `yaml:"excellent_max_spread_pct" json:"excellent_max_spread_pct"`
	ExcellentMinVolume  int     `yaml:"excellent_min_volume" json:"excellent_min_volume"`
}

// DefaultThresholds returns the standard cutoffs
func DefaultThresholds() Thresholds {
	return Thresholds{
		RejectMinOI:         100,
		RejectMaxSpreadPct:  50,
		RejectMinVolume:     10,
		WarningMinOI:        500,
		WarningMaxSpreadPct: 10,
		WarningMinVolume:    50,
		ExcellentMinOI:      5000,
		ExcellentMaxSpread:  5,
		ExcellentMinVolume:  500,
	}
}

// ErrThresholdOrder is returned when tiers are not nested
var ErrThresholdOrder = errors.New("liquidity thresholds out of order")

// Validate checks that each stricter tier sits inside the looser one
func (t Thresholds) Validate() error {
	if t.RejectMinOI > t.WarningMinOI || t.WarningMinOI > t.ExcellentMinOI {
		return fmt.Errorf("%w: open interest %d/%d/%d", ErrThresholdOrder, t.RejectMinOI, t.WarningMinOI, t.ExcellentMinOI)
	}
	if t.RejectMinVolume > t.WarningMinVolume || t.WarningMinVolume > t.ExcellentMinVolume {
		return fmt.Errorf("%w: volume %d/%d/%d", ErrThresholdOrder, t.RejectMinVolume, t.WarningMinVolume, t.ExcellentMinVolume)
	}
	if t.RejectMaxSpreadPct < t.WarningMaxSpreadPct || t.WarningMaxSpreadPct < t.ExcellentMaxSpread {
		return fmt.Errorf("%w: spread %.1f/%.1f/%.1f", ErrThresholdOrder, t.RejectMaxSpreadPct, t.WarningMaxSpreadPct, t.ExcellentMaxSpread)
	}
	if t.ExcellentMaxSpread < 0 {
		return fmt.Errorf("%w: negative spread cutoff", ErrThresholdOrder)
	}
	return nil
}

// LegVerdict is the classification of one evaluated leg
type LegVerdict struct {
	Strike   float64                    `json:"strike"`
	Type     strategy.OptionType        `json:"type"`
	Snapshot strategy.LiquiditySnapshot `json:"snapshot"`
	Assumed  bool                       `json:"assumed"`
	Tier     Tier                       `json:"tier"`
	Reason   string                     `json:"reason"`
}

// Result is the strategy-level liquidity assessment
type Result struct {
	Tier  Tier         `json:"tier"`
	Legs  []LegVerdict `json:"legs"`
	Worst *LegVerdict  `json:"worst,omitempty"`
}

// Analyzer classifies strategy liquidity; safe for concurrent use
type Analyzer struct {
	thresholds Thresholds
	missing    MissingDataPolicy
}

// NewAnalyzer creates an analyzer. An empty policy selects AssumeExcellent.
func NewAnalyzer(t Thresholds, policy MissingDataPolicy) *Analyzer {
	if policy == "" {
		policy = AssumeExcellent
	}
	return &Analyzer{thresholds: t, missing: policy}
}

// ResolveSnapshot returns the leg's snapshot, or the synthetic snapshot the
// missing-data policy stands in for. The bool is true when it was assumed.
func (a *Analyzer) ResolveSnapshot(leg strategy.Leg) (strategy.LiquiditySnapshot, bool) {
	if leg.Liquidity != nil {
		return *leg.Liquidity, false
	}

	t := a.thresholds
	switch a.missing {
	case AssumeGood:
		return strategy.LiquiditySnapshot{OpenInterest: t.WarningMinOI, SpreadPct: t.WarningMaxSpreadPct, Volume: t.WarningMinVolume}, true
	case AssumeWarning:
		return strategy.LiquiditySnapshot{OpenInterest: t.RejectMinOI, SpreadPct: t.RejectMaxSpreadPct, Volume: t.RejectMinVolume}, true
	default:
		return strategy.LiquiditySnapshot{OpenInterest: t.ExcellentMinOI, SpreadPct: t.ExcellentMaxSpread, Volume: t.ExcellentMinVolume}, true
	}
}

// ClassifyLeg assigns a tier to a single snapshot, strictest rule first.
// Corrupt quotes (negative or NaN spread, negative counts) are rejected.
func (a *Analyzer) ClassifyLeg(s strategy.LiquiditySnapshot) (Tier, string) {
	t := a.thresholds

	switch {
	case math.IsNaN(s.SpreadPct) || math.IsInf(s.SpreadPct, 0) || s.SpreadPct < 0:
		return TierReject, fmt.Sprintf("invalid spread %v", s.SpreadPct)
	case s.OpenInterest < 0:
		return TierReject, fmt.Sprintf("invalid OI %d", s.OpenInterest)
	case s.Volume < 0:
		return TierReject, fmt.Sprintf("invalid volume %d", s.Volume)
	case s.OpenInterest < t.RejectMinOI:
		return TierReject, fmt.Sprintf("OI %d < %d", s.OpenInterest, t.RejectMinOI)
	case s.SpreadPct > t.RejectMaxSpreadPct:
		return TierReject, fmt.Sprintf("spread %.1f%% > %.1f%%", s.SpreadPct, t.RejectMaxSpreadPct)
	case s.Volume < t.RejectMinVolume:
		return TierReject, fmt.Sprintf("volume %d < %d", s.Volume, t.RejectMinVolume)
	case s.OpenInterest < t.WarningMinOI:
		return TierWarning, fmt.Sprintf("OI %d < %d", s.OpenInterest, t.WarningMinOI)
	case s.SpreadPct > t.WarningMaxSpreadPct:
		return TierWarning, fmt.Sprintf("spread %.1f%% > %.1f%%", s.SpreadPct, t.WarningMaxSpreadPct)
	case s.Volume < t.WarningMinVolume:
		return TierWarning, fmt.Sprintf("volume %d < %d", s.Volume, t.WarningMinVolume)
	case s.OpenInterest >= t.ExcellentMinOI && s.SpreadPct <= t.ExcellentMaxSpread && s.Volume >= t.ExcellentMinVolume:
		return TierExcellent, "deep book"
	default:
		return TierGood, "adequate book"
	}
}

// Analyze evaluates the short legs of s (all legs when none are short) and
// folds their tiers with Worst
func (a *Analyzer) Analyze(s strategy.Strategy) Result {
	legs := s.ShortLegs()
	if len(legs) == 0 {
		legs = s.Legs
	}

	result := Result{Tier: TierExcellent, Legs: make([]LegVerdict, 0, len(legs))}
	for _, leg := range legs {
		snap, assumed := a.ResolveSnapshot(leg)
		tier, reason := a.ClassifyLeg(snap)
		if assumed {
			reason = fmt.Sprintf("no data, %s", a.missing)
		}
		result.Legs = append(result.Legs, LegVerdict{
			Strike:   leg.Strike,
			Type:     leg.Type,
			Snapshot: snap,
			Assumed:  assumed,
			Tier:     tier,
			Reason:   reason,
		})
		result.Tier = Worst(result.Tier, tier)
	}

	for i := range result.Legs {
		if result.Legs[i].Tier == result.Tier {
			result.Worst = &result.Legs[i]
			break
		}
	}
	return result
}
