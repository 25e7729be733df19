// Package config builds validated, immutable scoring configurations from
// presets or YAML and loads runtime settings from the environment.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sawpanic/ivcrush/internal/score/liquidity"
	"github.com/sawpanic/ivcrush/internal/score/vrp"
)

// Targets are the normalization constants: the value of each factor that
// earns that factor's full weight. Theta and vega use the units of the
// supplied greeks.
type Targets struct {
	POP      float64 `yaml:"pop" json:"pop"`
	Edge     float64 `yaml:"edge" json:"edge"`
	VRPRatio float64 `yaml:"vrp_ratio" json:"vrp_ratio"`
	Theta    float64 `yaml:"theta" json:"theta"`
	Vega     float64 `yaml:"vega" json:"vega"`
}

// DefaultTargets returns the calibrated normalization constants
func DefaultTargets() Targets {
	return Targets{
		POP:      0.65,
		Edge:     0.10,
		VRPRatio: 2.0,
		Theta:    0.10,
		Vega:     0.20,
	}
}

// LiquidityScores are the fraction of the liquidity weight awarded per tier
type LiquidityScores struct {
	Excellent float64 `yaml:"excellent" json:"excellent"`
	Good      float64 `yaml:"good" json:"good"`
	Warning   float64 `yaml:"warning" json:"warning"`
	Reject    float64 `yaml:"reject" json:"reject"`
}

// DefaultLiquidityScores returns 1.0 / 0.75 / 0.5 / 0.0
func DefaultLiquidityScores() LiquidityScores {
	return LiquidityScores{Excellent: 1.0, Good: 0.75, Warning: 0.5, Reject: 0.0}
}

// Fraction returns the score fraction for a tier
func (s LiquidityScores) Fraction(t liquidity.Tier) float64 {
	switch t {
	case liquidity.TierExcellent:
		return s.Excellent
	case liquidity.TierGood:
		return s.Good
	case liquidity.TierWarning:
		return s.Warning
	default:
		return s.Reject
	}
}

// VRPSettings selects a threshold profile with optional per-field overrides
type VRPSettings struct {
	Profile    vrp.Profile   `yaml:"profile" json:"profile"`
	Overrides  vrp.Overrides `yaml:"overrides" json:"overrides"`
	MinPeriods int           `yaml:"min_periods" json:"min_periods"`
}

// LiquiditySettings configures the liquidity analyzer and its score mapping
type LiquiditySettings struct {
	Thresholds  *liquidity.Thresholds       `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
	MissingData liquidity.MissingDataPolicy `yaml:"missing_data" json:"missing_data"`
	Scores      *LiquidityScores            `yaml:"scores,omitempty" json:"scores,omitempty"`
}

// SizingSettings configures fractional-Kelly position sizing
type SizingSettings struct {
	KellyFraction float64 `yaml:"kelly_fraction" json:"kelly_fraction"`
	MinEdge       float64 `yaml:"min_edge" json:"min_edge"`
	MinContracts  int     `yaml:"min_contracts" json:"min_contracts"`
	MaxContracts  int     `yaml:"max_contracts" json:"max_contracts"` // 0 = no cap
}

// DefaultSizing returns quarter-Kelly with a 2% minimum edge and one-lot floor
func DefaultSizing() SizingSettings {
	return SizingSettings{
		KellyFraction: 0.25,
		MinEdge:       0.02,
		MinContracts:  1,
	}
}

// Spec is the raw, user-editable form of a scoring configuration
type Spec struct {
	Name         string            `yaml:"name" json:"name"`
	Description  string            `yaml:"description,omitempty" json:"description,omitempty"`
	Weights      ScoringWeights    `yaml:"weights" json:"weights"`
	VRP          VRPSettings       `yaml:"vrp" json:"vrp"`
	Liquidity    LiquiditySettings `yaml:"liquidity" json:"liquidity"`
	Targets      *Targets          `yaml:"targets,omitempty" json:"targets,omitempty"`
	MinScore     float64           `yaml:"min_score" json:"min_score"`
	MaxPositions int               `yaml:"max_positions" json:"max_positions"`
	Sizing       *SizingSettings   `yaml:"sizing,omitempty" json:"sizing,omitempty"`
}

// ScoringConfig is a validated configuration. It is never modified after New
// returns and may be shared across goroutines.
type ScoringConfig struct {
	Name         string                      `json:"name"`
	Description  string                      `json:"description,omitempty"`
	Weights      ScoringWeights              `json:"weights"`
	VRPProfile   vrp.Profile                 `json:"vrp_profile"`
	VRP          vrp.Thresholds              `json:"vrp_thresholds"`
	MinPeriods   int                         `json:"min_periods"`
	Liquidity    liquidity.Thresholds        `json:"liquidity_thresholds"`
	MissingData  liquidity.MissingDataPolicy `json:"missing_data"`
	LiqScores    LiquidityScores             `json:"liquidity_scores"`
	Targets      Targets                     `json:"targets"`
	MinScore     float64                     `json:"min_score"`
	MaxPositions int                         `json:"max_positions"`
	Sizing       SizingSettings              `json:"sizing"`
}

// Fingerprint is a stable hash of every setting that affects scoring; two
// configurations with the same fingerprint produce identical results
func (c *ScoringConfig) Fingerprint() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%+v", *c)))
	return hex.EncodeToString(sum[:])
}

// ErrInvalidConfig wraps every non-weight validation failure
var ErrInvalidConfig = errors.New("invalid scoring config")

// New validates a spec, fills defaults and resolves thresholds. Any error is
// fatal for the configuration: nothing is scored with it.
func New(spec Spec) (*ScoringConfig, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}

	if err := spec.Weights.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}

	thresholds, err := vrp.ResolveThresholds(spec.VRP.Profile, spec.VRP.Overrides)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}

	profile := spec.VRP.Profile
	if strings.TrimSpace(string(profile)) == "" {
		profile = vrp.DefaultProfile
	}

	minPeriods := spec.VRP.MinPeriods
	if minPeriods == 0 {
		minPeriods = vrp.DefaultMinPeriods
	}
	if minPeriods < 1 {
		return nil, fmt.Errorf("%w: config %s: min_periods %d must be positive", ErrInvalidConfig, name, minPeriods)
	}

	liq := liquidity.DefaultThresholds()
	if spec.Liquidity.Thresholds != nil {
		liq = *spec.Liquidity.Thresholds
	}
	if err := liq.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}

	missing := spec.Liquidity.MissingData
	switch missing {
	case "":
		missing = liquidity.AssumeExcellent
	case liquidity.AssumeExcellent, liquidity.AssumeGood, liquidity.AssumeWarning:
	default:
		return nil, fmt.Errorf("%w: config %s: unknown missing_data policy %q", ErrInvalidConfig, name, missing)
	}

	scores := DefaultLiquidityScores()
	if spec.Liquidity.Scores != nil {
		scores = *spec.Liquidity.Scores
	}
	if err := validateLiquidityScores(scores); err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}

	targets := DefaultTargets()
	if spec.Targets != nil {
		targets = *spec.Targets
	}
	if anyNaN(targets.POP, targets.Edge, targets.VRPRatio, targets.Theta, targets.Vega) ||
		targets.POP <= 0 || targets.POP > 1 || targets.Edge <= 0 || targets.VRPRatio <= 0 || targets.Theta <= 0 || targets.Vega <= 0 {
		return nil, fmt.Errorf("%w: config %s: targets must be positive (pop in (0,1])", ErrInvalidConfig, name)
	}

	if math.IsNaN(spec.MinScore) || spec.MinScore < 0 || spec.MinScore > WeightTotal {
		return nil, fmt.Errorf("%w: config %s: min_score %.2f outside [0,100]", ErrInvalidConfig, name, spec.MinScore)
	}

	maxPositions := spec.MaxPositions
	if maxPositions == 0 {
		maxPositions = 1
	}
	if maxPositions < 0 {
		return nil, fmt.Errorf("%w: config %s: max_positions %d must be positive", ErrInvalidConfig, name, maxPositions)
	}

	sizing := DefaultSizing()
	if spec.Sizing != nil {
		sizing = *spec.Sizing
	}
	if err := validateSizing(sizing); err != nil {
		return nil, fmt.Errorf("config %s: %w", name, err)
	}

	return &ScoringConfig{
		Name:         name,
		Description:  spec.Description,
		Weights:      spec.Weights,
		VRPProfile:   vrp.Profile(strings.ToUpper(string(profile))),
		VRP:          thresholds,
		MinPeriods:   minPeriods,
		Liquidity:    liq,
		MissingData:  missing,
		LiqScores:    scores,
		Targets:      targets,
		MinScore:     spec.MinScore,
		MaxPositions: maxPositions,
		Sizing:       sizing,
	}, nil
}

// MustNew is New for static presets; it panics on an invalid spec
func MustNew(spec Spec) *ScoringConfig {
	cfg, err := New(spec)
	if err != nil {
		panic(err)
	}
	return cfg
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func validateLiquidityScores(s LiquidityScores) error {
	values := []float64{s.Reject, s.Warning, s.Good, s.Excellent}
	for i, v := range values {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: liquidity score fraction %.2f outside [0,1]", ErrInvalidConfig, v)
		}
		if i > 0 && v < values[i-1] {
			return fmt.Errorf("%w: liquidity score fractions must not decrease with tier quality", ErrInvalidConfig)
		}
	}
	return nil
}

func validateSizing(s SizingSettings) error {
	if math.IsNaN(s.KellyFraction) || s.KellyFraction <= 0 || s.KellyFraction > 1 {
		return fmt.Errorf("%w: kelly_fraction %.3f outside (0,1]", ErrInvalidConfig, s.KellyFraction)
	}
	if math.IsNaN(s.MinEdge) || s.MinEdge < 0 {
		return fmt.Errorf("%w: min_edge %.3f must be non-negative", ErrInvalidConfig, s.MinEdge)
	}
	if s.MinContracts < 0 {
		return fmt.Errorf("%w: min_contracts %d must be non-negative", ErrInvalidConfig, s.MinContracts)
	}
	if s.MaxContracts < 0 || (s.MaxContracts > 0 && s.MaxContracts < s.MinContracts) {
		return fmt.Errorf("%w: max_contracts %d below min_contracts %d", ErrInvalidConfig, s.MaxContracts, s.MinContracts)
	}
	return nil
}
