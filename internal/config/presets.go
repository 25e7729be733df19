package config

import (
	"sort"

	"github.com/sawpanic/ivcrush/internal/score/vrp"
)

// presetSpecs are the built-in configurations compared by the backtester
var presetSpecs = []Spec{
	{
		Name:         "balanced",
		Description:  "Even split across probability, liquidity and premium",
		Weights:      ScoringWeights{POP: 30, Liquidity: 20, VRP: 20, Edge: 15, Greeks: 10, Size: 5},
		VRP:          VRPSettings{Profile: vrp.ProfileBalanced},
		MinScore:     50,
		MaxPositions: 3,
	},
	{
		Name:         "vrp_dominant",
		Description:  "Premium richness drives selection",
		Weights:      ScoringWeights{POP: 20, Liquidity: 15, VRP: 40, Edge: 15, Greeks: 5, Size: 5},
		VRP:          VRPSettings{Profile: vrp.ProfileConservative},
		MinScore:     55,
		MaxPositions: 2,
	},
	{
		Name:         "liquidity_first",
		Description:  "Tradeable books before everything else",
		Weights:      ScoringWeights{POP: 25, Liquidity: 35, VRP: 15, Edge: 15, Greeks: 5, Size: 5},
		VRP:          VRPSettings{Profile: vrp.ProfileBalanced},
		MinScore:     55,
		MaxPositions: 3,
	},
	{
		Name:         "pop_heavy",
		Description:  "High probability of profit, smaller premium",
		Weights:      ScoringWeights{POP: 45, Liquidity: 15, VRP: 15, Edge: 15, Greeks: 5, Size: 5},
		VRP:          VRPSettings{Profile: vrp.ProfileBalanced},
		MinScore:     50,
		MaxPositions: 3,
	},
	{
		Name:         "edge_focused",
		Description:  "Positive expectancy weighted highest",
		Weights:      ScoringWeights{POP: 20, Liquidity: 15, VRP: 20, Edge: 35, Greeks: 5, Size: 5},
		VRP:          VRPSettings{Profile: vrp.ProfileAggressive},
		MinScore:     45,
		MaxPositions: 3,
		Sizing:       &SizingSettings{KellyFraction: 0.25, MinEdge: 0.03, MinContracts: 1},
	},
	{
		Name:         "legacy",
		Description:  "Pre-liquidity weighting kept for regression comparison",
		Weights:      ScoringWeights{POP: 45, Liquidity: 0, VRP: 20, Edge: 20, Greeks: 10, Size: 5},
		VRP:          VRPSettings{Profile: vrp.ProfileLegacy},
		MinScore:     60,
		MaxPositions: 1,
	},
}

// Presets returns freshly validated copies of the built-in configurations
func Presets() []*ScoringConfig {
	configs := make([]*ScoringConfig, 0, len(presetSpecs))
	for _, spec := range presetSpecs {
		configs = append(configs, MustNew(spec))
	}
	return configs
}

// PresetNames lists the built-in configuration names in sorted order
func PresetNames() []string {
	names := make([]string, 0, len(presetSpecs))
	for _, spec := range presetSpecs {
		names = append(names, spec.Name)
	}
	sort.Strings(names)
	return names
}

// Default returns the balanced preset
func Default() *ScoringConfig {
	return MustNew(presetSpecs[0])
}
