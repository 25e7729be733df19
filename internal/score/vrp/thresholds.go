package vrp

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Profile names a calibrated set of VRP tier cutoffs
type Profile string

const (
	ProfileConservative Profile = "CONSERVATIVE"
	ProfileBalanced     Profile = "BALANCED"
	ProfileAggressive   Profile = "AGGRESSIVE"
	ProfileLegacy       Profile = "LEGACY"
)

// DefaultProfile is used when a configuration names none
const DefaultProfile = ProfileBalanced

// ErrThresholdOrder is returned when resolved cutoffs are not strictly ordered
var ErrThresholdOrder = errors.New("vrp thresholds out of order")

// Thresholds are the ratio cutoffs for each tier (ratio >= cutoff)
type Thresholds struct {
	Excellent float64 `yaml:"excellent" json:"excellent"`
	Good      float64 `yaml:"good" json:"good"`
	Marginal  float64 `yaml:"marginal" json:"marginal"`
}

// Overrides replaces individual profile cutoffs. Nil fields fall back to the profile.
type Overrides struct {
	Excellent *float64 `yaml:"excellent,omitempty" json:"excellent,omitempty"`
	Good      *float64 `yaml:"good,omitempty" json:"good,omitempty"`
	Marginal  *float64 `yaml:"marginal,omitempty" json:"marginal,omitempty"`
}

// Empty reports whether no override is set
func (o Overrides) Empty() bool {
	return o.Excellent == nil && o.Good == nil && o.Marginal == nil
}

var profiles = map[Profile]Thresholds{
	ProfileConservative: {Excellent: 2.0, Good: 1.5, Marginal: 1.2},
	ProfileBalanced:     {Excellent: 1.8, Good: 1.4, Marginal: 1.2},
	ProfileAggressive:   {Excellent: 1.5, Good: 1.3, Marginal: 1.1},
	ProfileLegacy:       {Excellent: 2.0, Good: 1.5, Marginal: 1.2},
}

// ProfileThresholds returns the cutoffs of a named profile
func ProfileThresholds(p Profile) (Thresholds, error) {
	t, ok := profiles[normalizeProfile(p)]
	if !ok {
		return Thresholds{}, fmt.Errorf("unknown vrp profile %q (available: %s)", p, strings.Join(ProfileNames(), ", "))
	}
	return t, nil
}

// ProfileNames lists the known profiles in stable order
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for p := range profiles {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

func normalizeProfile(p Profile) Profile {
	return Profile(strings.ToUpper(strings.TrimSpace(string(p))))
}

// ResolveThresholds layers overrides on top of a profile and checks the
// ordering invariant once. An empty profile name selects DefaultProfile
// silently; overrides combined with an explicitly named profile are logged
// because they can drift from the profile's calibration.
func ResolveThresholds(p Profile, o Overrides) (Thresholds, error) {
	named := strings.TrimSpace(string(p)) != ""
	if !named {
		p = DefaultProfile
	}

	base, err := ProfileThresholds(p)
	if err != nil {
		return Thresholds{}, err
	}

	resolved := base
	if o.Excellent != nil {
		resolved.Excellent = *o.Excellent
	}
	if o.Good != nil {
		resolved.Good = *o.Good
	}
	if o.Marginal != nil {
		resolved.Marginal = *o.Marginal
	}

	if named && !o.Empty() {
		log.Warn().
			Str("profile", string(normalizeProfile(p))).
			Float64("excellent", resolved.Excellent).
			Float64("good", resolved.Good).
			Float64("marginal", resolved.Marginal).
			Msg("VRP threshold overrides applied on top of named profile")
	}

	if err := resolved.Validate(); err != nil {
		return Thresholds{}, err
	}
	return resolved, nil
}

// Validate checks excellent >= good >= marginal > 0
func (t Thresholds) Validate() error {
	if t.Marginal <= 0 {
		return fmt.Errorf("%w: marginal %.3f must be positive", ErrThresholdOrder, t.Marginal)
	}
	if t.Good < t.Marginal {
		return fmt.Errorf("%w: good %.3f below marginal %.3f", ErrThresholdOrder, t.Good, t.Marginal)
	}
	if t.Excellent < t.Good {
		return fmt.Errorf("%w: excellent %.3f below good %.3f", ErrThresholdOrder, t.Excellent, t.Good)
	}
	return nil
}
