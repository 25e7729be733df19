package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/ivcrush/internal/score/liquidity"
	"github.com/sawpanic/ivcrush/internal/score/vrp"
)

const sampleYAML = `
configs:
  - name: custom
    weights: {pop: 40, liquidity: 20, vrp: 20, edge: 10, greeks: 5, size: 5}
    vrp:
      profile: aggressive
      min_periods: 6
    liquidity:
      missing_data: assume_warning
    min_score: 55
    max_positions: 2
  - name: tight
    weights: {pop: 30, liquidity: 30, vrp: 20, edge: 10, greeks: 5, size: 5}
    vrp:
      overrides: {excellent: 2.2}
`

func TestParse_Valid(t *testing.T) {
	configs, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Len(t, configs, 2)

	custom := configs[0]
	assert.Equal(t, "custom", custom.Name)
	assert.Equal(t, vrp.ProfileAggressive, custom.VRPProfile)
	assert.Equal(t, 6, custom.MinPeriods)
	assert.Equal(t, liquidity.AssumeWarning, custom.MissingData)
	assert.Equal(t, 2, custom.MaxPositions)

	tight := configs[1]
	assert.Equal(t, 2.2, tight.VRP.Excellent)
	assert.Equal(t, 1.4, tight.VRP.Good)
}

func TestParse_RejectsUnknownField(t *testing.T) {
	_, err := Parse([]byte(`
configs:
  - name: typo
    weights: {pop: 100, liquidty: 0}
`))
	assert.Error(t, err)
}

func TestParse_RejectsBadWeightsAndDuplicates(t *testing.T) {
	_, err := Parse([]byte(`
configs:
  - name: short
    weights: {pop: 50, vrp: 40}
`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidWeights))

	_, err = Parse([]byte(`
configs:
  - name: dup
    weights: {pop: 100}
  - name: dup
    weights: {pop: 100}
`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Parse([]byte("configs: []\n"))
	assert.Error(t, err)
}

func TestSaveLoad_PresetsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	require.NoError(t, Save(PresetSpecs(), path))

	loaded, err := Load(path)
	require.NoError(t, err)

	presets := Presets()
	require.Len(t, loaded, len(presets))
	for i := range presets {
		assert.Equal(t, presets[i].Fingerprint(), loaded[i].Fingerprint(), presets[i].Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
