package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_GetAndResolve(t *testing.T) {
	c := NewCatalog(Presets()...)
	assert.Equal(t, []string{"balanced", "vrp_dominant", "liquidity_first", "pop_heavy", "edge_focused", "legacy"}, c.Names())

	cfg, err := c.Get(" POP_HEAVY ")
	require.NoError(t, err)
	assert.Equal(t, "pop_heavy", cfg.Name)

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	all, err := c.Resolve(nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	some, err := c.Resolve([]string{"legacy", "balanced"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "legacy", some[0].Name)
	assert.Equal(t, "balanced", some[1].Name)

	_, err = c.Resolve([]string{"balanced", "nope"})
	assert.Error(t, err)
}

func TestCatalog_OverrideKeepsPosition(t *testing.T) {
	spec := PresetSpecs()[0]
	spec.MinScore = 70
	override := MustNew(spec)

	c := NewCatalog(append(Presets(), override)...)
	assert.Len(t, c.All(), 6)
	cfg, err := c.Get("balanced")
	require.NoError(t, err)
	assert.Equal(t, 70.0, cfg.MinScore)
	assert.Equal(t, "balanced", c.Names()[0])
}

func TestLoadCatalog_FromYAML(t *testing.T) {
	spec := PresetSpecs()[0]
	spec.Name = "tight"
	spec.MinScore = 80
	path := filepath.Join(t.TempDir(), "configs.yaml")
	require.NoError(t, Save([]Spec{spec}, path))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, c.All(), 7)
	cfg, err := c.Get("tight")
	require.NoError(t, err)
	assert.Equal(t, 80.0, cfg.MinScore)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	c, err = LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.All(), 6)
}
