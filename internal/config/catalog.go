package config

import (
	"fmt"
	"strings"
)

// Catalog is a read-only set of named scoring configurations
type Catalog struct {
	order  []*ScoringConfig
	byName map[string]*ScoringConfig
}

// NewCatalog indexes configs by case-insensitive name. Later configs with a
// name already present replace the earlier one in place, so a YAML file can
// override a preset.
func NewCatalog(configs ...*ScoringConfig) *Catalog {
	c := &Catalog{byName: make(map[string]*ScoringConfig, len(configs))}
	for _, cfg := range configs {
		key := strings.ToLower(cfg.Name)
		if _, ok := c.byName[key]; ok {
			for i, existing := range c.order {
				if strings.EqualFold(existing.Name, cfg.Name) {
					c.order[i] = cfg
				}
			}
		} else {
			c.order = append(c.order, cfg)
		}
		c.byName[key] = cfg
	}
	return c
}

// LoadCatalog returns the presets, extended or overridden by the YAML file
// at path when path is non-empty
func LoadCatalog(path string) (*Catalog, error) {
	configs := Presets()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		configs = append(configs, loaded...)
	}
	return NewCatalog(configs...), nil
}

// Get returns one configuration by name
func (c *Catalog) Get(name string) (*ScoringConfig, error) {
	cfg, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown config %q (available: %s)", ErrInvalidConfig, name, strings.Join(c.Names(), ", "))
	}
	return cfg, nil
}

// Resolve returns the named configurations in the order given; no names
// selects every configuration
func (c *Catalog) Resolve(names []string) ([]*ScoringConfig, error) {
	if len(names) == 0 {
		return c.All(), nil
	}
	out := make([]*ScoringConfig, 0, len(names))
	for _, name := range names {
		cfg, err := c.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

// All returns every configuration in insertion order
func (c *Catalog) All() []*ScoringConfig {
	out := make([]*ScoringConfig, len(c.order))
	copy(out, c.order)
	return out
}

// Names lists configuration names in insertion order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.order))
	for i, cfg := range c.order {
		names[i] = cfg.Name
	}
	return names
}
