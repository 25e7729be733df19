package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a scoring configuration file
type File struct {
	Configs []Spec `yaml:"configs"`
}

// Load reads a YAML file of scoring configurations and validates every one.
// The first invalid configuration fails the whole file.
func Load(configPath string) ([]*ScoringConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring config %s: %w", configPath, err)
	}

	configs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(configPath), err)
	}
	return configs, nil
}

// Parse decodes and validates YAML scoring configurations. Unknown keys are
// rejected so a misspelled weight cannot silently fall back to zero.
func Parse(data []byte) ([]*ScoringConfig, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse scoring YAML: %w", err)
	}

	if len(file.Configs) == 0 {
		return nil, fmt.Errorf("%w: no configs defined", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(file.Configs))
	configs := make([]*ScoringConfig, 0, len(file.Configs))
	for i, spec := range file.Configs {
		cfg, err := New(spec)
		if err != nil {
			return nil, fmt.Errorf("configs[%d]: %w", i, err)
		}
		if seen[cfg.Name] {
			return nil, fmt.Errorf("%w: duplicate config name %q", ErrInvalidConfig, cfg.Name)
		}
		seen[cfg.Name] = true
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Save writes specs in the layout Load reads
func Save(specs []Spec, configPath string) error {
	data, err := yaml.Marshal(File{Configs: specs})
	if err != nil {
		return fmt.Errorf("failed to marshal scoring config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write scoring config: %w", err)
	}
	return nil
}

// PresetSpecs returns the editable specs of the built-in configurations
func PresetSpecs() []Spec {
	out := make([]Spec, len(presetSpecs))
	copy(out, presetSpecs)
	return out
}
