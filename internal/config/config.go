// Package config handles .graphctl.yml project-level configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig represents the .graphctl.yml configuration file.
type ProjectConfig struct {
	Version     int      `yaml:"version"`
	Roots       []string `yaml:"roots"`
	SymbolLevel bool     `yaml:"symbol_level"`
	StdlibExtra []string `yaml:"stdlib_extra"`
}

// LoadProjectConfig loads project configuration from .graphctl.yml or
// .graphctl.yaml. If explicitPath is provided (from --config flag), that
// file is loaded. Otherwise, looks for .graphctl.yml then .graphctl.yaml in
// dir. Returns nil (no error) if no config file is found.
func LoadProjectConfig(dir string, explicitPath string) (*ProjectConfig, error) {
	var configPath string

	if explicitPath != "" {
		configPath = explicitPath
	} else {
		ymlPath := filepath.Join(dir, ".graphctl.yml")
		yamlPath := filepath.Join(dir, ".graphctl.yaml")

		if _, err := os.Stat(ymlPath); err == nil {
			configPath = ymlPath
		} else if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			return nil, nil // No config found, use defaults
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read project config %s: %w", configPath, err)
	}

	cfg := &ProjectConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse project config %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project config %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate checks that the ProjectConfig values are valid.
func (c *ProjectConfig) Validate() error {
	if c.Version != 0 && c.Version != 1 {
		return fmt.Errorf("unsupported config version %d (expected 1)", c.Version)
	}
	for _, r := range c.Roots {
		if r == "" {
			return fmt.Errorf("roots entries must not be empty")
		}
	}
	return nil
}

// ApplyRoots returns the configured root overrides as a set, or nil when
// the project config does not specify any (letting Module Mapper auto-
// detection take over).
func (c *ProjectConfig) ApplyRoots() map[string]bool {
	if c == nil || len(c.Roots) == 0 {
		return nil
	}
	out := make(map[string]bool, len(c.Roots))
	for _, r := range c.Roots {
		out[r] = true
	}
	return out
}
