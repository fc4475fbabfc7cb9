// Package config defines the recognized configuration surface for the
// promptweave assembly engine. Structs carry yaml and json tags so the same
// types serve file loading and structured logging.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Assembly AssemblyConfig `yaml:"assembly" json:"assembly"`
	Sections SectionsConfig `yaml:"sections" json:"sections"`
}

// DefaultConfig returns sensible defaults for the whole engine.
func DefaultConfig() Config {
	return Config{
		Assembly: DefaultAssemblyConfig(),
		Sections: DefaultSectionsConfig(),
	}
}

// Load reads a YAML config file, layering it over defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for fatal mistakes. Budget pressure is
// never a validation concern; only malformed values are.
func (c Config) Validate() error {
	if err := c.Assembly.Validate(); err != nil {
		return err
	}
	return c.Sections.Validate()
}
