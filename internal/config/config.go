// Package config loads per-user defaults for the audit command.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ModelEnv overrides the configured model when set.
const ModelEnv = "PROTOAUDIT_MODEL"

// Config holds defaults that explicit command-line flags override.
type Config struct {
	Policy        string `yaml:"policy"`
	Catalog       string `yaml:"catalog"`
	Regulations   string `yaml:"regulations"`
	Model         string `yaml:"model"`
	Format        string `yaml:"format"`
	Seed          *int64 `yaml:"seed"`
	RiskThreshold string `yaml:"risk_threshold"`
	SignKey       string `yaml:"sign_key"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Policy:        "stochastic",
		Catalog:       "vaccine",
		Format:        "json",
		RiskThreshold: "Low",
	}
}

// DefaultPath returns ~/.protoaudit/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".protoaudit", "config.yaml"), nil
}

// Load reads the YAML config at path. A missing file yields the defaults;
// keys absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolveModel returns the model to use: PROTOAUDIT_MODEL when set,
// otherwise the configured one.
func (c *Config) ResolveModel() string {
	if m := os.Getenv(ModelEnv); m != "" {
		return m
	}
	return c.Model
}
