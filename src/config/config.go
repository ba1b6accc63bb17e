// Package config holds the server configuration: compiler environment,
// analysis timing, and workspace discovery settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config contains language server configuration.
type Config struct {
	Compiler CompilerConfig `yaml:"compiler"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Sources  SourcesConfig  `yaml:"sources"`
}

// CompilerConfig selects the Python environment that hosts the compiler.
type CompilerConfig struct {
	Python         string `yaml:"python"`
	DefaultVersion string `yaml:"default_version,omitempty"`
}

// AnalysisConfig tunes the reparse scheduler. Delays are in milliseconds.
type AnalysisConfig struct {
	FastDebounceMs int `yaml:"fast_debounce_ms"`
	SlowDebounceMs int `yaml:"slow_debounce_ms"`
}

// SourcesConfig controls workspace file discovery.
type SourcesConfig struct {
	Globs []string `yaml:"globs,omitempty"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Compiler.Python == "" {
		return fmt.Errorf("compiler python interpreter is required")
	}
	if config.Analysis.FastDebounceMs < 0 || config.Analysis.SlowDebounceMs < 0 {
		return fmt.Errorf("debounce delays must be non-negative")
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".couleuvre", "config.yaml")
}

// GetDefaultConfig returns the built-in defaults: short debounce for the
// navigation pipeline, longer for the diagnostics pipeline.
func GetDefaultConfig() *Config {
	return &Config{
		Compiler: CompilerConfig{
			Python: "python3",
		},
		Analysis: AnalysisConfig{
			FastDebounceMs: 300,
			SlowDebounceMs: 1000,
		},
		Sources: SourcesConfig{
			Globs: []string{"**/*.vy", "**/*.vyi"},
		},
	}
}

// LoadOrDefault loads the config at path when it exists, otherwise the
// defaults. A missing file is not an error; a malformed one is.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = GetDefaultConfigPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return GetDefaultConfig(), nil
	}
	return LoadConfig(path)
}
