package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig represents a .casegen.yaml file in a project directory
type ProjectConfig struct {
	Version string `yaml:"version"`

	// Selection used when a command does not pass one
	Defaults SelectionConfig `yaml:"defaults"`

	// Where generated files are written
	Output OutputConfig `yaml:"output"`
}

// SelectionConfig holds the default framework, pattern and language
type SelectionConfig struct {
	Framework string `yaml:"framework,omitempty"`
	Pattern   string `yaml:"pattern,omitempty"`
	Language  string `yaml:"language,omitempty"`
}

// OutputConfig holds output preferences
type OutputConfig struct {
	Dir       string `yaml:"dir,omitempty"`
	Overwrite bool   `yaml:"overwrite,omitempty"`
	Manifest  bool   `yaml:"manifest,omitempty"`
}

// DefaultProjectConfig returns sensible defaults
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Version: "1.0",
		Defaults: SelectionConfig{
			Language: "TypeScript",
		},
		Output: OutputConfig{
			Dir:      "generated",
			Manifest: true,
		},
	}
}

// LoadProjectConfig loads a .casegen.yaml from the given directory
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ".casegen.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = filepath.Join(dir, ".casegen.yml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return DefaultProjectConfig(), nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := DefaultProjectConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveProjectConfig saves the config to .casegen.yaml
func SaveProjectConfig(dir string, cfg *ProjectConfig) error {
	configPath := filepath.Join(dir, ".casegen.yaml")

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// Merge applies overrides from another config (e.g., CLI flags)
func (c *ProjectConfig) Merge(other *ProjectConfig) {
	if other == nil {
		return
	}

	if other.Defaults.Framework != "" {
		c.Defaults.Framework = other.Defaults.Framework
	}

	if other.Defaults.Pattern != "" {
		c.Defaults.Pattern = other.Defaults.Pattern
	}

	if other.Defaults.Language != "" {
		c.Defaults.Language = other.Defaults.Language
	}

	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}

	if other.Output.Overwrite {
		c.Output.Overwrite = true
	}
}
