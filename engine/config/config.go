// package config loads the rig configuration from YAML and fills unset values with defaults.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/humanoid"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGroundingAxis        = "y"
	DefaultGroundingThreshold   = 0.001
	DefaultHumanDescriptionType = "human-description"
	DefaultNegativeCacheSize    = 512
)

// Config is the complete rig configuration.
type Config struct {
	Grounding GroundingConfig `yaml:"grounding"`
	Humanoid  HumanoidConfig  `yaml:"humanoid"`
	Extras    ExtrasConfig    `yaml:"extras"`
}

// GroundingConfig controls grounding measurement and the rebuild threshold.
type GroundingConfig struct {
	// Enabled is a pointer so an explicit false survives defaulting.
	Enabled   *bool   `yaml:"enabled"`
	Axis      string  `yaml:"axis"`  // x, y or z
	Plane     float32 `yaml:"plane"` // reference plane along Axis, anchor-local
	Threshold float32 `yaml:"threshold"`
}

// HumanoidConfig holds human mapping settings.
type HumanoidConfig struct {
	HipsJoint string `yaml:"hips_joint"`
}

// ExtrasConfig holds extras reconciliation settings.
type ExtrasConfig struct {
	HumanDescriptionType string `yaml:"human_description_type"`
	NegativeCacheSize    int    `yaml:"negative_cache_size"`
	DecodeWorkers        int    `yaml:"decode_workers"`
}

// Default returns the configuration used when no file is supplied.
//
// Returns:
//   - *Config: the default configuration
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML configuration file.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - *Config: the parsed configuration with defaults applied
//   - error: error if the file cannot be read or is invalid
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration bytes.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *Config: the parsed configuration with defaults applied
//   - error: error if the document is malformed or invalid
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges.
//
// Returns:
//   - error: nil if the configuration is usable
func (c *Config) Validate() error {
	if _, err := parseAxis(c.Grounding.Axis); err != nil {
		return err
	}
	if c.Grounding.Threshold < 0 {
		return fmt.Errorf("grounding.threshold must be >= 0, got %v", c.Grounding.Threshold)
	}
	if c.Extras.NegativeCacheSize < 1 {
		return fmt.Errorf("extras.negative_cache_size must be >= 1, got %d", c.Extras.NegativeCacheSize)
	}
	if c.Extras.DecodeWorkers < 1 {
		return fmt.Errorf("extras.decode_workers must be >= 1, got %d", c.Extras.DecodeWorkers)
	}
	return nil
}

// GroundingSettings converts the grounding section for the humanoid rig.
//
// Returns:
//   - humanoid.GroundingSettings: the rig grounding settings
func (c *Config) GroundingSettings() humanoid.GroundingSettings {
	axis, err := parseAxis(c.Grounding.Axis)
	if err != nil {
		axis = humanoid.AxisY
	}
	return humanoid.GroundingSettings{
		Enabled: c.Grounding.Enabled == nil || *c.Grounding.Enabled,
		Axis:    axis,
		Plane:   c.Grounding.Plane,
	}
}

func (c *Config) applyDefaults() {
	if c.Grounding.Enabled == nil {
		enabled := true
		c.Grounding.Enabled = &enabled
	}
	c.Grounding.Axis = common.Coalesce(strings.ToLower(c.Grounding.Axis), DefaultGroundingAxis)
	c.Grounding.Threshold = common.Coalesce(c.Grounding.Threshold, DefaultGroundingThreshold)
	c.Humanoid.HipsJoint = common.Coalesce(c.Humanoid.HipsJoint, humanoid.DefaultHipsJoint)
	c.Extras.HumanDescriptionType = common.Coalesce(c.Extras.HumanDescriptionType, DefaultHumanDescriptionType)
	c.Extras.NegativeCacheSize = common.Coalesce(c.Extras.NegativeCacheSize, DefaultNegativeCacheSize)
	c.Extras.DecodeWorkers = common.Coalesce(c.Extras.DecodeWorkers, max(runtime.NumCPU()-1, 1))
}

func parseAxis(s string) (humanoid.Axis, error) {
	switch s {
	case "x":
		return humanoid.AxisX, nil
	case "y":
		return humanoid.AxisY, nil
	case "z":
		return humanoid.AxisZ, nil
	}
	return 0, fmt.Errorf("grounding.axis must be x, y or z, got %q", s)
}
