// Package config loads and validates the capture service configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete game-capture configuration
type Config struct {
	InstanceID string        `yaml:"instance_id"`
	Provider   string        `yaml:"provider"` // sim, x11, gst
	Frames     uint          `yaml:"frames"`   // grab iterations per worker run
	Capture    CaptureConfig `yaml:"capture"`
	Output     OutputConfig  `yaml:"output"`
	MQTT       MQTTConfig    `yaml:"mqtt"`
}

// CaptureConfig contains capture session settings
type CaptureConfig struct {
	Width        int    `yaml:"width"`  // 0 = full display width
	Height       int    `yaml:"height"` // 0 = full display height
	WithCursor   bool   `yaml:"with_cursor"`
	BufferFormat string `yaml:"buffer_format"` // rgb, rgba, bgra
	Display      string `yaml:"display"`       // X display, e.g. :0
}

// OutputConfig contains frame sink settings
type OutputConfig struct {
	Dir         string `yaml:"dir"`
	Format      string `yaml:"format"` // png, jpeg
	JPEGQuality int    `yaml:"jpeg_quality"`
}

// MQTTConfig contains MQTT broker settings. Broker empty disables
// telemetry entirely.
type MQTTConfig struct {
	Broker string     `yaml:"broker"`
	Topics MQTTTopics `yaml:"topics"`
}

// MQTTTopics contains topic templates
type MQTTTopics struct {
	Reports string `yaml:"reports"`
	Health  string `yaml:"health"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration usable without a config file.
func Default() *Config {
	cfg := &Config{
		InstanceID: "game-capture-local",
		Provider:   "x11",
	}
	// Defaults applied by the same path a loaded file goes through.
	_ = Validate(cfg)
	return cfg
}
