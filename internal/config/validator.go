package config

import (
	"fmt"
	"regexp"
)

var instanceIDPattern = regexp.MustCompile(`^[a-z0-9\-]+$`)

// Validate checks if the configuration is valid and fills in defaults
func Validate(cfg *Config) error {
	// Validate instance_id
	if cfg.InstanceID == "" {
		return fmt.Errorf("instance_id is required")
	}
	if !instanceIDPattern.MatchString(cfg.InstanceID) {
		return fmt.Errorf("instance_id must match pattern [a-z0-9-]+")
	}

	// Validate provider
	switch cfg.Provider {
	case "sim", "x11", "gst":
	case "":
		cfg.Provider = "x11"
	default:
		return fmt.Errorf("provider must be one of sim, x11, gst (got %q)", cfg.Provider)
	}

	if cfg.Frames == 0 {
		cfg.Frames = 10 // default
	}

	// Validate capture config
	if cfg.Capture.Width < 0 || cfg.Capture.Height < 0 {
		return fmt.Errorf("capture dimensions must be >= 0")
	}
	switch cfg.Capture.BufferFormat {
	case "rgb", "rgba", "bgra":
	case "":
		cfg.Capture.BufferFormat = "rgb"
	default:
		return fmt.Errorf("capture.buffer_format must be one of rgb, rgba, bgra (got %q)",
			cfg.Capture.BufferFormat)
	}

	// Validate output config
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "frames"
	}
	switch cfg.Output.Format {
	case "png", "jpeg":
	case "":
		cfg.Output.Format = "png"
	default:
		return fmt.Errorf("output.format must be png or jpeg (got %q)", cfg.Output.Format)
	}
	if cfg.Output.JPEGQuality <= 0 || cfg.Output.JPEGQuality > 100 {
		cfg.Output.JPEGQuality = 90 // default
	}

	// Set default topics if broker is configured
	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.Topics.Reports == "" {
			cfg.MQTT.Topics.Reports = fmt.Sprintf("capture/reports/%s", cfg.InstanceID)
		}
		if cfg.MQTT.Topics.Health == "" {
			cfg.MQTT.Topics.Health = fmt.Sprintf("capture/health/%s", cfg.InstanceID)
		}
	}

	return nil
}
