package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
instance_id: capture-dev-01
provider: sim
frames: 25
capture:
  width: 1920
  height: 1080
  with_cursor: true
  buffer_format: bgra
output:
  dir: /tmp/frames
  format: jpeg
  jpeg_quality: 75
mqtt:
  broker: localhost:1883
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.InstanceID != "capture-dev-01" {
		t.Errorf("InstanceID = %q", cfg.InstanceID)
	}
	if cfg.Provider != "sim" || cfg.Frames != 25 {
		t.Errorf("provider/frames = %q/%d", cfg.Provider, cfg.Frames)
	}
	if cfg.Capture.Width != 1920 || cfg.Capture.Height != 1080 {
		t.Errorf("capture geometry = %dx%d", cfg.Capture.Width, cfg.Capture.Height)
	}
	if !cfg.Capture.WithCursor || cfg.Capture.BufferFormat != "bgra" {
		t.Errorf("cursor/format = %v/%q", cfg.Capture.WithCursor, cfg.Capture.BufferFormat)
	}
	if cfg.Output.Format != "jpeg" || cfg.Output.JPEGQuality != 75 {
		t.Errorf("output = %q/%d", cfg.Output.Format, cfg.Output.JPEGQuality)
	}

	// Topics default from the instance id when the broker is set.
	if cfg.MQTT.Topics.Reports != "capture/reports/capture-dev-01" {
		t.Errorf("reports topic = %q", cfg.MQTT.Topics.Reports)
	}
	if cfg.MQTT.Topics.Health != "capture/health/capture-dev-01" {
		t.Errorf("health topic = %q", cfg.MQTT.Topics.Health)
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	cfg := &Config{InstanceID: "minimal"}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Provider != "x11" {
		t.Errorf("default provider = %q, want x11", cfg.Provider)
	}
	if cfg.Frames != 10 {
		t.Errorf("default frames = %d, want 10", cfg.Frames)
	}
	if cfg.Capture.BufferFormat != "rgb" {
		t.Errorf("default buffer format = %q, want rgb", cfg.Capture.BufferFormat)
	}
	if cfg.Output.Format != "png" || cfg.Output.JPEGQuality != 90 {
		t.Errorf("output defaults = %q/%d, want png/90", cfg.Output.Format, cfg.Output.JPEGQuality)
	}
	if cfg.Output.Dir != "frames" {
		t.Errorf("default output dir = %q, want frames", cfg.Output.Dir)
	}

	// No broker means no topic defaults.
	if cfg.MQTT.Topics.Reports != "" {
		t.Errorf("reports topic defaulted without broker: %q", cfg.MQTT.Topics.Reports)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing instance id", Config{}},
		{"uppercase instance id", Config{InstanceID: "Capture01"}},
		{"unknown provider", Config{InstanceID: "ok", Provider: "vulkan"}},
		{"unknown buffer format", Config{InstanceID: "ok",
			Capture: CaptureConfig{BufferFormat: "yuv420"}}},
		{"unknown output format", Config{InstanceID: "ok",
			Output: OutputConfig{Format: "bmp"}}},
		{"negative geometry", Config{InstanceID: "ok",
			Capture: CaptureConfig{Width: -1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			if err := Validate(&cfg); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load of missing file succeeded")
	}
}
