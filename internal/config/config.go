// Package config loads and validates the resonance configuration file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/resonance-hq/resonance/pkg/detectors"
)

// Default values for unset fields.
const (
	DefaultMode        = "statistical"
	DefaultWindowSize  = 50
	DefaultInterval    = "500ms"
	DefaultSourceKind  = "simulate"
	DefaultSamples     = 200
	DefaultSeed        = 42
	DefaultTriggerFile = "trigger.txt"
)

// Config is the top-level configuration.
type Config struct {
	Detector DetectorConfig `yaml:"detector"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Source   SourceConfig   `yaml:"source"`
	Training TrainingConfig `yaml:"training"`
}

// DetectorConfig selects and parameterizes the scoring backend.
type DetectorConfig struct {
	// Mode is "statistical" or "temporal".
	Mode string `yaml:"mode"`

	// WindowSize is the sequence length for temporal mode.
	WindowSize int `yaml:"window_size"`

	// Contamination is the expected outlier fraction of the baseline:
	// a fraction in (0,1), or "auto" to keep the backend's native boundary.
	Contamination string `yaml:"contamination"`
}

// MonitorConfig controls the tick loop and alerting posture.
type MonitorConfig struct {
	// Interval is the fixed delay between ticks, as a Go duration string.
	Interval string `yaml:"interval"`

	// HaltOnAlert terminates monitoring with a fatal event on the first
	// alert.
	HaltOnAlert bool `yaml:"halt_on_alert"`
}

// SourceConfig selects the observation source.
type SourceConfig struct {
	// Kind is one of: simulate | csv | pcap.
	Kind string `yaml:"kind"`

	// Path is the CSV or PCAP file for file-backed sources, or the
	// interface name for live capture.
	Path string `yaml:"path"`

	// TriggerFile flips the simulator into its degraded regime while the
	// file exists.
	TriggerFile string `yaml:"trigger_file"`
}

// TrainingConfig controls baseline acquisition.
type TrainingConfig struct {
	// Samples is the number of baseline vectors drawn before fitting.
	Samples int `yaml:"samples"`

	// Seed drives every random source for reproducible runs.
	Seed int64 `yaml:"seed"`
}

// Default returns a Config with every field at its default.
func Default() *Config {
	return &Config{
		Detector: DetectorConfig{
			Mode:          DefaultMode,
			WindowSize:    DefaultWindowSize,
			Contamination: "auto",
		},
		Monitor: MonitorConfig{
			Interval: DefaultInterval,
		},
		Source: SourceConfig{
			Kind:        DefaultSourceKind,
			TriggerFile: DefaultTriggerFile,
		},
		Training: TrainingConfig{
			Samples: DefaultSamples,
			Seed:    DefaultSeed,
		},
	}
}

// Load reads path into a Config on top of defaults and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every recognized option. Invalid values fail, they are
// never silently corrected.
func (c *Config) Validate() error {
	if c.Detector.Mode != "statistical" && c.Detector.Mode != "temporal" {
		return &detectors.ConfigError{Field: "detector.mode",
			Reason: fmt.Sprintf("unknown mode %q", c.Detector.Mode)}
	}
	if c.Detector.WindowSize <= 0 {
		return &detectors.ConfigError{Field: "detector.window_size", Reason: "must be positive"}
	}
	if _, err := c.ContaminationValue(); err != nil {
		return err
	}
	if _, err := c.IntervalDuration(); err != nil {
		return err
	}

	switch c.Source.Kind {
	case "simulate":
	case "csv", "pcap":
		if c.Source.Path == "" {
			return &detectors.ConfigError{Field: "source.path",
				Reason: fmt.Sprintf("required for %s source", c.Source.Kind)}
		}
	default:
		return &detectors.ConfigError{Field: "source.kind",
			Reason: fmt.Sprintf("unknown source %q", c.Source.Kind)}
	}

	if c.Training.Samples <= 0 {
		return &detectors.ConfigError{Field: "training.samples", Reason: "must be positive"}
	}
	return nil
}

// ContaminationValue parses the contamination option: 0 means auto.
func (c *Config) ContaminationValue() (float64, error) {
	s := c.Detector.Contamination
	if s == "" || s == "auto" {
		return 0, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &detectors.ConfigError{Field: "detector.contamination",
			Reason: fmt.Sprintf("%q is neither a fraction nor \"auto\"", s)}
	}
	if v <= 0 || v >= 1 {
		return 0, &detectors.ConfigError{Field: "detector.contamination",
			Reason: "must be a fraction in (0,1)"}
	}
	return v, nil
}

// IntervalDuration parses the tick interval.
func (c *Config) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Monitor.Interval)
	if err != nil {
		return 0, &detectors.ConfigError{Field: "monitor.interval",
			Reason: fmt.Sprintf("%q is not a duration", c.Monitor.Interval)}
	}
	if d < 0 {
		return 0, &detectors.ConfigError{Field: "monitor.interval", Reason: "must not be negative"}
	}
	return d, nil
}
