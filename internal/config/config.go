// Package config loads playpulse configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Tracker TrackerConfig     `toml:"tracker"`
	Sink    SinkConfig        `toml:"sink"`
	Display DisplayConfig     `toml:"display"`
	Custom  map[string]string `toml:"custom"`
}

type TrackerConfig struct {
	HeartbeatIntervalMS      int `toml:"heartbeat_interval_ms"`
	InitialBufferThresholdMS int `toml:"initial_buffer_threshold_ms"`
}

type SinkConfig struct {
	// Kind selects the sink backend: memory, jsonl, sqlite or otlp.
	Kind string `toml:"kind"`

	// Path is the output file for the jsonl sink.
	Path string `toml:"path"`

	DBPath        string `toml:"db_path"`
	RetentionDays int    `toml:"retention_days"`

	// Endpoint is the OTLP/gRPC collector address for the otlp sink.
	Endpoint string `toml:"endpoint"`
}

type DisplayConfig struct {
	EventBufferSize int `toml:"event_buffer_size"`
	RefreshRateMS   int `toml:"refresh_rate_ms"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Tracker: TrackerConfig{
			HeartbeatIntervalMS:      30000,
			InitialBufferThresholdMS: 100,
		},
		Sink: SinkConfig{
			Kind:          "memory",
			DBPath:        "~/.local/share/playpulse/beacons.db",
			RetentionDays: 30,
		},
		Display: DisplayConfig{
			EventBufferSize: 500,
			RefreshRateMS:   250,
		},
	}
}

type LoadResult struct {
	Config   Config
	Warnings []string
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "playpulse", "config.toml")
}

// Load reads the configuration from the default path. A missing file yields
// the defaults with no error.
func Load() (*LoadResult, error) {
	return LoadFrom(defaultConfigPath())
}

// LoadFrom reads the configuration from the given path.
func LoadFrom(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &LoadResult{Config: DefaultConfig()}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromString(string(data))
}

// LoadFromString parses a TOML document. Keys absent from the document keep
// their defaults; unknown keys are collected as warnings rather than errors.
func LoadFromString(data string) (*LoadResult, error) {
	result := &LoadResult{Config: DefaultConfig()}

	if data == "" {
		return result, nil
	}

	md, err := toml.Decode(data, &result.Config)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for _, key := range md.Undecoded() {
		result.Warnings = append(result.Warnings, fmt.Sprintf("unknown config key: %q", key.String()))
	}

	if err := validate(&result.Config); err != nil {
		return nil, err
	}

	return result, nil
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Tracker.HeartbeatIntervalMS < 1 {
		errs = append(errs, fmt.Sprintf("heartbeat_interval_ms must be positive, got %d", cfg.Tracker.HeartbeatIntervalMS))
	}
	if cfg.Tracker.InitialBufferThresholdMS < 1 {
		errs = append(errs, fmt.Sprintf("initial_buffer_threshold_ms must be positive, got %d", cfg.Tracker.InitialBufferThresholdMS))
	}

	switch cfg.Sink.Kind {
	case "memory", "jsonl", "sqlite", "otlp":
	default:
		errs = append(errs, fmt.Sprintf("sink kind must be one of memory, jsonl, sqlite, otlp; got %q", cfg.Sink.Kind))
	}
	if cfg.Sink.Kind == "jsonl" && cfg.Sink.Path == "" {
		errs = append(errs, "jsonl sink requires a path")
	}
	if cfg.Sink.Kind == "otlp" && cfg.Sink.Endpoint == "" {
		errs = append(errs, "otlp sink requires an endpoint")
	}
	if cfg.Sink.RetentionDays < 0 {
		errs = append(errs, fmt.Sprintf("retention_days must not be negative, got %d", cfg.Sink.RetentionDays))
	}

	if cfg.Display.EventBufferSize < 1 {
		errs = append(errs, fmt.Sprintf("event_buffer_size must be positive, got %d", cfg.Display.EventBufferSize))
	}
	if cfg.Display.RefreshRateMS < 1 {
		errs = append(errs, fmt.Sprintf("refresh_rate_ms must be positive, got %d", cfg.Display.RefreshRateMS))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation error: %s", strings.Join(errs, "; "))
	}
	return nil
}
