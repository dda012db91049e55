package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// LokiConfig configures the optional Loki log sink.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels,omitempty"`
}

// LoggingConfig controls log level, output format and sinks.
type LoggingConfig struct {
	Level  string     `yaml:"level,omitempty"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki,omitempty"`
}

// TelemetryConfig enables the Prometheus metrics endpoint.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"`
}

// ClientConfig registers one named database target. The connection URI
// scheme selects the driver (mongodb://, redis://, postgres://).
type ClientConfig struct {
	Name    string         `yaml:"name"`
	URI     string         `yaml:"uri,omitempty"`
	Options map[string]any `yaml:"options,omitempty"`
}

// DefaultsConfig holds the baseline every client registration is merged over.
type DefaultsConfig struct {
	URI     string         `yaml:"uri,omitempty"`
	Options map[string]any `yaml:"options,omitempty"`
}

// Config is the root configuration document.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
	Defaults  DefaultsConfig  `yaml:"defaults,omitempty"`
	Clients   []ClientConfig  `yaml:"clients,omitempty"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks structural constraints that cannot be expressed in the
// YAML schema itself.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("configuration is nil")
	}
	if c.Telemetry.Enabled && c.Telemetry.Listen == "" {
		return errors.New("telemetry.listen is required when telemetry is enabled")
	}
	seen := make(map[string]struct{}, len(c.Clients))
	for i, client := range c.Clients {
		name := strings.TrimSpace(client.Name)
		if name == "" {
			return fmt.Errorf("clients[%d]: name must not be empty", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("clients[%d]: duplicate client name %q", i, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// DecodeOptions converts a loosely typed options mapping into a driver
// settings struct by round-tripping through YAML. Unknown keys are ignored
// so drivers only pick up the settings they understand.
func DecodeOptions(options map[string]any, out any) error {
	if len(options) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode options: %w", err)
	}
	return nil
}
