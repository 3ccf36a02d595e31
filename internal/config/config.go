// Package config provides configuration management for Beacon.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Home      string          `yaml:"home"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Session   SessionConfig   `yaml:"session"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DiscoveryConfig defines provider-discovery settings.
type DiscoveryConfig struct {
	// RefreshPerSecond caps picker-triggered re-broadcasts of the
	// discovery request.
	RefreshPerSecond float64 `yaml:"refresh_per_second"`
	RefreshBurst     int     `yaml:"refresh_burst"`
}

// SessionConfig defines connection-session settings.
type SessionConfig struct {
	// HijackThresholdMS is the rejection-speed cutoff below which a
	// user-rejection code is reclassified as a suspected hijack.
	HijackThresholdMS int `yaml:"hijack_threshold_ms"`

	// AutoReconnect enables silent reconnection from the persisted record.
	AutoReconnect bool `yaml:"auto_reconnect"`

	// StateFile is the persisted session record path.
	StateFile string `yaml:"state_file"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// GetHome returns the beacon home directory path.
func (c *Config) GetHome() string {
	return c.Home
}

// StateFilePath returns the persisted session record path, resolving the
// default location under home when unset.
func (c *Config) StateFilePath() string {
	if c.Session.StateFile != "" {
		return c.Session.StateFile
	}
	return filepath.Join(c.Home, "session.json")
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default beacon home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".beacon"
	}
	return filepath.Join(home, ".beacon")
}
