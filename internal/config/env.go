package config

import (
	"os"
	"strconv"
)

// Environment variable names.
const (
	EnvHome            = "BEACON_HOME"
	EnvOutputFormat    = "BEACON_OUTPUT_FORMAT"
	EnvVerbose         = "BEACON_VERBOSE"
	EnvLogLevel        = "BEACON_LOG_LEVEL"
	EnvHijackThreshold = "BEACON_HIJACK_THRESHOLD_MS"
	EnvAutoReconnect   = "BEACON_AUTO_RECONNECT"
	EnvStateFile       = "BEACON_STATE_FILE"
)

// ApplyEnvironment applies environment variable overrides to the
// configuration.
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}
	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = v
	}
	if v := os.Getenv(EnvVerbose); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Output.Verbose = b
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvHijackThreshold); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Session.HijackThresholdMS = n
		}
	}
	if v := os.Getenv(EnvAutoReconnect); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Session.AutoReconnect = b
		}
	}
	if v := os.Getenv(EnvStateFile); v != "" {
		cfg.Session.StateFile = v
	}
}
