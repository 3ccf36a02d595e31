package config

// DefaultHijackThresholdMS is the default rejection-speed cutoff. A human
// cannot read a wallet prompt and dismiss it this fast; a rejection
// arriving sooner is treated as a forged auto-reject.
const DefaultHijackThresholdMS = 1500

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.beacon",
		Discovery: DiscoveryConfig{
			RefreshPerSecond: 1,
			RefreshBurst:     3,
		},
		Session: SessionConfig{
			HijackThresholdMS: DefaultHijackThresholdMS,
			AutoReconnect:     true,
			StateFile:         "",
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.beacon/beacon.log",
		},
	}
}
