// Package cli implements the Beacon command-line interface.
//
// This package uses global variables to manage CLI state, which is the standard
// pattern for Cobra-based CLI applications. The globals are initialized in
// PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chainlog/beacon/internal/config"
	"github.com/chainlog/beacon/internal/fixture"
	"github.com/chainlog/beacon/internal/output"
	"github.com/chainlog/beacon/internal/provider"
	"github.com/chainlog/beacon/internal/resolver"
	beaconerr "github.com/chainlog/beacon/pkg/errors"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	verbose      bool
	envFile      string

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
	env       *fixture.Environment
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Wallet provider discovery and resolution",
	Long: `Beacon discovers installed wallet providers, resolves a requested wallet
to its genuine provider handle, and manages the connection session.

Resolution is identity-first: announced providers and dedicated globals win
over the shared injection slot, and the shared slot is never trusted while a
known provider-hijacking wallet is present.

Example:
  beacon wallets --env testdata/two-wallets.yaml
  beacon resolve metamask --env testdata/hijacked.yaml
  beacon connect metamask --env testdata/two-wallets.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initGlobals()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		// Format and print error
		if formatter != nil {
			_ = output.FormatError(os.Stderr, err, formatter.Format())
		} else {
			_ = output.FormatError(os.Stderr, err, output.FormatText)
		}
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return beaconerr.ExitCode(err)
}

// initGlobals initializes global configuration, logger, formatter, and
// the simulated provider environment.
func initGlobals() error {
	// Determine home directory
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	// Load or create config
	configPath := config.Path(home)
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		// Use defaults if config doesn't exist
		cfg = config.Defaults()
		cfg.Home = home
	}

	// Apply environment variable overrides
	config.ApplyEnvironment(cfg)

	// Override with command-line flags
	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}

	// Initialize logger
	logLevel := config.ParseLogLevel(cfg.Logging.Level)
	logger, err = config.NewLogger(logLevel, cfg.Logging.File)
	if err != nil {
		// Use null logger if we can't create the file
		logger = config.NullLogger()
	}

	// Initialize formatter
	explicitFormat := output.ParseFormat(cfg.Output.DefaultFormat)
	detectedFormat := output.DetectFormat(os.Stdout, explicitFormat)
	formatter = output.NewFormatter(detectedFormat, os.Stdout)

	// Load the simulated provider environment, when given. Without one
	// the runtime is empty and every wallet reports as not installed.
	if envFile != "" {
		env, err = fixture.Load(envFile, logger)
		if err != nil {
			return err
		}
		env.Directory.SetRefreshLimit(cfg.Discovery.RefreshPerSecond, cfg.Discovery.RefreshBurst)
	}

	return nil
}

// cleanup releases resources.
func cleanup() {
	if env != nil {
		env.Close()
		env = nil
	}
	if logger != nil {
		_ = logger.Close()
	}
}

// Config returns the global configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the global logger.
func Logger() *config.Logger {
	return logger
}

// Formatter returns the global output formatter.
func Formatter() *output.Formatter {
	return formatter
}

// buildResolver assembles the resolver over the loaded environment, or
// over an empty one when no fixture was given.
func buildResolver() *resolver.Resolver {
	if env != nil {
		return resolver.New(env.Directory, env.Runtime, logger)
	}
	return resolver.New(nil, provider.EmptyRuntime(), logger)
}

// hijackThreshold returns the configured rejection-speed cutoff.
func hijackThreshold() time.Duration {
	return time.Duration(cfg.Session.HijackThresholdMS) * time.Millisecond
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "beacon data directory (default: ~/.beacon)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "provider environment fixture (YAML)")
}
