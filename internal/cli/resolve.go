package cli

import (
	"github.com/spf13/cobra"

	"github.com/chainlog/beacon/internal/hijack"
	"github.com/chainlog/beacon/internal/identity"
	"github.com/chainlog/beacon/internal/output"
	beaconerr "github.com/chainlog/beacon/pkg/errors"
)

// resolveCmd resolves a wallet id to a verified provider handle.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var resolveCmd = &cobra.Command{
	Use:   "resolve <wallet-id>",
	Short: "Resolve a wallet id to its verified provider",
	Long: `Resolve a wallet id through the ordered tiers: announced providers,
dedicated global, shared-slot providers array, and the guarded shared slot.

The command reports which provider would be used for a connect, or that no
verified provider exists. It never falls back to an unverified provider.

Example:
  beacon resolve metamask --env testdata/hijacked.yaml
  beacon resolve ledger --env testdata/metamask-only.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

// detectCmd reports picker-badge detection for a wallet id.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var detectCmd = &cobra.Command{
	Use:   "detect <wallet-id>",
	Short: "Report whether a wallet is detected as installed",
	Long: `Report whether the wallet's software is currently detected. Hardware
device ids always report false; they have no injected software of their own.

Example:
  beacon detect okx --env testdata/okx-only.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func runResolve(cmd *cobra.Command, args []string) error {
	walletID := args[0]
	if !identity.Known(walletID) {
		return beaconerr.WithDetails(beaconerr.ErrUnknownWallet,
			map[string]string{"wallet": walletID})
	}

	res := buildResolver()
	handle := res.Resolve(walletID)

	type resolveResult struct {
		Wallet        string `json:"wallet"`
		Resolved      bool   `json:"resolved"`
		Bridge        string `json:"bridge,omitempty"`
		HijackPresent bool   `json:"hijack_present"`
	}

	result := resolveResult{
		Wallet:        walletID,
		Resolved:      handle != nil,
		HijackPresent: hijack.Present(res.Runtime()),
	}
	if desc, ok := identity.Describe(walletID); ok && desc.Hardware {
		result.Bridge = desc.Bridge
	}

	w := cmd.OutOrStdout()
	if Formatter().Format() == output.FormatJSON {
		return writeJSON(w, result)
	}

	name := identity.DisplayName(walletID)
	switch {
	case result.Resolved && result.Bridge != "":
		out(w, "%s resolves through the %s extension\n", name, identity.DisplayName(result.Bridge))
	case result.Resolved:
		out(w, "%s resolved to a verified provider\n", name)
	case result.HijackPresent:
		out(w, "%s could not be verified (provider-hijacking wallet present)\n", name)
	default:
		out(w, "%s not found\n", name)
	}
	return nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	walletID := args[0]
	if !identity.Known(walletID) {
		return beaconerr.WithDetails(beaconerr.ErrUnknownWallet,
			map[string]string{"wallet": walletID})
	}

	res := buildResolver()
	detected := res.Detect(walletID)

	w := cmd.OutOrStdout()
	if Formatter().Format() == output.FormatJSON {
		return writeJSON(w, map[string]any{"wallet": walletID, "detected": detected})
	}
	if detected {
		out(w, "%s detected\n", identity.DisplayName(walletID))
	} else {
		out(w, "%s not detected\n", identity.DisplayName(walletID))
	}
	return nil
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(detectCmd)
}
