package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/chainlog/beacon/internal/output"
	"github.com/chainlog/beacon/internal/resolver"
)

// walletsCmd lists the supported wallet catalog with detection status.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletsCmd = &cobra.Command{
	Use:   "wallets",
	Short: "List supported wallets and their detection status",
	Long: `List the supported wallet catalog in picker order, with per-wallet
detection computed against the current provider environment.

Hardware devices (Ledger, Trezor) always report as selectable but never as
browser-detected; they connect through their companion extension.

Example:
  beacon wallets --env testdata/two-wallets.yaml
  beacon wallets -o json`,
	Aliases: []string{"list"},
	RunE:    runWallets,
}

func runWallets(cmd *cobra.Command, _ []string) error {
	res := buildResolver()
	// Opening the picker re-broadcasts discovery for late initializers.
	if d := res.Directory(); d != nil {
		d.Refresh()
	}

	wallets := res.Wallets()
	w := cmd.OutOrStdout()

	if Formatter().Format() == output.FormatJSON {
		return writeJSON(w, wallets)
	}
	formatWalletsText(w, wallets)
	return nil
}

// formatWalletsText renders the picker as a text list.
func formatWalletsText(w io.Writer, wallets []resolver.WalletStatus) {
	outln(w, "Supported wallets:")
	for _, ws := range wallets {
		status := "not detected"
		switch {
		case ws.Hardware:
			status = "via " + ws.Bridge + " extension"
		case ws.Detected:
			status = "detected"
		}
		out(w, "  %-16s %-14s %s\n", ws.ID, status, ws.Description)
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(walletsCmd)
}
