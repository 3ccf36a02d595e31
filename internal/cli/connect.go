package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/chainlog/beacon/internal/identity"
	"github.com/chainlog/beacon/internal/output"
	"github.com/chainlog/beacon/internal/session"
	beaconerr "github.com/chainlog/beacon/pkg/errors"
)

// connectCmd connects to a wallet and persists the session record.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var connectCmd = &cobra.Command{
	Use:   "connect <wallet-id>",
	Short: "Connect to a wallet",
	Long: `Resolve the wallet to a verified provider and run the connect exchange:
account access, active chain, and native balance. On success the session
record is persisted so a later status call can reconnect silently.

A rejection arriving faster than the configured threshold is reported as a
suspected provider hijack rather than a user decision.

Example:
  beacon connect metamask --env testdata/two-wallets.yaml
  BEACON_HIJACK_THRESHOLD_MS=2000 beacon connect metamask --env env.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

// disconnectCmd clears the connection and the persisted record.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect and erase the persisted session record",
	RunE:  runDisconnect,
}

// statusCmd shows the connection status, reconnecting silently when
// possible.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connection status",
	Long: `Show the persisted session record and, when a provider environment is
loaded and auto-reconnect is enabled, attempt a silent reconnect. The
attempt never prompts: it only queries already-authorized accounts.

Example:
  beacon status --env testdata/two-wallets.yaml`,
	RunE: runStatus,
}

func runConnect(cmd *cobra.Command, args []string) error {
	walletID := args[0]

	sess := newSession()
	defer sess.Close()

	if err := sess.Connect(cmd.Context(), walletID); err != nil {
		return err
	}

	st := sess.State()
	w := cmd.OutOrStdout()
	if Formatter().Format() == output.FormatJSON {
		return writeJSON(w, st)
	}
	out(w, "Connected to %s\n", identity.DisplayName(walletID))
	formatStateText(w, st)
	return nil
}

func runDisconnect(cmd *cobra.Command, _ []string) error {
	sess := newSession()
	defer sess.Close()
	sess.Disconnect()

	w := cmd.OutOrStdout()
	if Formatter().Format() == output.FormatJSON {
		return writeJSON(w, map[string]bool{"connected": false})
	}
	outln(w, "Disconnected.")
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	sess := newSession()
	defer sess.Close()

	if Config().Session.AutoReconnect {
		sess.TryAutoConnect(cmd.Context())
	}

	st := sess.State()
	w := cmd.OutOrStdout()
	if Formatter().Format() == output.FormatJSON {
		return writeJSON(w, st)
	}
	if !st.Connected {
		rec, err := session.NewFileStore(Config().StateFilePath()).Load()
		if err == nil {
			out(w, "Not connected (saved session: %s as %s)\n",
				identity.DisplayName(rec.WalletID), rec.Address)
			return nil
		}
		if !beaconerr.Is(err, beaconerr.ErrSessionNotFound) {
			return err
		}
		outln(w, "Not connected.")
		return nil
	}
	formatStateText(w, st)
	return nil
}

// newSession assembles a session over the loaded environment and the
// configured record file.
func newSession() *session.Session {
	store := session.NewFileStore(Config().StateFilePath())
	return session.New(buildResolver(), store, session.Options{
		HijackThreshold: hijackThreshold(),
		Logger:          Logger(),
	})
}

// formatStateText renders the connection state as text.
func formatStateText(w io.Writer, st session.State) {
	out(w, "  Provider: %s\n", st.ProviderName)
	out(w, "  Address:  %s (%s)\n", st.Address, st.ShortAddress)
	out(w, "  Chain:    %s (%d)\n", st.ChainName, st.ChainID)
	out(w, "  Balance:  %s\n", st.Balance)
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(statusCmd)
}
