package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/chainlog/beacon/internal/output"
	"github.com/chainlog/beacon/internal/resolver"
)

// diagnoseCmd dumps the provider environment for hijack triage.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Dump the provider environment for support triage",
	Long: `Dump the structured state of the provider environment: the shared slot
and its identity flags, the providers array, dedicated globals, collected
announcements, and whether a provider-hijacking wallet is present.

The dump is computed from the same signals resolution uses, so it always
agrees with what resolve would do.

Example:
  beacon diagnose --env testdata/hijacked.yaml -o json`,
	RunE: runDiagnose,
}

func runDiagnose(cmd *cobra.Command, _ []string) error {
	res := buildResolver()
	diag := res.Diagnose()

	w := cmd.OutOrStdout()
	if Formatter().Format() == output.FormatJSON {
		return writeJSON(w, diag)
	}
	formatDiagnoseText(w, diag)
	return nil
}

// formatDiagnoseText renders the environment dump as indented text.
func formatDiagnoseText(w io.Writer, d resolver.Diagnostics) {
	out(w, "Shared slot injected: %v\n", d.SharedInjected)
	if d.SharedFlags != nil {
		out(w, "  flags: %+v\n", *d.SharedFlags)
	}
	for _, e := range d.ProvidersArray {
		out(w, "  providers[%d]: %+v", e.Index, e.Flags)
		if e.IsAggrDediRef {
			out(w, "  (same object as the aggressive wallet's dedicated global)")
		}
		outln(w)
	}

	outln(w, "Dedicated globals:")
	if len(d.DedicatedGlobals) == 0 {
		outln(w, "  (none)")
	}
	for _, id := range d.DedicatedGlobals {
		out(w, "  - %s\n", id)
	}

	out(w, "Hijacking wallet present: %v\n", d.HijackPresent)

	outln(w, "Announcements:")
	if len(d.Announcements) == 0 {
		outln(w, "  (none)")
	}
	for _, a := range d.Announcements {
		out(w, "  - %s (rdns=%s)", a.Name, a.RDNS)
		if a.MappedWallet != "" {
			out(w, " -> %s", a.MappedWallet)
		}
		if a.Hijacked {
			out(w, "  REJECTED: %s", a.Reason)
		}
		outln(w)
	}
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(diagnoseCmd)
}
