// Package hijack decides whether a candidate provider handle is an
// impersonation planted by the aggressive wallet family rather than a
// genuine instance of the wallet the caller wants.
//
// The aggressive family (OKX) is documented to take over the shared
// provider global and to forge other wallets' identity flags, so a
// candidate is judged on three independent signals: the flags it carries,
// reference identity against the family's dedicated global, and reference
// identity against a shared global known to be overwritten. None of these
// is proof; together they are enough to refuse rather than guess.
package hijack

import (
	"fmt"

	"github.com/chainlog/beacon/internal/identity"
	"github.com/chainlog/beacon/internal/provider"
)

// Report is the detector's verdict on one candidate handle. Reason is a
// diagnostic for the resolver's logs, never a user-facing message.
type Report struct {
	Hijacked bool
	Reason   string
}

func rejected(format string, args ...any) Report {
	return Report{Hijacked: true, Reason: fmt.Sprintf(format, args...)}
}

// Present reports whether the aggressive family is installed at all:
// either through its dedicated global or by its flags on the shared
// global. While it is present, the shared slot cannot be trusted for any
// other wallet.
func Present(rt *provider.Runtime) bool {
	if rt.Dedicated(identity.Aggressive) != nil {
		return true
	}
	shared := rt.Shared()
	return shared != nil && identity.Examine(shared).ClaimsAggressive()
}

// Inspect judges a candidate handle found while resolving targetID. It
// never errors; an all-clear report means the candidate passed every
// check, not that its identity is proven. Callers resolving the
// aggressive family itself must not consult the detector (a wallet
// claiming to be itself is self-consistent).
func Inspect(targetID string, h provider.Handle, rt *provider.Runtime) Report {
	if h == nil {
		return rejected("nil handle")
	}
	if targetID == identity.Aggressive {
		return Report{}
	}

	if identity.Examine(h).ClaimsAggressive() {
		return rejected("candidate for %q carries %s identity flags", targetID, identity.Aggressive)
	}

	if aggr := rt.Dedicated(identity.Aggressive); provider.Same(h, aggr) {
		return rejected("candidate for %q is the %s dedicated global", targetID, identity.Aggressive)
	}

	if shared := rt.Shared(); provider.Same(h, shared) && Present(rt) {
		return rejected("candidate for %q is the shared global, which %s has overwritten", targetID, identity.Aggressive)
	}

	return Report{}
}
