// Package resolver turns a wallet id into one verified provider handle.
//
// The search runs an ordered set of tiers, each gated by the hijack
// detector unless the tier is identity-guaranteed. Absence is a normal
// result: the resolver never errors and never falls back to "whatever is
// in the shared global". Connecting to the wrong wallet is strictly
// worse than connecting to none.
package resolver

import (
	"github.com/chainlog/beacon/internal/config"
	"github.com/chainlog/beacon/internal/hijack"
	"github.com/chainlog/beacon/internal/identity"
	"github.com/chainlog/beacon/internal/provider"
	"github.com/chainlog/beacon/internal/registry"
)

// Resolver searches the directory and the injected runtime for verified
// provider handles. It is read-only: it never mutates the directory, the
// runtime, or any handle, so a resolve may run at any time.
type Resolver struct {
	dir *registry.Directory
	rt  *provider.Runtime
	log *config.Logger
}

// New creates a resolver over the given directory and runtime snapshot.
func New(dir *registry.Directory, rt *provider.Runtime, log *config.Logger) *Resolver {
	if log == nil {
		log = config.NullLogger()
	}
	if rt == nil {
		rt = provider.EmptyRuntime()
	}
	return &Resolver{dir: dir, rt: rt, log: log}
}

// Runtime returns the injected-runtime snapshot the resolver reads.
func (r *Resolver) Runtime() *provider.Runtime {
	return r.rt
}

// Directory returns the discovery directory the resolver reads.
func (r *Resolver) Directory() *registry.Directory {
	return r.dir
}

// Resolve returns a verified handle for the wallet id, or nil when no
// candidate survives the gates. Hardware wallet ids resolve through
// their companion bridge.
func (r *Resolver) Resolve(walletID string) provider.Handle {
	if desc, ok := identity.Describe(walletID); ok && desc.Hardware {
		if h := r.resolveBridge(desc.Bridge); h != nil {
			r.log.Debug("resolver: %s bridged through %s", walletID, desc.Bridge)
			return h
		}
		r.log.Debug("resolver: %s bridge %s not resolvable", walletID, desc.Bridge)
		return nil
	}
	return r.resolveDirect(walletID)
}

// Detect reports whether the wallet can currently be resolved. Hardware
// ids report false: their own software is never injected, and the picker
// badge should reflect the device, not its bridge. For every other id,
// Detect agrees exactly with Resolve.
func (r *Resolver) Detect(walletID string) bool {
	if desc, ok := identity.Describe(walletID); ok && desc.Hardware {
		return false
	}
	return r.resolveDirect(walletID) != nil
}

// resolveDirect runs tiers 1-5 for a non-hardware wallet id.
func (r *Resolver) resolveDirect(walletID string) provider.Handle {
	if h := r.fromDirectory(walletID); h != nil {
		return h
	}
	if h := r.fromDedicatedGlobal(walletID); h != nil {
		return h
	}

	shared := r.rt.Shared()
	if shared == nil {
		r.log.Debug("resolver: %s: no shared global injected", walletID)
		return nil
	}

	if h := r.fromProvidersArray(walletID, shared); h != nil {
		return h
	}
	if h := r.fromSharedGlobal(walletID, shared); h != nil {
		return h
	}

	r.log.Debug("resolver: %s: no verified provider found", walletID)
	return nil
}

// fromDirectory is tier 1: announcements collected by the discovery
// directory, matched by RDNS mapping first and announced display name
// second. The aggressive family is trusted to claim itself; everything
// else passes the hijack detector.
func (r *Resolver) fromDirectory(walletID string) provider.Handle {
	if r.dir == nil {
		return nil
	}

	candidate := registry.Announcement{}
	found := false
	for _, a := range r.dir.Snapshot() {
		if id, ok := identity.WalletForRDNS(a.RDNS); ok && id == walletID {
			candidate, found = a, true
			break
		}
	}
	if !found {
		for _, a := range r.dir.Snapshot() {
			if _, mapped := identity.WalletForRDNS(a.RDNS); mapped {
				continue
			}
			if identity.MatchName(walletID, a.Name) {
				candidate, found = a, true
				break
			}
		}
	}
	if !found {
		return nil
	}

	if walletID == identity.Aggressive {
		r.log.Debug("resolver: %s: directory self-claim accepted (rdns=%s)", walletID, candidate.RDNS)
		return candidate.Provider
	}
	if rep := hijack.Inspect(walletID, candidate.Provider, r.rt); rep.Hijacked {
		r.log.Debug("resolver: %s: directory candidate rejected: %s", walletID, rep.Reason)
		return nil
	}

	r.log.Debug("resolver: %s: resolved via directory (rdns=%s)", walletID, candidate.RDNS)
	return candidate.Provider
}

// fromDedicatedGlobal is tier 2: the wallet-specific global outside the
// shared namespace. The aggressive family's own dedicated global is
// accepted unconditionally.
func (r *Resolver) fromDedicatedGlobal(walletID string) provider.Handle {
	h := r.rt.Dedicated(walletID)
	if h == nil {
		return nil
	}

	if walletID != identity.Aggressive {
		if rep := hijack.Inspect(walletID, h, r.rt); rep.Hijacked {
			r.log.Debug("resolver: %s: dedicated global rejected: %s", walletID, rep.Reason)
			return nil
		}
	}

	r.log.Debug("resolver: %s: resolved via dedicated global", walletID)
	return h
}

// fromProvidersArray is tier 3: the shared slot's multi-injection array.
// Entries marked by the aggressive family are skipped outright, and the
// family most commonly forged (MetaMask) additionally needs its internal
// marker, not just the primary flag.
func (r *Resolver) fromProvidersArray(walletID string, shared provider.Handle) provider.Handle {
	subs := provider.SubProviders(shared)
	if len(subs) == 0 {
		return nil
	}

	aggrGlobal := r.rt.Dedicated(identity.Aggressive)
	for i, p := range subs {
		if p == nil {
			continue
		}
		ev := identity.Examine(p)

		if walletID != identity.Aggressive &&
			(ev.ClaimsAggressive() || provider.Same(p, aggrGlobal)) {
			continue
		}
		if !ev.Claimed(walletID) {
			continue
		}
		if walletID == identity.MetaMask && !ev.MetaMaskMarker {
			r.log.Debug("resolver: metamask: providers[%d] claims the flag but lacks the internal marker", i)
			continue
		}

		r.log.Debug("resolver: %s: resolved via providers[%d]", walletID, i)
		return p
	}
	return nil
}

// fromSharedGlobal is tiers 4 and 5: the bare shared slot. Trusted for
// ordinary wallets only while the aggressive family has not overwritten
// it; trusted for the aggressive family whenever its own flags claim that
// identity, because no stronger self-signal exists.
func (r *Resolver) fromSharedGlobal(walletID string, shared provider.Handle) provider.Handle {
	ev := identity.Examine(shared)

	if walletID == identity.Aggressive {
		if ev.ClaimsAggressive() {
			r.log.Debug("resolver: %s: shared-global self-claim accepted", walletID)
			return shared
		}
		return nil
	}

	if hijack.Present(r.rt) {
		r.log.Debug("resolver: %s: shared global skipped, %s present", walletID, identity.Aggressive)
		return nil
	}
	if !ev.Claimed(walletID) {
		return nil
	}
	// A TokenPocket claim alongside a MetaMask claim means the slot is
	// TokenPocket wearing the forged flag.
	if walletID == identity.MetaMask && ev.Claimed(identity.TokenPocket) {
		r.log.Debug("resolver: metamask: shared global also claims tokenpocket, skipped")
		return nil
	}

	r.log.Debug("resolver: %s: resolved via shared global", walletID)
	return shared
}

// resolveBridge is tier 6: hardware ids delegate to their companion
// extension through the non-shared tiers (directory, dedicated global,
// providers array). The guarded shared-global tier is excluded so a
// bridge never lands on an unverified slot.
func (r *Resolver) resolveBridge(bridgeID string) provider.Handle {
	if h := r.fromDirectory(bridgeID); h != nil {
		return h
	}
	if h := r.fromDedicatedGlobal(bridgeID); h != nil {
		return h
	}
	if shared := r.rt.Shared(); shared != nil {
		if h := r.fromProvidersArray(bridgeID, shared); h != nil {
			return h
		}
	}
	return nil
}
