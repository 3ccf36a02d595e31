package resolver

import (
	"github.com/chainlog/beacon/internal/hijack"
	"github.com/chainlog/beacon/internal/identity"
	"github.com/chainlog/beacon/internal/provider"
)

// Diagnostics is a structured dump of the provider environment, built for
// support engineers chasing hijack reports. Everything in it is computed
// from the same signals the resolver uses, so the dump and a resolve
// cannot disagree.
type Diagnostics struct {
	SharedInjected   bool             `json:"shared_injected"`
	SharedFlags      *provider.Flags  `json:"shared_flags,omitempty"`
	ProvidersArray   []EntryDiag      `json:"providers_array,omitempty"`
	DedicatedGlobals []string         `json:"dedicated_globals,omitempty"`
	HijackPresent    bool             `json:"hijack_present"`
	Announcements    []AnnouncedDiag  `json:"announcements"`
}

// EntryDiag describes one entry of the shared slot's providers array.
type EntryDiag struct {
	Index          int            `json:"index"`
	Flags          provider.Flags `json:"flags"`
	IsAggrDediRef  bool           `json:"is_aggressive_dedicated_ref"`
}

// AnnouncedDiag describes one directory announcement with its identity
// mapping and reference-identity checks.
type AnnouncedDiag struct {
	RDNS         string `json:"rdns"`
	Name         string `json:"name"`
	MappedWallet string `json:"mapped_wallet,omitempty"`
	SameAsShared bool   `json:"same_as_shared"`
	SameAsAggr   bool   `json:"same_as_aggressive_global"`
	Hijacked     bool   `json:"hijacked"`
	Reason       string `json:"reason,omitempty"`
}

// Diagnose captures the current environment state.
func (r *Resolver) Diagnose() Diagnostics {
	d := Diagnostics{
		DedicatedGlobals: r.rt.DedicatedIDs(),
		HijackPresent:    hijack.Present(r.rt),
		Announcements:    []AnnouncedDiag{},
	}

	shared := r.rt.Shared()
	if shared != nil {
		d.SharedInjected = true
		flags := provider.FlagsOf(shared)
		d.SharedFlags = &flags

		aggrGlobal := r.rt.Dedicated(identity.Aggressive)
		for i, p := range provider.SubProviders(shared) {
			if p == nil {
				continue
			}
			d.ProvidersArray = append(d.ProvidersArray, EntryDiag{
				Index:         i,
				Flags:         provider.FlagsOf(p),
				IsAggrDediRef: provider.Same(p, aggrGlobal),
			})
		}
	}

	if r.dir != nil {
		aggrGlobal := r.rt.Dedicated(identity.Aggressive)
		for _, a := range r.dir.Snapshot() {
			mapped, _ := identity.WalletForRDNS(a.RDNS)
			rep := hijack.Inspect(mapped, a.Provider, r.rt)
			d.Announcements = append(d.Announcements, AnnouncedDiag{
				RDNS:         a.RDNS,
				Name:         a.Name,
				MappedWallet: mapped,
				SameAsShared: provider.Same(a.Provider, shared),
				SameAsAggr:   provider.Same(a.Provider, aggrGlobal),
				Hijacked:     rep.Hijacked,
				Reason:       rep.Reason,
			})
		}
	}

	return d
}
