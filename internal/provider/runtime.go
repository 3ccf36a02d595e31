package provider

import "sort"

// Runtime is a snapshot of the provider globals the surrounding
// environment has injected: the single shared slot every wallet fights
// over, plus wallet-specific dedicated slots that live outside it.
//
// Beacon never reaches for environment globals directly; the embedder
// constructs a Runtime once and everything downstream (hijack detector,
// resolver, session) reads through it. Tests build synthetic runtimes.
type Runtime struct {
	shared    Handle
	dedicated map[string]Handle
}

// NewRuntime creates a runtime snapshot. dedicated maps wallet ids to
// their dedicated global handles and may be nil.
func NewRuntime(shared Handle, dedicated map[string]Handle) *Runtime {
	rt := &Runtime{shared: shared, dedicated: make(map[string]Handle, len(dedicated))}
	for id, h := range dedicated {
		if h != nil {
			rt.dedicated[id] = h
		}
	}
	return rt
}

// EmptyRuntime returns a runtime with nothing injected.
func EmptyRuntime() *Runtime {
	return NewRuntime(nil, nil)
}

// Shared returns the shared-slot handle, or nil when nothing claimed it.
func (rt *Runtime) Shared() Handle {
	return rt.shared
}

// Dedicated returns the dedicated global for a wallet id, or nil.
func (rt *Runtime) Dedicated(walletID string) Handle {
	return rt.dedicated[walletID]
}

// DedicatedIDs returns the wallet ids with dedicated globals, sorted.
func (rt *Runtime) DedicatedIDs() []string {
	ids := make([]string, 0, len(rt.dedicated))
	for id := range rt.dedicated {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasAnySoftware reports whether any provider object is injected at all.
// Distinguishes "no wallet software" from "this wallet not found".
func (rt *Runtime) HasAnySoftware() bool {
	return rt.shared != nil || len(rt.dedicated) > 0
}
