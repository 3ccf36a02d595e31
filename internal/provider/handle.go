// Package provider defines the wallet provider handle contract and the
// snapshot of the injected page runtime the resolver searches.
//
// A Handle is the EIP-1193-equivalent capability object through which the
// page talks to one wallet extension. Handles are borrowed references owned
// by the environment that injected them; Beacon never copies or mutates
// them, it only requests, subscribes, and compares identities.
package provider

import "context"

// Provider event names consumed by the connection session.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
)

// Provider request methods consumed by Beacon.
const (
	// MethodRequestAccounts prompts the wallet for account access.
	MethodRequestAccounts = "eth_requestAccounts"

	// MethodAccounts lists already-authorized accounts without prompting.
	// Used exclusively by silent auto-reconnect.
	MethodAccounts = "eth_accounts"

	// MethodChainID queries the active chain id (hex quantity).
	MethodChainID = "eth_chainId"

	// MethodGetBalance queries a native balance in wei (hex quantity).
	MethodGetBalance = "eth_getBalance"
)

// Listener receives provider change events. Listener values must be
// comparable (pointer identity) so RemoveListener can match the exact
// registration; the connection session registers itself.
type Listener interface {
	HandleProviderEvent(event string, payload any)
}

// Handle is the communication capability for one wallet provider.
type Handle interface {
	// Request performs one asynchronous round-trip to the wallet.
	Request(ctx context.Context, method string, params ...any) (any, error)

	// On attaches a change listener for the named event.
	On(event string, l Listener)

	// RemoveListener detaches a previously attached listener.
	RemoveListener(event string, l Listener)
}

// MultiProvider is implemented by shared-slot handles that carry a
// providers array (several extensions registered into one global).
type MultiProvider interface {
	Providers() []Handle
}

// FlagCarrier is implemented by handles that expose self-describing
// identity flags. The flags are untrusted hints, never proof.
type FlagCarrier interface {
	IdentityFlags() Flags
}

// Flags is the fixed, enumerable identity-flag surface read off a handle.
// MetaMaskMarker mirrors the internal "_metamask" attribute: the secondary
// corroboration signal for the family whose primary flag is most commonly
// forged.
type Flags struct {
	IsMetaMask     bool
	MetaMaskMarker bool
	IsTokenPocket  bool
	IsOKX          bool
	IsBinance      bool
	IsTrust        bool
	IsCoinbase     bool
	IsImToken      bool
	IsOneKey       bool
	IsHuobi        bool
}

// FlagsOf reads identity flags off a handle, returning the zero value for
// handles that do not expose any.
func FlagsOf(h Handle) Flags {
	if fc, ok := h.(FlagCarrier); ok {
		return fc.IdentityFlags()
	}
	return Flags{}
}

// Same reports whether two handles are the same injected object.
// Reference identity is one of the corroboration signals the hijack
// detector relies on.
func Same(a, b Handle) bool {
	if a == nil || b == nil {
		return false
	}
	return a == b
}

// SubProviders returns the multi-injection array of a shared handle, or
// nil when the handle does not carry one.
func SubProviders(h Handle) []Handle {
	if mp, ok := h.(MultiProvider); ok {
		return mp.Providers()
	}
	return nil
}
