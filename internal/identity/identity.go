// Package identity maps provider self-descriptions onto Beacon's internal
// wallet ids. RDNS strings from discovery announcements are the primary
// trust anchor; display names are a fuzzy fallback; duck-typed identity
// flags are normalized once into a typed Evidence record so downstream
// logic never re-reads raw handle properties.
package identity

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/chainlog/beacon/internal/provider"
)

// Supported wallet ids.
const (
	MetaMask    = "metamask"
	TokenPocket = "tokenpocket"
	OKX         = "okx"
	Binance     = "binance"
	Trust       = "trust"
	ImToken     = "imtoken"
	Coinbase    = "coinbase"
	Huobi       = "huobi"
	OneKey      = "onekey"
	Ledger      = "ledger"
	Trezor      = "trezor"
)

// Aggressive is the wallet family documented to overwrite the shared
// global and forge other wallets' identity flags. Candidates carrying its
// marks need extra corroboration everywhere except when the caller is
// looking for this family itself.
const Aggressive = OKX

// rdnsToWallet maps announced reverse-domain identities to wallet ids.
// Multiple RDNS values per wallet cover flavor builds (Flask, MMI, ...).
var rdnsToWallet = map[string]string{
	"io.metamask":          MetaMask,
	"io.metamask.flask":    MetaMask,
	"io.metamask.mmi":      MetaMask,
	"pro.tokenpocket":      TokenPocket,
	"com.okex.wallet":      OKX,
	"com.okx.wallet":       OKX,
	"com.trustwallet.app":  Trust,
	"com.coinbase.wallet":  Coinbase,
	"com.coinbase":         Coinbase,
	"com.binance.w3w":      Binance,
	"com.binance":          Binance,
	"im.token":             ImToken,
	"im.token.app":         ImToken,
	"so.onekey.app.wallet": OneKey,
}

// nameKeywords is the display-name fallback for wallets that announce
// without a mapped RDNS.
var nameKeywords = map[string][]string{
	MetaMask:    {"metamask"},
	TokenPocket: {"tokenpocket", "token pocket"},
	OKX:         {"okx", "okex"},
	Trust:       {"trust wallet"},
	Coinbase:    {"coinbase"},
	Binance:     {"binance"},
	ImToken:     {"imtoken"},
	OneKey:      {"onekey"},
	Huobi:       {"huobi", "htx"},
}

// maxNameDistance is the levenshtein budget for fuzzy keyword matching of
// announced display names ("MetaMsk" still maps to metamask; unrelated
// names do not).
const maxNameDistance = 1

// WalletForRDNS returns the wallet id for an announced RDNS.
func WalletForRDNS(rdns string) (string, bool) {
	id, ok := rdnsToWallet[rdns]
	return id, ok
}

// MatchName reports whether an announced display name plausibly belongs
// to the wallet id. Matching is case-insensitive substring first, then a
// fuzzy per-word comparison against the wallet's keywords.
func MatchName(walletID, displayName string) bool {
	keywords, ok := nameKeywords[walletID]
	if !ok {
		return false
	}

	name := strings.ToLower(strings.TrimSpace(displayName))
	if name == "" {
		return false
	}

	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}

	// Fuzzy pass: compare individual words so "MetaMsk Wallet" still maps.
	// The aggressive family is exempt because its directory matches are
	// accepted without the hijack gate; only an exact keyword may map a
	// name onto that id.
	if walletID == Aggressive {
		return false
	}
	for _, word := range strings.Fields(name) {
		for _, kw := range keywords {
			if strings.Contains(kw, " ") {
				continue
			}
			if levenshtein.ComputeDistance(word, kw) <= maxNameDistance {
				return true
			}
		}
	}
	return false
}

// Evidence is the typed identity record produced from a handle's raw
// flags. Claims holds every wallet family the handle asserts; the
// MetaMask internal marker is carried separately because it is the
// corroboration signal for the most-forged primary flag.
type Evidence struct {
	Claims         map[string]bool
	MetaMaskMarker bool
}

// Claimed reports whether the evidence asserts the given wallet family.
func (e Evidence) Claimed(walletID string) bool {
	return e.Claims[walletID]
}

// ClaimsAggressive reports whether the evidence carries the aggressive
// family's identity flags.
func (e Evidence) ClaimsAggressive() bool {
	return e.Claims[Aggressive]
}

// Examine normalizes a handle's identity flags into Evidence. Handles
// without a flag surface yield empty evidence.
func Examine(h provider.Handle) Evidence {
	ev := Evidence{Claims: make(map[string]bool)}
	if h == nil {
		return ev
	}

	flags := provider.FlagsOf(h)
	if flags.IsMetaMask {
		ev.Claims[MetaMask] = true
	}
	if flags.IsTokenPocket {
		ev.Claims[TokenPocket] = true
	}
	if flags.IsOKX {
		ev.Claims[OKX] = true
	}
	if flags.IsBinance {
		ev.Claims[Binance] = true
	}
	if flags.IsTrust {
		ev.Claims[Trust] = true
	}
	if flags.IsCoinbase {
		ev.Claims[Coinbase] = true
	}
	if flags.IsImToken {
		ev.Claims[ImToken] = true
	}
	if flags.IsOneKey {
		ev.Claims[OneKey] = true
	}
	if flags.IsHuobi {
		ev.Claims[Huobi] = true
	}
	ev.MetaMaskMarker = flags.MetaMaskMarker
	return ev
}
