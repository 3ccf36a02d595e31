package resolver

import (
	"github.com/chainlog/beacon/internal/identity"
)

// WalletStatus is one picker entry: the static descriptor plus detection
// state computed at call time (never cached) and the announced icon when
// the directory holds one.
type WalletStatus struct {
	identity.Descriptor

	Detected bool   `json:"detected"`
	Icon     string `json:"icon,omitempty"`
}

// Wallets returns the supported catalog with per-wallet detection status,
// in picker order. Callers re-invoke this on every render; detection is
// recomputed against the live directory and runtime each time.
func (r *Resolver) Wallets() []WalletStatus {
	catalog := identity.Catalog()
	out := make([]WalletStatus, 0, len(catalog))
	for _, desc := range catalog {
		out = append(out, WalletStatus{
			Descriptor: desc,
			Detected:   r.Detect(desc.ID),
			Icon:       r.announcedIcon(desc.ID),
		})
	}
	return out
}

// announcedIcon returns the icon from the wallet's directory
// announcement, when present.
func (r *Resolver) announcedIcon(walletID string) string {
	if r.dir == nil {
		return ""
	}
	for _, a := range r.dir.Snapshot() {
		if id, ok := identity.WalletForRDNS(a.RDNS); ok && id == walletID {
			return a.Icon
		}
	}
	return ""
}
