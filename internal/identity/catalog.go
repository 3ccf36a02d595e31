package identity

// Descriptor is a compiled-in entry of the supported wallet catalog.
// Detection status is computed on demand by the resolver, never stored
// here.
type Descriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
	DownloadURL string `json:"download_url"`

	// Hardware marks devices that only operate through a companion
	// extension; Bridge names the wallet id they resolve through.
	Hardware bool   `json:"hardware,omitempty"`
	Bridge   string `json:"bridge,omitempty"`
}

// catalog is ordered the way the wallet picker presents it.
var catalog = []Descriptor{
	{
		ID:          MetaMask,
		Name:        "MetaMask",
		Color:       "#E2761B",
		Description: "the most widely installed browser wallet",
		DownloadURL: "https://metamask.io/download/",
	},
	{
		ID:          TokenPocket,
		Name:        "TokenPocket",
		Color:       "#2980FE",
		Description: "multi-chain asset wallet",
		DownloadURL: "https://www.tokenpocket.pro/",
	},
	{
		ID:          OKX,
		Name:        "OKX Wallet",
		Color:       "#C4C4C4",
		Description: "OKX multi-chain wallet",
		DownloadURL: "https://www.okx.com/web3",
	},
	{
		ID:          Binance,
		Name:        "Binance Web3",
		Color:       "#F0B90B",
		Description: "official Binance Web3 wallet",
		DownloadURL: "https://www.binance.com/web3wallet",
	},
	{
		ID:          Trust,
		Name:        "Trust Wallet",
		Color:       "#3375BB",
		Description: "multi-chain wallet by Trust",
		DownloadURL: "https://trustwallet.com/",
	},
	{
		ID:          ImToken,
		Name:        "imToken",
		Color:       "#11C4D1",
		Description: "decentralized digital wallet",
		DownloadURL: "https://token.im/",
	},
	{
		ID:          Coinbase,
		Name:        "Coinbase Wallet",
		Color:       "#0052FF",
		Description: "official Coinbase wallet",
		DownloadURL: "https://www.coinbase.com/wallet",
	},
	{
		ID:          Huobi,
		Name:        "Huobi Wallet",
		Color:       "#2DAF68",
		Description: "official HECO-chain wallet",
		DownloadURL: "https://www.htx.com/wallet",
	},
	{
		ID:          OneKey,
		Name:        "OneKey",
		Color:       "#00B812",
		Description: "open-source hardware wallet",
		DownloadURL: "https://onekey.so/",
	},
	{
		ID:          Ledger,
		Name:        "Ledger",
		Color:       "#333333",
		Description: "hardware wallet, connects through its companion extension",
		DownloadURL: "https://www.ledger.com/",
		Hardware:    true,
		Bridge:      MetaMask,
	},
	{
		ID:          Trezor,
		Name:        "Trezor",
		Color:       "#00854D",
		Description: "hardware wallet, connects through its companion extension",
		DownloadURL: "https://trezor.io/",
		Hardware:    true,
		Bridge:      MetaMask,
	},
}

// Catalog returns the supported wallet descriptors in picker order.
// The returned slice is a copy; callers may not mutate the catalog.
func Catalog() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// Describe returns the descriptor for a wallet id.
func Describe(walletID string) (Descriptor, bool) {
	for _, d := range catalog {
		if d.ID == walletID {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Known reports whether the wallet id is in the supported catalog.
func Known(walletID string) bool {
	_, ok := Describe(walletID)
	return ok
}

// DisplayName returns the human-readable name for a wallet id, falling
// back to the id itself for unknown wallets.
func DisplayName(walletID string) string {
	if d, ok := Describe(walletID); ok {
		return d.Name
	}
	return walletID
}
