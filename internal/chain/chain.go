// Package chain holds the static EVM chain metadata the connection
// session projects into its observable state, plus the hex-quantity
// helpers for values read off a provider handle.
package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	beaconerr "github.com/chainlog/beacon/pkg/errors"
)

// etherDecimals is the wei precision of the native currency.
const etherDecimals = 18

// displayDecimals is the precision shown to users.
const displayDecimals = 4

// names maps well-known chain ids to display names. Unlisted ids render
// through Name's generic fallback.
var names = map[int64]string{
	1:        "Ethereum Mainnet",
	5:        "Goerli Testnet",
	10:       "Optimism",
	56:       "BNB Smart Chain",
	97:       "BSC Testnet",
	137:      "Polygon",
	250:      "Fantom",
	8453:     "Base",
	42161:    "Arbitrum One",
	43113:    "Avalanche Fuji",
	43114:    "Avalanche",
	31337:    "Localhost",
	11155111: "Sepolia Testnet",
}

// Name returns the display name for a chain id.
func Name(id int64) string {
	if n, ok := names[id]; ok {
		return n
	}
	return fmt.Sprintf("Chain %d", id)
}

// ParseID decodes a hex chain-id quantity ("0x1") as returned by the
// eth_chainId method.
func ParseID(hex string) (int64, error) {
	v, err := hexutil.DecodeBig(strings.TrimSpace(hex))
	if err != nil {
		return 0, beaconerr.Wrap(err, "parsing chain id %q", hex)
	}
	if !v.IsInt64() {
		return 0, beaconerr.WithDetails(beaconerr.ErrInvalidInput, map[string]string{"chain_id": hex})
	}
	return v.Int64(), nil
}

// ParseWei decodes a hex wei quantity as returned by eth_getBalance.
func ParseWei(hex string) (*big.Int, error) {
	v, err := hexutil.DecodeBig(strings.TrimSpace(hex))
	if err != nil {
		return nil, beaconerr.Wrap(err, "parsing balance %q", hex)
	}
	return v, nil
}

// FormatEther renders a wei amount as a fixed 4-decimal ether string.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0000"
	}

	str := wei.String()
	for len(str) <= etherDecimals {
		str = "0" + str
	}

	split := len(str) - etherDecimals
	whole, frac := str[:split], str[split:]
	if len(frac) > displayDecimals {
		frac = frac[:displayDecimals]
	}
	return whole + "." + frac
}

// ValidAddress reports whether s is a well-formed hex account address.
func ValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// ShortenAddress renders an address as its 6-char head and 4-char tail,
// the form shown next to the connect button.
func ShortenAddress(addr string) string {
	if addr == "" {
		return ""
	}
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
