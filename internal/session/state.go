package session

import "github.com/chainlog/beacon/internal/chain"

// State is the observable connection state. Collaborators receive copies;
// only the session mutates the live value. Connected == false implies
// every other field is zero; Connected == true implies Address is set.
type State struct {
	Connected    bool   `json:"connected"`
	Address      string `json:"address"`
	ShortAddress string `json:"short_address"`
	ChainID      int64  `json:"chain_id"`
	ChainName    string `json:"chain_name"`
	Balance      string `json:"balance"`
	ProviderName string `json:"provider_name"`
}

// connectedState builds the state for a fresh connection.
func connectedState(address string, chainID int64, balance, providerName string) State {
	return State{
		Connected:    true,
		Address:      address,
		ShortAddress: chain.ShortenAddress(address),
		ChainID:      chainID,
		ChainName:    chain.Name(chainID),
		Balance:      balance,
		ProviderName: providerName,
	}
}
