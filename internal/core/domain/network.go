package domain

// NetworkName identifies a Movement network.
type NetworkName string

const (
	NetworkMainnet NetworkName = "mainnet"
	NetworkTestnet NetworkName = "testnet"
	NetworkDevnet  NetworkName = "devnet"
	NetworkLocal   NetworkName = "local"
)

// Network holds the static endpoints for a network.
type Network struct {
	Name       NetworkName
	ChainID    uint8
	NodeURL    string
	IndexerURL string
	Explorer   string
}

// Networks is the static lookup of known networks.
var Networks = map[NetworkName]Network{
	NetworkMainnet: {
		Name:       NetworkMainnet,
		ChainID:    126,
		NodeURL:    "https://mainnet.movementnetwork.xyz/v1",
		IndexerURL: "https://indexer.mainnet.movementnetwork.xyz/v1/graphql",
		Explorer:   "https://explorer.movementnetwork.xyz/?network=mainnet",
	},
	NetworkTestnet: {
		Name:       NetworkTestnet,
		ChainID:    250,
		NodeURL:    "https://testnet.bardock.movementnetwork.xyz/v1",
		IndexerURL: "https://indexer.testnet.movementnetwork.xyz/v1/graphql",
		Explorer:   "https://explorer.movementnetwork.xyz/?network=bardock+testnet",
	},
	NetworkDevnet: {
		Name:       NetworkDevnet,
		ChainID:    27,
		NodeURL:    "https://devnet.movementnetwork.xyz/v1",
		IndexerURL: "https://indexer.devnet.movementnetwork.xyz/v1/graphql",
	},
	NetworkLocal: {
		Name:       NetworkLocal,
		ChainID:    4,
		NodeURL:    "http://127.0.0.1:8080/v1",
		IndexerURL: "http://127.0.0.1:8090/v1/graphql",
	},
}

// LookupNetwork returns the network for name.
func LookupNetwork(name NetworkName) (Network, bool) {
	n, ok := Networks[name]
	return n, ok
}

// NativeCoinType is the coin type of the native asset, counted in octas.
const NativeCoinType = "0x1::aptos_coin::AptosCoin"

// OctasPerMove is the number of octas in one MOVE.
const OctasPerMove = 100_000_000
