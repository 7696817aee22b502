package marketplace

// ChainID identifies the network a transaction was observed on.
type ChainID uint64

const (
	ChainEthereum  ChainID = 1
	ChainOptimism  ChainID = 10
	ChainBSC       ChainID = 56
	ChainPolygon   ChainID = 137
	ChainFantom    ChainID = 250
	ChainArbitrum  ChainID = 42161
	ChainAvalanche ChainID = 43114
)

// NativeSymbol returns the gas currency symbol for the chain.
func (c ChainID) NativeSymbol() string {
	switch c {
	case ChainBSC:
		return "BNB"
	case ChainPolygon:
		return "MATIC"
	case ChainAvalanche:
		return "AVAX"
	case ChainFantom:
		return "FTM"
	default:
		return "ETH"
	}
}

// LlamaTokenKey is the DefiLlama chain prefix used for token price lookups.
func (c ChainID) LlamaTokenKey() string {
	switch c {
	case ChainEthereum:
		return "ethereum"
	case ChainOptimism:
		return "optimism"
	case ChainBSC:
		return "bsc"
	case ChainPolygon:
		return "polygon"
	case ChainFantom:
		return "fantom"
	case ChainArbitrum:
		return "arbitrum"
	case ChainAvalanche:
		return "avax"
	default:
		return ""
	}
}

// NativeCoinKey is the DefiLlama coin key for the chain's native currency.
func (c ChainID) NativeCoinKey() string {
	switch c {
	case ChainEthereum, ChainOptimism, ChainArbitrum:
		return "coingecko:ethereum"
	case ChainBSC:
		return "coingecko:binancecoin"
	case ChainPolygon:
		return "coingecko:matic-network"
	case ChainFantom:
		return "coingecko:fantom"
	case ChainAvalanche:
		return "coingecko:avalanche-2"
	default:
		return ""
	}
}

// OpenSeaChainName is the chain segment used by the OpenSea v2 API.
func (c ChainID) OpenSeaChainName() string {
	switch c {
	case ChainEthereum:
		return "ethereum"
	case ChainOptimism:
		return "optimism"
	case ChainBSC:
		return "bsc"
	case ChainPolygon:
		return "matic"
	case ChainArbitrum:
		return "arbitrum"
	case ChainAvalanche:
		return "avalanche"
	default:
		return ""
	}
}
