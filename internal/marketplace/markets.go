package marketplace

import (
	"github.com/ethereum/go-ethereum/common"
)

// MarketName enumerates every marketplace contract the registry knows about.
// Parser dispatch switches over this enum, so adding a market means extending
// the switch in Reconstructor.dispatch as well.
type MarketName int

const (
	MarketUnknown MarketName = iota
	MarketOpenSea
	MarketLooksRare
	MarketX2Y2
	MarketGem
	MarketGenie
	MarketNFTTrader
	MarketSudoswap
	MarketBlur
	MarketBlurSwap
)

func (m MarketName) String() string {
	switch m {
	case MarketOpenSea:
		return "opensea"
	case MarketLooksRare:
		return "looksrare"
	case MarketX2Y2:
		return "x2y2"
	case MarketGem:
		return "gem"
	case MarketGenie:
		return "genie"
	case MarketNFTTrader:
		return "nfttrader"
	case MarketSudoswap:
		return "sudoswap"
	case MarketBlur:
		return "blur"
	case MarketBlurSwap:
		return "blurswap"
	default:
		return "unknown"
	}
}

// IsAggregator reports whether the contract routes orders to other markets
// instead of settling them itself.
func (m MarketName) IsAggregator() bool {
	switch m {
	case MarketGem, MarketGenie, MarketBlurSwap:
		return true
	default:
		return false
	}
}

// Market is one registry entry: a settlement contract and the event topics
// its parser consumes.
type Market struct {
	Name        MarketName
	DisplayName string
	Address     common.Address
	Topics      []common.Hash
}

// Handles reports whether the parser for this market consumes the given topic.
func (m Market) Handles(topic common.Hash) bool {
	for _, t := range m.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

var (
	SeaportOrderFulfilledTopic = common.HexToHash("0x9d9af8e38d66c62e2c12f0225249fd9d721c54b83f48d9352c97c6cacdcb6f31")
	LooksRareTakerBidTopic     = common.HexToHash("0x3ee3de4684413690dee6fff1a0a4f92916a1b97d1c5a83cdf24671844306b2e3")
	LooksRareTakerAskTopic     = common.HexToHash("0x68cd251d4d267c6e2034ff0088b990352b97b2002c0476587d0c4da889c11330")
	LooksRareV1TakerAskTopic   = common.HexToHash("0x9aaa45d6db2ef74ead0751ea9113263d1dec1b50cea05f0ca2002cb8063564a4")
	BlurOrdersMatchedTopic     = common.HexToHash("0x61cbb2a3dee0b6064c2e681aadd61677fb4ef319f0b547508d495626f5a62f64")

	Erc721TransferTopic        = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	Erc1155TransferSingleTopic = common.HexToHash("0xc3d58168c5ae7397731d063d5bbf3d657854427343f4c083240f7aacaa2d0f62")
	Erc1155TransferBatchTopic  = common.HexToHash("0x4a39dc06d4c0dbc64b70af90fd698a233a518aa5d07e595d983b8c0526c8f7fb")
)

// Registry resolves contract addresses to the marketplace they belong to.
type Registry struct {
	byAddress map[common.Address]Market
}

func NewRegistry(markets []Market) *Registry {
	r := &Registry{byAddress: make(map[common.Address]Market, len(markets))}
	for _, m := range markets {
		r.byAddress[m.Address] = m
	}
	return r
}

// DefaultRegistry returns the mainnet marketplace contracts we index.
// Seaport versions share one parser, so each deployment is its own entry.
func DefaultRegistry() *Registry {
	seaportTopics := []common.Hash{SeaportOrderFulfilledTopic}
	looksRareTopics := []common.Hash{LooksRareTakerBidTopic, LooksRareTakerAskTopic, LooksRareV1TakerAskTopic}
	blurTopics := []common.Hash{BlurOrdersMatchedTopic}
	return NewRegistry([]Market{
		{MarketOpenSea, "Opensea 🌊 (Seaport 1.1)", common.HexToAddress("0x00000000006c3852cbEf3e08E8dF289169EdE581"), seaportTopics},
		{MarketOpenSea, "Opensea 🌊 (Seaport 1.4)", common.HexToAddress("0x00000000000001ad428e4906aE43D8F9852d0dD6"), seaportTopics},
		{MarketOpenSea, "Opensea 🌊 (Seaport 1.5)", common.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC"), seaportTopics},
		{MarketLooksRare, "LooksRare 👀💎", common.HexToAddress("0x0000000000E655fAe4d56241588680F86E3b2377"), looksRareTopics},
		{MarketX2Y2, "X2Y2 ⭕️", common.HexToAddress("0x74312363e45DCaBA76c59ec49a7Aa8A65a67EeD3"), nil},
		{MarketGem, "Gem 💎", common.HexToAddress("0x83C8F28c26bF6aaca652Df1DbBE0e1b56F8baBa2"), nil},
		{MarketGem, "Gem 💎", common.HexToAddress("0x0000000031F7382a812C64b604DA4fc520afEF4b"), nil},
		{MarketGenie, "Genie 🧞‍♂️", common.HexToAddress("0x0a267cF51EF038fC00E71801F5a524aec06e4f07"), nil},
		{MarketNFTTrader, "NFT Trader 🔄", common.HexToAddress("0x657E383EdB9A7407E468acBCc9Fe4C9730c7C275"), nil},
		{MarketSudoswap, "Sudoswap 🤖", common.HexToAddress("0x2B2e8cDA09bBA9660dCA5cB6233787738Ad68329"), nil},
		{MarketBlur, "Blur 🟠", common.HexToAddress("0x000000000000Ad05Ccc4F10045630fb830B95127"), blurTopics},
		{MarketBlurSwap, "Blur Swap 🟠", common.HexToAddress("0x39da41747a83aeE658334415666f3EF92DD0D541"), nil},
	})
}

func (r *Registry) Lookup(addr common.Address) (Market, bool) {
	m, ok := r.byAddress[addr]
	return m, ok
}

func (r *Registry) Contains(addr common.Address) bool {
	_, ok := r.byAddress[addr]
	return ok
}

// ContainsAny reports whether any of the given addresses is a known market.
func (r *Registry) ContainsAny(addrs []common.Address) bool {
	for _, a := range addrs {
		if r.Contains(a) {
			return true
		}
	}
	return false
}

// BlurSafeCollectionBidPolicy marks Blur collection bids; fills matched through
// it settle against a floor bid rather than a listing.
var BlurSafeCollectionBidPolicy = common.HexToAddress("0x0000000000b92D5d043FaF7CECf7E2EE6aaeD232")
