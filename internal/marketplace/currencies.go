package marketplace

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Currency is a payment token accepted by the marketplaces we follow.
type Currency struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// NullAddress stands in for the chain's native currency in marketplace events.
var NullAddress = common.HexToAddress("0x0000000000000000000000000000000000000000")

// CurrencyTable maps payment token addresses to their symbol and decimals.
// Lookups are case-insensitive because log addresses arrive checksummed.
type CurrencyTable struct {
	byAddress map[common.Address]Currency
}

func NewCurrencyTable(currencies []Currency) *CurrencyTable {
	t := &CurrencyTable{byAddress: make(map[common.Address]Currency, len(currencies))}
	for _, c := range currencies {
		t.byAddress[c.Address] = c
	}
	return t
}

// DefaultCurrencies returns the mainnet payment tokens the marketplaces settle in.
func DefaultCurrencies() *CurrencyTable {
	return NewCurrencyTable([]Currency{
		{NullAddress, "ETH", 18},
		{common.HexToAddress("0xC02aaa39b223FE8D0A0e5C4F27eAD9083C756Cc2"), "WETH", 18},
		{common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), "USDT", 6},
		{common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), "USDC", 6},
		{common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), "DAI", 18},
		{common.HexToAddress("0x4Fabb145d64652a948d72533023f6E7A623C7C53"), "BUSD", 18},
		{common.HexToAddress("0x0000000000A39bb272e79075ade125fd351887Ac"), "Blur Pool", 18},
	})
}

func (t *CurrencyTable) Lookup(addr common.Address) (Currency, bool) {
	c, ok := t.byAddress[addr]
	return c, ok
}

func (t *CurrencyTable) Contains(addr common.Address) bool {
	_, ok := t.byAddress[addr]
	return ok
}

// stablecoin symbols are priced at face value when a floor feed quotes in them.
var stablecoinSymbols = map[string]bool{
	"USDT":   true,
	"USDC":   true,
	"DAI":    true,
	"TUSD":   true,
	"BUSD":   true,
	"USDT.E": true,
	"USDT.e": true,
	"USDt":   true,
	"USDC.E": true,
	"USDC.e": true,
	"BUSD.E": true,
	"BUSD.e": true,
	"DAI.E":  true,
	"DAI.e":  true,
}

func IsStablecoin(symbol string) bool {
	if stablecoinSymbols[symbol] {
		return true
	}
	return stablecoinSymbols[strings.ToUpper(symbol)]
}

// FloorCurrencyToken describes an ERC-20 a floor feed may quote floor prices in.
type FloorCurrencyToken struct {
	Chain   ChainID
	Address common.Address
}

// floorPriceCurrencies are non-native, non-stablecoin floor quote currencies we
// can convert to USD through a token price feed.
var floorPriceCurrencies = map[string]FloorCurrencyToken{
	"GALA": {ChainEthereum, common.HexToAddress("0xd1d2Eb1B1e90B638588728b4130137D262C87cae")},
}

func FloorPriceCurrency(symbol string) (FloorCurrencyToken, bool) {
	t, ok := floorPriceCurrencies[symbol]
	return t, ok
}

// filteredOutNfts are collections excluded from indexing (wash-traded spam).
var filteredOutNfts = map[common.Address]bool{
	common.HexToAddress("0xE3B1D32e43CE8d658368e2CBFF95D57Ef39Be8a6"): true,
}

func IsFilteredOutNft(addr common.Address) bool {
	return filteredOutNfts[addr]
}
