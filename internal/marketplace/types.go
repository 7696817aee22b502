package marketplace

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// PriceUnset is the sentinel a price field carries until a parser records a
// real value for it.
const PriceUnset = "~"

// TokenStandard is the NFT contract standard of a collection.
type TokenStandard int

const (
	TokenStandardUnknown TokenStandard = iota
	TokenStandardERC721
	TokenStandardERC1155
)

func (t TokenStandard) String() string {
	switch t {
	case TokenStandardERC721:
		return "ERC721"
	case TokenStandardERC1155:
		return "ERC1155"
	default:
		return "UNKNOWN"
	}
}

// PriceCurrency names the currency a price is denominated in.
type PriceCurrency struct {
	Name     string
	Decimals uint8
}

// TokenPrice is an accumulated fill price in its settlement currency plus the
// USD equivalent at observation time. Value and ValueInUSD hold PriceUnset
// until a parser contributes a priced fill.
type TokenPrice struct {
	Value      string
	ValueInUSD string
	Currency   PriceCurrency
}

// MarketFill accumulates the amount and price of one token filled on one market
// within a single transaction.
type MarketFill struct {
	Market MarketName
	Amount int64
	Price  TokenPrice
}

// TokenData tracks every fill of a single token id across markets in one
// transaction.
type TokenData struct {
	TokenID string
	Name    string
	Markets map[MarketName]*MarketFill
}

// ContractInfo is on-chain metadata for an NFT collection.
type ContractInfo struct {
	Address              common.Address
	Name                 string
	Symbol               string
	TokenType            TokenStandard
	TotalSupply          uint64
	AggregatorFloorPrice float64
}

// TransactionInput is the raw material handed to the reconstructor: one
// confirmed transaction and its receipt logs.
type TransactionInput struct {
	Hash      string
	From      common.Address
	To        common.Address
	Value     *big.Int
	Timestamp int64
	Chain     ChainID
	Logs      []types.Log
}

// TransactionData is the in-flight reconstruction of a trade. Parsers fold
// marketplace logs into it one at a time.
type TransactionData struct {
	InteractedMarket Market
	TransactionHash  string
	Contract         ContractInfo
	Chain            ChainID
	fromAddr         string
	toAddr           string
	Currency         PriceCurrency
	TotalPrice       float64
	TotalPriceInUSD  float64
	TotalAmount      int64
	IsBlurBid        bool
	Tokens           map[string]*TokenData
	Swap             *Swap
}

func NewTransactionData(hash string, chain ChainID, contract ContractInfo, market Market) *TransactionData {
	return &TransactionData{
		InteractedMarket: market,
		TransactionHash:  hash,
		Contract:         contract,
		Chain:            chain,
		Tokens:           make(map[string]*TokenData),
	}
}

// SetFromAddr records the seller side once. Later calls are ignored so that
// the first parser to identify a party wins.
func (t *TransactionData) SetFromAddr(addr string) {
	if t.fromAddr == "" {
		t.fromAddr = addr
	}
}

// SetToAddr records the buyer side once, mirroring SetFromAddr.
func (t *TransactionData) SetToAddr(addr string) {
	if t.toAddr == "" {
		t.toAddr = addr
	}
}

func (t *TransactionData) FromAddr() string { return t.fromAddr }
func (t *TransactionData) ToAddr() string   { return t.toAddr }

// tokenFill is one parser's contribution for a single token.
type tokenFill struct {
	tokenID    string
	name       string
	amount     int64
	market     MarketName
	hasPrice   bool
	price      float64
	priceInUSD float64
	currency   PriceCurrency
}

// applyTokenFill folds a fill into the per-token accumulator, summing amounts
// and prices when the same token fills more than once on the same market.
func (t *TransactionData) applyTokenFill(f tokenFill) {
	token := t.Tokens[f.tokenID]
	if token == nil {
		token = &TokenData{
			TokenID: f.tokenID,
			Name:    f.name,
			Markets: make(map[MarketName]*MarketFill),
		}
		t.Tokens[f.tokenID] = token
	}
	fill := token.Markets[f.market]
	if fill == nil {
		fill = &MarketFill{
			Market: f.market,
			Price:  TokenPrice{Value: PriceUnset, ValueInUSD: PriceUnset},
		}
		token.Markets[f.market] = fill
	}
	fill.Amount += f.amount
	if !f.hasPrice {
		return
	}
	prev := 0.0
	if fill.Price.Value != PriceUnset {
		prev = ExtractNumericalValue(fill.Price.Value)
	}
	prevUSD := 0.0
	if fill.Price.ValueInUSD != PriceUnset {
		prevUSD = ExtractNumericalValue(fill.Price.ValueInUSD)
	}
	fill.Price = TokenPrice{
		Value:      FormatPrice(prev + f.price),
		ValueInUSD: FormatPrice(prevUSD + f.priceInUSD),
		Currency:   f.currency,
	}
}

// TokenValue is a finalized token price as persisted and reported.
type TokenValue struct {
	Value    float64
	Currency PriceCurrency
}

// TokenInfo is the persisted per-token slice of a trade record.
type TokenInfo struct {
	Name  string
	Price TokenValue
}

// TransactionRecord is the flattened, priced form of a trade: what the
// persistence gateway stores and the detector evaluates.
type TransactionRecord struct {
	InteractedMarket string
	TransactionHash  string
	ToAddr           string
	FromAddr         string
	Initiator        string
	TotalPrice       float64
	TotalPriceInUSD  float64
	AvgItemPrice     float64
	ContractAddress  string
	FloorPrice       float64
	Currency         string
	Timestamp        int64
	FloorPriceDiff   string
	Tokens           map[string]TokenInfo
}

// SwapAsset is one NFT leg of a peer-to-peer swap.
type SwapAsset struct {
	TokenID         string
	TokenType       TokenStandard
	ContractAddress string
	Amount          int64
}

// SwapSide is one participant of a peer-to-peer swap: the assets and currency
// they gave up.
type SwapSide struct {
	Address     string
	SpentAssets []SwapAsset
	SpentAmount string
}

// Swap is the reconstructed payload of an NFT Trader fill.
type Swap struct {
	Maker SwapSide
	Taker SwapSide
}
