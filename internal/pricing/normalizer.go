package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nftsentinel/nftsentinel/internal/marketplace"
	"go.uber.org/zap"
)

// ErrIlliquidCollection marks a collection whose liquidity stats fall below
// the evaluation thresholds. Trades in such collections are discarded because
// their floor prices are too noisy to reason about.
var ErrIlliquidCollection = errors.New("collection too illiquid to evaluate")

// Liquidity thresholds a collection must clear before its floor price is
// considered meaningful.
const (
	minOwners = 50
	minVolume = 2.0
)

var floorCurrencyETH = map[string]bool{"ETH": true, "WETH": true}

// Erc20Transfer is a payment observed outside the currency table: an ERC-20
// moved in the same transaction whose token we had to resolve on chain.
type Erc20Transfer struct {
	Symbol   string
	Decimals uint8
	Value    float64
	UsdPrice float64
}

// Result carries the persisted record plus the intermediate pricing facts the
// detector needs.
type Result struct {
	Record           marketplace.TransactionRecord
	FloorPriceUSD    float64
	NativeUsdPrice   float64
	NativeErc20Value float64
	Erc20Sum         float64
	Erc20Symbol      string
	IsZeroErc20      bool
}

// Normalizer turns a reconstructed trade into a floor-priced record.
type Normalizer struct {
	floor  FloorSource
	prices TokenPriceSource
}

func NewNormalizer(floor FloorSource, prices TokenPriceSource) *Normalizer {
	return &Normalizer{floor: floor, prices: prices}
}

// Normalize applies the floor price fallback order, the illiquidity gate and
// the extra ERC-20 override. The feed degradation rules are: an unavailable
// floor feed counts as illiquid, an unavailable token price feed degrades the
// affected USD value to zero.
func (n *Normalizer) Normalize(ctx context.Context, tx *marketplace.TransactionData, initiator string, timestamp int64, extraERC20 []Erc20Transfer) (*Result, error) {
	if len(tx.Tokens) == 0 {
		return nil, fmt.Errorf("transaction %s has no token fills", tx.TransactionHash)
	}

	nativePrice, err := n.prices.NativeUsdPrice(ctx, tx.Chain)
	if err != nil {
		zap.L().Warn("native currency price unavailable", zap.String("txHash", tx.TransactionHash), zap.Error(err))
		nativePrice = 0
	}

	floorPrice := tx.Contract.AggregatorFloorPrice
	fd, err := n.floor.GetFloorData(ctx, strings.ToLower(tx.Contract.Address.Hex()), tx.Chain)
	if err != nil {
		zap.L().Warn("floor feed unavailable", zap.String("contract", tx.Contract.Address.Hex()), zap.Error(err))
		fd = nil
	}
	if fd == nil || fd.NumberOfOwners < minOwners || fd.TotalSales == 0 || fd.TotalVolume < minVolume {
		return nil, ErrIlliquidCollection
	}

	// Blend the off-chain floor with the aggregator floor: take the lower of
	// the two when both quote in ether terms, otherwise trust the off-chain
	// feed's own currency.
	if fd.FloorPrice != 0 {
		if floorCurrencyETH[fd.Currency] {
			if floorPrice == 0 || fd.FloorPrice < floorPrice {
				floorPrice = fd.FloorPrice
			}
		} else {
			floorPrice = fd.FloorPrice
		}
	}

	floorPriceUSD := 0.0
	if tok, ok := marketplace.FloorPriceCurrency(fd.Currency); ok {
		tokenPrice, err := n.prices.Erc20UsdPrice(ctx, tok.Chain, strings.ToLower(tok.Address.Hex()))
		if err != nil {
			zap.L().Warn("floor currency price unavailable", zap.String("currency", fd.Currency), zap.Error(err))
		} else {
			floorPriceUSD = floorPrice * tokenPrice
		}
	}
	if floorPriceUSD == 0 {
		switch {
		case marketplace.IsStablecoin(fd.Currency) && fd.FloorPrice > 0:
			floorPriceUSD = fd.FloorPrice
		case nativePrice > 0:
			floorPriceUSD = floorPrice * nativePrice
		}
	}

	record := tx.BuildRecord(initiator, timestamp)
	record.FloorPrice = floorPrice
	record.Currency = fd.Currency

	res := &Result{
		FloorPriceUSD:  floorPriceUSD,
		NativeUsdPrice: nativePrice,
	}

	// Payments in tokens outside the currency table leave the reconstruction
	// priceless. Override the first token's price with the summed transfer
	// value and re-denominate the totals in native currency terms.
	if len(extraERC20) > 0 {
		symbol := extraERC20[0].Symbol
		sum := 0.0
		for _, t := range extraERC20 {
			sum += t.Value
		}
		res.Erc20Sum = sum
		res.Erc20Symbol = symbol

		firstKey := firstTokenKey(record.Tokens)
		if firstKey != "" {
			info := record.Tokens[firstKey]
			info.Price = marketplace.TokenValue{
				Value:    sum,
				Currency: marketplace.PriceCurrency{Name: symbol, Decimals: extraERC20[0].Decimals},
			}
			record.Tokens[firstKey] = info
		}

		if record.AvgItemPrice == 0 {
			priceSum := 0.0
			for _, info := range record.Tokens {
				priceSum += info.Price.Value
			}
			record.AvgItemPrice = marketplace.RoundDecimal(priceSum / float64(len(record.Tokens)))
			record.TotalPrice = marketplace.RoundDecimal(priceSum)
		}
		if nativePrice > 0 {
			res.NativeErc20Value = marketplace.TruncateDecimal(sum * extraERC20[0].UsdPrice / nativePrice)
			record.AvgItemPrice = res.NativeErc20Value
			record.TotalPrice = res.NativeErc20Value
			res.IsZeroErc20 = record.AvgItemPrice == 0
		}
	}

	if record.TotalPriceInUSD != 0 {
		avgUsd := tx.TotalPriceInUSD / float64(len(tx.Tokens))
		record.FloorPriceDiff = marketplace.CalculateFloorPriceDiff(avgUsd, floorPriceUSD)
	} else {
		record.FloorPriceDiff = marketplace.CalculateFloorPriceDiff(record.AvgItemPrice, floorPrice)
	}

	res.Record = record
	return res, nil
}

// firstTokenKey picks a stable first token: the lowest token id wins, which
// keeps the override deterministic across runs.
func firstTokenKey(tokens map[string]marketplace.TokenInfo) string {
	first := ""
	for k := range tokens {
		if first == "" || lessNumericString(k, first) {
			first = k
		}
	}
	return first
}

func lessNumericString(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Erc20PriceLookup adapts a TokenPriceSource to the reconstructor's callback.
func Erc20PriceLookup(prices TokenPriceSource) marketplace.Erc20PriceFn {
	return func(ctx context.Context, chain marketplace.ChainID, token common.Address) (float64, bool) {
		price, err := prices.Erc20UsdPrice(ctx, chain, strings.ToLower(token.Hex()))
		if err != nil || price == 0 {
			return 0, false
		}
		return price, true
	}
}
