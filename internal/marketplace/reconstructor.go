package marketplace

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Erc20PriceFn resolves the USD price of a payment token. The second return
// reports whether a price was available.
type Erc20PriceFn func(ctx context.Context, chain ChainID, token common.Address) (float64, bool)

// Reconstructor folds the marketplace logs of a confirmed transaction into a
// single TransactionData per NFT collection.
type Reconstructor struct {
	registry   *Registry
	currencies *CurrencyTable
	erc20Price Erc20PriceFn
}

func NewReconstructor(registry *Registry, currencies *CurrencyTable, erc20Price Erc20PriceFn) *Reconstructor {
	if erc20Price == nil {
		erc20Price = func(context.Context, ChainID, common.Address) (float64, bool) { return 0, false }
	}
	return &Reconstructor{registry: registry, currencies: currencies, erc20Price: erc20Price}
}

// Reconstruct walks the transaction's logs in order and hands every recognized
// marketplace event to its parser. Logs that fail to decode or settle in an
// unknown currency are skipped with a warning; they never fail the
// transaction. The returned TransactionData has no token fills when no parser
// recognized any log.
func (r *Reconstructor) Reconstruct(ctx context.Context, txn TransactionInput, contract ContractInfo) *TransactionData {
	market, ok := r.registry.Lookup(txn.To)
	if !ok {
		market = Market{Name: MarketUnknown, DisplayName: "Unknown", Address: txn.To}
	}
	tx := NewTransactionData(txn.Hash, txn.Chain, contract, market)

	for _, lg := range txn.Logs {
		if len(lg.Topics) == 0 {
			continue
		}
		logMarket, ok := r.registry.Lookup(lg.Address)
		if !ok || !logMarket.Handles(lg.Topics[0]) {
			continue
		}
		if err := r.dispatch(ctx, tx, lg, logMarket); err != nil {
			if errors.Is(err, ErrUnknownCurrency) {
				zap.L().Warn("skipping fill in unknown currency",
					zap.String("txHash", txn.Hash),
					zap.String("market", logMarket.Name.String()),
					zap.Error(err))
				continue
			}
			zap.L().Warn("skipping undecodable marketplace log",
				zap.String("txHash", txn.Hash),
				zap.String("market", logMarket.Name.String()),
				zap.Uint("logIndex", lg.Index),
				zap.Error(err))
		}
	}
	return tx
}

func (r *Reconstructor) dispatch(ctx context.Context, tx *TransactionData, lg types.Log, market Market) error {
	switch market.Name {
	case MarketOpenSea:
		return r.parseSeaport(ctx, tx, lg, market)
	case MarketLooksRare:
		return r.parseLooksRare(tx, lg, market)
	case MarketBlur:
		return r.parseBlur(tx, lg, market)
	case MarketX2Y2, MarketGem, MarketGenie, MarketNFTTrader, MarketSudoswap, MarketBlurSwap, MarketUnknown:
		// Aggregator and swap contracts emit no fill events of their own;
		// their settlements surface through the markets above.
		return nil
	}
	return nil
}

// BuildRecord flattens the reconstruction into the persisted record shape.
// Floor data and USD conversions are filled in by the price normalizer.
func (tx *TransactionData) BuildRecord(initiator string, timestamp int64) TransactionRecord {
	rec := TransactionRecord{
		InteractedMarket: tx.InteractedMarket.Name.String(),
		TransactionHash:  strings.ToLower(tx.TransactionHash),
		ToAddr:           strings.ToLower(tx.ToAddr()),
		FromAddr:         strings.ToLower(tx.FromAddr()),
		Initiator:        strings.ToLower(initiator),
		TotalPrice:       tx.TotalPrice,
		TotalPriceInUSD:  tx.TotalPriceInUSD,
		ContractAddress:  strings.ToLower(tx.Contract.Address.Hex()),
		Currency:         tx.Currency.Name,
		Timestamp:        timestamp,
		Tokens:           make(map[string]TokenInfo, len(tx.Tokens)),
	}
	if len(tx.Tokens) > 0 {
		rec.AvgItemPrice = tx.TotalPrice / float64(len(tx.Tokens))
	}
	for id, token := range tx.Tokens {
		info := TokenInfo{Name: token.Name}
		if fill, ok := token.Markets[tx.InteractedMarket.Name]; ok && fill.Price.Value != PriceUnset {
			info.Price = TokenValue{
				Value:    ExtractNumericalValue(fill.Price.Value),
				Currency: fill.Price.Currency,
			}
		} else if len(token.Markets) > 0 {
			// the fill happened on a market other than the entry point
			for _, fill := range token.Markets {
				if fill.Price.Value != PriceUnset {
					info.Price = TokenValue{
						Value:    ExtractNumericalValue(fill.Price.Value),
						Currency: fill.Price.Currency,
					}
					break
				}
			}
		}
		if info.Price.Currency.Name == "" {
			info.Price.Currency = PriceCurrency{Name: tx.Chain.NativeSymbol(), Decimals: 18}
		}
		rec.Tokens[id] = info
	}
	return rec
}
