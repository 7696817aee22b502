package indexer

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nftsentinel/nftsentinel/internal/db"
	"github.com/nftsentinel/nftsentinel/internal/detector"
	"github.com/nftsentinel/nftsentinel/internal/eth"
	"github.com/nftsentinel/nftsentinel/internal/marketplace"
	"github.com/nftsentinel/nftsentinel/internal/pricing"
	"github.com/nftsentinel/nftsentinel/internal/tradedb"
	"go.uber.org/zap"
)

// Indexer ties the pipeline together: eligibility filter, reconstruction,
// price normalization, persistence, detection.
type Indexer struct {
	sqlite         *sql.DB
	trades         tradedb.TradeDb
	reconstructor  *marketplace.Reconstructor
	normalizer     *pricing.Normalizer
	prices         pricing.TokenPriceSource
	metadata       eth.ContractMetadataSource
	registry       *marketplace.Registry
	currencies     *marketplace.CurrencyTable
	minPhishingUsd float64
}

func New(
	sqlite *sql.DB,
	trades tradedb.TradeDb,
	registry *marketplace.Registry,
	currencies *marketplace.CurrencyTable,
	metadata eth.ContractMetadataSource,
	floor pricing.FloorSource,
	prices pricing.TokenPriceSource,
	minPhishingUsd float64,
) *Indexer {
	return &Indexer{
		sqlite:         sqlite,
		trades:         trades,
		reconstructor:  marketplace.NewReconstructor(registry, currencies, pricing.Erc20PriceLookup(prices)),
		normalizer:     pricing.NewNormalizer(floor, prices),
		prices:         prices,
		metadata:       metadata,
		registry:       registry,
		currencies:     currencies,
		minPhishingUsd: minPhishingUsd,
	}
}

var nftTransferTopics = map[common.Hash]bool{
	marketplace.Erc721TransferTopic:        true,
	marketplace.Erc1155TransferSingleTopic: true,
	marketplace.Erc1155TransferBatchTopic:  true,
}

// ProcessTransaction runs the full pipeline for one confirmed transaction.
// The returned findings preserve the transaction's log order because logs are
// always folded sequentially within a transaction.
func (ix *Indexer) ProcessTransaction(ctx context.Context, txn marketplace.TransactionInput) ([]detector.Finding, error) {
	if !ix.eligible(txn) {
		return nil, nil
	}

	touched := touchedAddresses(txn)
	extraERC20 := ix.extractExtraErc20(ctx, txn)
	contracts := ix.nftContracts(ctx, txn)
	if len(contracts) == 0 {
		return nil, nil
	}
	if ix.nftMovedOneWayByInitiator(txn, contracts) {
		return nil, nil
	}

	var findings []detector.Finding
	for _, info := range contracts {
		contractFindings, err := ix.processContract(ctx, txn, info, extraERC20, touched)
		if err != nil {
			zap.L().Error("failed to index trade",
				zap.String("txHash", txn.Hash),
				zap.String("contract", info.Address.Hex()),
				zap.Error(err))
			continue
		}
		findings = append(findings, contractFindings...)
	}
	return findings, nil
}

// eligible is the cheap pre-filter: the transaction must touch a marketplace
// contract and move at least one NFT.
func (ix *Indexer) eligible(txn marketplace.TransactionInput) bool {
	marketTouched := ix.registry.Contains(txn.To)
	nftMoved := false
	for _, lg := range txn.Logs {
		if !marketTouched && ix.registry.Contains(lg.Address) {
			marketTouched = true
		}
		if len(lg.Topics) > 0 && nftTransferTopics[lg.Topics[0]] {
			nftMoved = true
		}
	}
	return marketTouched && nftMoved
}

func touchedAddresses(txn marketplace.TransactionInput) []string {
	seen := map[string]bool{}
	var out []string
	add := func(a common.Address) {
		s := strings.ToLower(a.Hex())
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	add(txn.From)
	add(txn.To)
	for _, lg := range txn.Logs {
		add(lg.Address)
	}
	return out
}

// extractExtraErc20 collects payments in tokens outside the currency table.
// An ERC-20 Transfer shares its topic with the ERC-721 one; the topic count
// tells them apart, transfers carry the value in data, NFTs index the id.
func (ix *Indexer) extractExtraErc20(ctx context.Context, txn marketplace.TransactionInput) []pricing.Erc20Transfer {
	var out []pricing.Erc20Transfer
	for _, lg := range txn.Logs {
		if len(lg.Topics) != 3 || lg.Topics[0] != marketplace.Erc721TransferTopic {
			continue
		}
		if ix.currencies.Contains(lg.Address) {
			continue
		}
		info, err := ix.metadata.Erc20TokenInfo(ctx, lg.Address)
		if err != nil || info == nil {
			continue
		}
		value := new(big.Int).SetBytes(lg.Data)
		usdPrice, err := ix.prices.Erc20UsdPrice(ctx, txn.Chain, strings.ToLower(lg.Address.Hex()))
		if err != nil {
			usdPrice = 0
		}
		out = append(out, pricing.Erc20Transfer{
			Symbol:   info.Symbol,
			Decimals: info.Decimals,
			Value:    marketplace.Erc20Amount(value, info.Decimals),
			UsdPrice: usdPrice,
		})
	}
	return out
}

// nftContracts resolves the NFT collections whose transfer logs appear in the
// transaction. ERC-721 collections with a total supply of one are skipped as
// likely implementation contracts.
func (ix *Indexer) nftContracts(ctx context.Context, txn marketplace.TransactionInput) []marketplace.ContractInfo {
	seen := map[common.Address]bool{}
	var out []marketplace.ContractInfo
	for _, lg := range txn.Logs {
		if len(lg.Topics) == 0 || !nftTransferTopics[lg.Topics[0]] {
			continue
		}
		if lg.Topics[0] == marketplace.Erc721TransferTopic && len(lg.Topics) != 4 {
			continue
		}
		if seen[lg.Address] {
			continue
		}
		seen[lg.Address] = true
		if marketplace.IsFilteredOutNft(lg.Address) {
			continue
		}
		info, err := ix.metadata.NftContractInfo(ctx, lg.Address)
		if err != nil {
			zap.L().Warn("failed to resolve contract metadata",
				zap.String("contract", lg.Address.Hex()),
				zap.Error(err))
			continue
		}
		if info == nil {
			continue
		}
		switch info.TokenType {
		case marketplace.TokenStandardERC1155:
			out = append(out, *info)
		case marketplace.TokenStandardERC721:
			if info.TotalSupply == 0 || info.TotalSupply > 1 {
				out = append(out, *info)
			}
		}
	}
	return out
}

// nftMovedOneWayByInitiator reports whether the transaction initiator sent an
// NFT away without a counterpart transfer of the same token. Such one-way
// moves are plain transfers, not sales, and indexing them would poison the
// price history.
func (ix *Indexer) nftMovedOneWayByInitiator(txn marketplace.TransactionInput, contracts []marketplace.ContractInfo) bool {
	standards := map[common.Address]marketplace.TokenStandard{}
	for _, c := range contracts {
		standards[c.Address] = c.TokenType
	}
	initiator := txn.From

	for i, lg := range txn.Logs {
		standard, known := standards[lg.Address]
		if !known || len(lg.Topics) == 0 || !nftTransferTopics[lg.Topics[0]] {
			continue
		}
		var from common.Address
		switch standard {
		case marketplace.TokenStandardERC1155:
			if len(lg.Topics) < 3 {
				continue
			}
			from = common.BytesToAddress(lg.Topics[2].Bytes())
		default:
			if len(lg.Topics) < 4 {
				continue
			}
			from = common.BytesToAddress(lg.Topics[1].Bytes())
		}
		if from != initiator {
			continue
		}

		paired := false
		for j, other := range txn.Logs {
			if i == j || other.Address != lg.Address || len(other.Topics) == 0 || !nftTransferTopics[other.Topics[0]] {
				continue
			}
			if standard == marketplace.TokenStandardERC1155 {
				if string(other.Data) == string(lg.Data) {
					paired = true
				}
			} else if len(other.Topics) >= 4 && len(lg.Topics) >= 4 && other.Topics[3] == lg.Topics[3] {
				paired = true
			}
		}
		if !paired {
			return true
		}
	}
	return false
}

func (ix *Indexer) processContract(ctx context.Context, txn marketplace.TransactionInput, info marketplace.ContractInfo, extraERC20 []pricing.Erc20Transfer, touched []string) ([]detector.Finding, error) {
	tx := ix.reconstructor.Reconstruct(ctx, txn, info)
	if tx.Swap != nil {
		zap.L().Info("indexed peer-to-peer swap",
			zap.String("txHash", txn.Hash),
			zap.String("maker", tx.Swap.Maker.Address),
			zap.String("taker", tx.Swap.Taker.Address),
			zap.Int("makerAssets", len(tx.Swap.Maker.SpentAssets)),
			zap.Int("takerAssets", len(tx.Swap.Taker.SpentAssets)))
		return nil, nil
	}
	if len(tx.Tokens) == 0 {
		return nil, nil
	}

	initiator := strings.ToLower(txn.From.Hex())
	res, err := ix.normalizer.Normalize(ctx, tx, initiator, txn.Timestamp, extraERC20)
	if err != nil {
		if errors.Is(err, pricing.ErrIlliquidCollection) {
			zap.L().Debug("collection below liquidity thresholds",
				zap.String("contract", info.Address.Hex()))
			return nil, nil
		}
		return nil, err
	}

	_, err = db.TxRunner(ctx, ix.sqlite, func(dbTx *sql.Tx) (struct{}, error) {
		return struct{}{}, ix.trades.StoreTrade(dbTx, res.Record)
	})
	if err != nil {
		if errors.Is(err, tradedb.ErrDuplicateTrade) {
			zap.L().Debug("trade already recorded", zap.String("txHash", txn.Hash))
		} else {
			zap.L().Error("failed to store trade", zap.String("txHash", txn.Hash), zap.Error(err))
		}
	}

	tokenID := firstTokenID(res.Record.Tokens)
	latest, err := ix.trades.GetLatestTrades(ix.sqlite, res.Record.ContractAddress, tokenID, 2)
	if err != nil {
		return nil, err
	}

	params := detector.Params{
		Chain:               txn.Chain,
		MinPhishingUsdValue: ix.minPhishingUsd,
		FloorPriceUSD:       res.FloorPriceUSD,
		IsZeroErc20:         res.IsZeroErc20,
		NativeErc20Value:    res.NativeErc20Value,
		Erc20Sum:            res.Erc20Sum,
		Erc20Symbol:         res.Erc20Symbol,
		TouchedAddresses:    touched,
	}
	return detector.Evaluate(res.Record, latest, params), nil
}

func firstTokenID(tokens map[string]marketplace.TokenInfo) string {
	first := ""
	for k := range tokens {
		if first == "" || k < first {
			first = k
		}
	}
	return first
}
