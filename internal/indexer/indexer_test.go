package indexer

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/nftsentinel/nftsentinel/internal/db/testdb"
	"github.com/nftsentinel/nftsentinel/internal/detector"
	"github.com/nftsentinel/nftsentinel/internal/eth"
	"github.com/nftsentinel/nftsentinel/internal/marketplace"
	"github.com/nftsentinel/nftsentinel/internal/pricing"
	"github.com/nftsentinel/nftsentinel/internal/tradedb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seaportAddr = common.HexToAddress("0x00000000006c3852cbEf3e08E8dF289169EdE581")
	collection  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	victimAddr  = common.HexToAddress("0xAaAAAAaAaAAAAAAAaAAAaaAAAAaaAAaaaAaaAAaA")
	attackerAdr = common.HexToAddress("0xbBbBBBbbBBbbBBBbbBbbBBBBbbbbBBbbbbbbBBbB")
	buyerAddr   = common.HexToAddress("0xCcCCcCCcccCCCcCcCCccCCcCCcccCcCCCcCcccCC")
)

// a trimmed OrderFulfilled ABI, enough to pack test payloads
const testSeaportABI = `[{"anonymous":false,"inputs":[
	{"indexed":false,"name":"orderHash","type":"bytes32"},
	{"indexed":true,"name":"offerer","type":"address"},
	{"indexed":true,"name":"zone","type":"address"},
	{"indexed":false,"name":"recipient","type":"address"},
	{"components":[{"name":"itemType","type":"uint8"},{"name":"token","type":"address"},{"name":"identifier","type":"uint256"},{"name":"amount","type":"uint256"}],"indexed":false,"name":"offer","type":"tuple[]"},
	{"components":[{"name":"itemType","type":"uint8"},{"name":"token","type":"address"},{"name":"identifier","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"recipient","type":"address"}],"indexed":false,"name":"consideration","type":"tuple[]"}],
	"name":"OrderFulfilled","type":"event"}]`

type spentItem struct {
	ItemType   uint8
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
}

type receivedItem struct {
	ItemType   uint8
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
	Recipient  common.Address
}

type stubMetadata struct{}

func (stubMetadata) NftContractInfo(ctx context.Context, addr common.Address) (*marketplace.ContractInfo, error) {
	if addr != collection {
		return nil, nil
	}
	return &marketplace.ContractInfo{
		Address:     collection,
		Name:        "Test Collection",
		TokenType:   marketplace.TokenStandardERC721,
		TotalSupply: 100,
	}, nil
}

func (stubMetadata) Erc20TokenInfo(ctx context.Context, addr common.Address) (*eth.Erc20Info, error) {
	return &eth.Erc20Info{Symbol: "JUNK", Decimals: 18}, nil
}

type stubFloor struct{ fd *pricing.FloorData }

func (s stubFloor) GetFloorData(ctx context.Context, contractAddress string, chain marketplace.ChainID) (*pricing.FloorData, error) {
	return s.fd, nil
}

type stubPrices struct{ native float64 }

func (s stubPrices) Erc20UsdPrice(ctx context.Context, chain marketplace.ChainID, tokenAddress string) (float64, error) {
	return 0, nil
}

func (s stubPrices) NativeUsdPrice(ctx context.Context, chain marketplace.ChainID) (float64, error) {
	return s.native, nil
}

func wei(v float64) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(v), big.NewFloat(1e18))
	out, _ := f.Int(nil)
	return out
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}

func saleTransaction(t *testing.T, hash string, seller, buyer common.Address, tokenID int64, priceEth float64, timestamp int64) marketplace.TransactionInput {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(testSeaportABI))
	require.NoError(t, err)

	offer := []spentItem{
		{ItemType: 2, Token: collection, Identifier: big.NewInt(tokenID), Amount: big.NewInt(1)},
	}
	consideration := []receivedItem{
		{ItemType: 0, Token: common.Address{}, Identifier: big.NewInt(0), Amount: wei(priceEth), Recipient: seller},
	}
	data, err := parsed.Events["OrderFulfilled"].Inputs.NonIndexed().Pack(
		[32]byte{0x01}, buyer, offer, consideration)
	require.NoError(t, err)

	return marketplace.TransactionInput{
		Hash:      hash,
		From:      buyer,
		To:        seaportAddr,
		Value:     wei(priceEth),
		Timestamp: timestamp,
		Chain:     marketplace.ChainEthereum,
		Logs: []types.Log{
			{
				Address: collection,
				Topics: []common.Hash{
					marketplace.Erc721TransferTopic,
					addressTopic(seller),
					addressTopic(buyer),
					common.BigToHash(big.NewInt(tokenID)),
				},
			},
			{
				Address: seaportAddr,
				Topics: []common.Hash{
					marketplace.SeaportOrderFulfilledTopic,
					addressTopic(seller),
					addressTopic(common.Address{}),
				},
				Data: data,
			},
		},
	}
}

func newTestIndexer(t *testing.T) (*Indexer, func()) {
	t.Helper()
	sqlite, cleanup := testdb.SetupTestDB(t)
	floor := stubFloor{fd: &pricing.FloorData{
		FloorPrice:     1.0,
		Currency:       "ETH",
		NumberOfOwners: 500,
		TotalSales:     100,
		TotalVolume:    250,
	}}
	ix := New(
		sqlite,
		tradedb.NewTradeDb(),
		marketplace.DefaultRegistry(),
		marketplace.DefaultCurrencies(),
		stubMetadata{},
		floor,
		stubPrices{native: 2000},
		50,
	)
	return ix, cleanup
}

func TestProcessTransactionPhishingThenStolenResale(t *testing.T) {
	ix, cleanup := newTestIndexer(t)
	defer cleanup()
	ctx := context.Background()

	// the victim sells token 123 at -99% of floor
	phishing := saleTransaction(t, "0x01", victimAddr, attackerAdr, 123, 0.01, 1700000000)
	findings, err := ix.ProcessTransaction(ctx, phishing)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, detector.AlertNftPhishingSale, findings[0].AlertID)
	assert.Equal(t, detector.SeverityMedium, findings[0].Severity)
	assert.Equal(t, "-99.00%", findings[0].Metadata["floorPriceDiff"])

	// the attacker flips it to a buyer near floor an hour later
	resale := saleTransaction(t, "0x02", attackerAdr, buyerAddr, 123, 1.05, 1700003600)
	findings, err = ix.ProcessTransaction(ctx, resale)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, detector.AlertStolenNftSale, f.AlertID)
	assert.Equal(t, detector.SeverityHigh, f.Severity)
	assert.Equal(t, detector.TypeExploit, f.Type)
	assert.Equal(t, "0x01", f.Metadata["lastTxn"])
	assert.Contains(t, f.Addresses, strings.ToLower(victimAddr.Hex()))
	assert.Contains(t, f.Addresses, strings.ToLower(attackerAdr.Hex()))
}

func TestProcessTransactionReplayIsIdempotent(t *testing.T) {
	ix, cleanup := newTestIndexer(t)
	defer cleanup()
	ctx := context.Background()

	sale := saleTransaction(t, "0x01", victimAddr, attackerAdr, 123, 0.01, 1700000000)
	_, err := ix.ProcessTransaction(ctx, sale)
	require.NoError(t, err)

	// replaying the same transaction must not duplicate the trade or change
	// the findings
	findings, err := ix.ProcessTransaction(ctx, sale)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, detector.AlertNftPhishingSale, findings[0].AlertID)

	count, err := tradedb.NewTradeDb().CountTrades(ix.sqlite)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProcessTransactionSkipsNonMarketplaceTransfer(t *testing.T) {
	ix, cleanup := newTestIndexer(t)
	defer cleanup()

	// a plain NFT transfer: no marketplace contract anywhere in sight
	input := marketplace.TransactionInput{
		Hash:  "0x03",
		From:  victimAddr,
		To:    collection,
		Chain: marketplace.ChainEthereum,
		Logs: []types.Log{
			{
				Address: collection,
				Topics: []common.Hash{
					marketplace.Erc721TransferTopic,
					addressTopic(victimAddr),
					addressTopic(buyerAddr),
					common.BigToHash(big.NewInt(1)),
				},
			},
		},
	}
	findings, err := ix.ProcessTransaction(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestProcessTransactionSkipsOneWayInitiatorTransfer(t *testing.T) {
	ix, cleanup := newTestIndexer(t)
	defer cleanup()

	// initiator sends their own NFT away with a marketplace contract in the
	// log set but no counterpart transfer: not a sale
	input := marketplace.TransactionInput{
		Hash:  "0x04",
		From:  victimAddr,
		To:    seaportAddr,
		Chain: marketplace.ChainEthereum,
		Logs: []types.Log{
			{
				Address: collection,
				Topics: []common.Hash{
					marketplace.Erc721TransferTopic,
					addressTopic(victimAddr),
					addressTopic(attackerAdr),
					common.BigToHash(big.NewInt(9)),
				},
			},
		},
	}
	findings, err := ix.ProcessTransaction(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestProcessTransactionIlliquidCollection(t *testing.T) {
	sqlite, cleanup := testdb.SetupTestDB(t)
	defer cleanup()
	floor := stubFloor{fd: &pricing.FloorData{
		FloorPrice:     1.0,
		Currency:       "ETH",
		NumberOfOwners: 5,
		TotalSales:     1,
		TotalVolume:    0.5,
	}}
	ix := New(
		sqlite,
		tradedb.NewTradeDb(),
		marketplace.DefaultRegistry(),
		marketplace.DefaultCurrencies(),
		stubMetadata{},
		floor,
		stubPrices{native: 2000},
		50,
	)

	sale := saleTransaction(t, "0x01", victimAddr, attackerAdr, 123, 0.01, 1700000000)
	findings, err := ix.ProcessTransaction(context.Background(), sale)
	require.NoError(t, err)
	assert.Empty(t, findings)

	count, err := tradedb.NewTradeDb().CountTrades(sqlite)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
