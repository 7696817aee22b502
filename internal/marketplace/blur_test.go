package marketplace

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBlurAddr = common.HexToAddress("0x000000000000Ad05Ccc4F10045630fb830B95127")

func newBlurTx() *TransactionData {
	registry := DefaultRegistry()
	market, _ := registry.Lookup(testBlurAddr)
	contract := ContractInfo{
		Address:   testCollection,
		Name:      "Test Collection",
		TokenType: TokenStandardERC721,
	}
	return NewTransactionData("0xfeed", ChainEthereum, contract, market)
}

func blurTestOrder(trader, collection, matchingPolicy common.Address, tokenID *big.Int, price *big.Int) blurOrder {
	return blurOrder{
		Trader:         trader,
		MatchingPolicy: matchingPolicy,
		Collection:     collection,
		TokenId:        tokenID,
		Amount:         big.NewInt(1),
		PaymentToken:   NullAddress,
		Price:          price,
		ListingTime:    big.NewInt(0),
		ExpirationTime: big.NewInt(0),
		Fees:           []blurFee{},
		Salt:           big.NewInt(0),
		ExtraParams:    []byte{},
	}
}

func packOrdersMatched(t *testing.T, sell, buy blurOrder) []byte {
	t.Helper()
	data, err := blurABI.Events["OrdersMatched"].Inputs.NonIndexed().Pack(
		sell, [32]byte{0x01}, buy, [32]byte{0x02})
	require.NoError(t, err)
	return data
}

func blurLog(data []byte) types.Log {
	return types.Log{
		Address: testBlurAddr,
		Topics: []common.Hash{
			BlurOrdersMatchedTopic,
			addressTopic(testSeller),
			addressTopic(testBuyer),
		},
		Data: data,
	}
}

func TestParseBlurSale(t *testing.T) {
	r := newTestReconstructor(nil)
	tx := newBlurTx()
	market, _ := r.registry.Lookup(testBlurAddr)

	standardPolicy := common.HexToAddress("0x0000000000daB4A563819e8fd93dbA3b25BC3495")
	sell := blurTestOrder(testSeller, testCollection, standardPolicy, big.NewInt(888), eth(2.5))
	buy := blurTestOrder(testBuyer, testCollection, standardPolicy, big.NewInt(888), eth(2.5))
	lg := blurLog(packOrdersMatched(t, sell, buy))

	err := r.parseBlur(tx, lg, market)
	require.NoError(t, err)

	assert.False(t, tx.IsBlurBid)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", tx.FromAddr())
	assert.Equal(t, "0x3333333333333333333333333333333333333333", tx.ToAddr())
	assert.InDelta(t, 2.5, tx.TotalPrice, 1e-9)
	assert.Equal(t, int64(1), tx.TotalAmount)

	fill := tx.Tokens["888"].Markets[MarketBlur]
	require.NotNil(t, fill)
	assert.Equal(t, "2.5", fill.Price.Value)
	assert.Equal(t, "ETH", fill.Price.Currency.Name)
}

func TestParseBlurCollectionBidFlag(t *testing.T) {
	r := newTestReconstructor(nil)
	tx := newBlurTx()
	market, _ := r.registry.Lookup(testBlurAddr)

	sell := blurTestOrder(testSeller, testCollection, BlurSafeCollectionBidPolicy, big.NewInt(1), eth(1))
	buy := blurTestOrder(testBuyer, testCollection, BlurSafeCollectionBidPolicy, big.NewInt(1), eth(1))
	lg := blurLog(packOrdersMatched(t, sell, buy))

	require.NoError(t, r.parseBlur(tx, lg, market))
	assert.True(t, tx.IsBlurBid)
	assert.NotEmpty(t, tx.Tokens)
}

func TestParseBlurSkipsOtherCollection(t *testing.T) {
	r := newTestReconstructor(nil)
	tx := newBlurTx()
	market, _ := r.registry.Lookup(testBlurAddr)

	other := common.HexToAddress("0x9999999999999999999999999999999999999999")
	sell := blurTestOrder(testSeller, other, BlurSafeCollectionBidPolicy, big.NewInt(1), eth(1))
	buy := blurTestOrder(testBuyer, other, BlurSafeCollectionBidPolicy, big.NewInt(1), eth(1))
	lg := blurLog(packOrdersMatched(t, sell, buy))

	require.NoError(t, r.parseBlur(tx, lg, market))
	// the bid flag is read before the collection filter
	assert.True(t, tx.IsBlurBid)
	assert.Empty(t, tx.Tokens)
	assert.Equal(t, 0.0, tx.TotalPrice)
}
