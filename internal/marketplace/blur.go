package marketplace

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type blurFee struct {
	Rate      uint16
	Recipient common.Address
}

type blurOrder struct {
	Trader         common.Address
	Side           uint8
	MatchingPolicy common.Address
	Collection     common.Address
	TokenId        *big.Int
	Amount         *big.Int
	PaymentToken   common.Address
	Price          *big.Int
	ListingTime    *big.Int
	ExpirationTime *big.Int
	Fees           []blurFee
	Salt           *big.Int
	ExtraParams    []byte
}

type blurOrdersMatched struct {
	Sell     blurOrder
	SellHash [32]byte
	Buy      blurOrder
	BuyHash  [32]byte

	// from indexed topics
	Maker common.Address
	Taker common.Address
}

// parseBlur handles OrdersMatched fills. All fields of interest come from the
// sell order; Blur settles exclusively in 18-decimal native currency.
func (r *Reconstructor) parseBlur(tx *TransactionData, lg types.Log, market Market) error {
	var ev blurOrdersMatched
	if err := blurABI.UnpackIntoInterface(&ev, "OrdersMatched", lg.Data); err != nil {
		return fmt.Errorf("%w: %s", ErrDecode, err.Error())
	}

	if ev.Sell.MatchingPolicy == BlurSafeCollectionBidPolicy {
		tx.IsBlurBid = true
	}
	if ev.Sell.Collection != tx.Contract.Address {
		return nil
	}

	price := weiToFloat(ev.Sell.Price, 18)
	amount := ev.Sell.Amount.Int64()

	tx.SetFromAddr(strings.ToLower(ev.Sell.Trader.Hex()))
	tx.SetToAddr(strings.ToLower(ev.Buy.Trader.Hex()))
	nativeCurrency := PriceCurrency{Name: tx.Chain.NativeSymbol(), Decimals: 18}
	tx.Currency = nativeCurrency

	tx.TotalPrice += price
	tx.TotalAmount += amount
	tx.applyTokenFill(tokenFill{
		tokenID:  ev.Sell.TokenId.String(),
		name:     tx.Contract.Name,
		amount:   amount,
		market:   market.Name,
		hasPrice: true,
		price:    price,
		currency: nativeCurrency,
	})
	return nil
}
