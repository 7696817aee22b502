package marketplace

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type looksRareNonceInvalidation struct {
	OrderHash          [32]byte
	OrderNonce         *big.Int
	IsNonceInvalidated bool
}

type looksRareTakerBid struct {
	NonceInvalidationParameters looksRareNonceInvalidation
	BidUser                     common.Address
	BidRecipient                common.Address
	StrategyId                  *big.Int
	Currency                    common.Address
	Collection                  common.Address
	ItemIds                     []*big.Int
	Amounts                     []*big.Int
	FeeRecipients               [2]common.Address
	FeeAmounts                  [3]*big.Int
}

type looksRareTakerAsk struct {
	NonceInvalidationParameters looksRareNonceInvalidation
	AskUser                     common.Address
	BidUser                     common.Address
	StrategyId                  *big.Int
	Currency                    common.Address
	Collection                  common.Address
	ItemIds                     []*big.Int
	Amounts                     []*big.Int
	FeeRecipients               [2]common.Address
	FeeAmounts                  [3]*big.Int
}

// parseLooksRare handles TakerBid and TakerAsk fills. The seller proceeds are
// feeAmounts[0] plus feeAmounts[2]; feeAmounts[1] is the protocol fee.
func (r *Reconstructor) parseLooksRare(tx *TransactionData, lg types.Log, market Market) error {
	if len(lg.Topics) == 0 {
		return ErrDecode
	}

	var (
		currency      common.Address
		collection    common.Address
		itemIds       []*big.Int
		amounts       []*big.Int
		feeRecipients [2]common.Address
		feeAmounts    [3]*big.Int
		bidRecipient  common.Address
		isTakerBid    bool
	)
	switch lg.Topics[0] {
	case LooksRareTakerBidTopic:
		var ev looksRareTakerBid
		if err := looksRareABI.UnpackIntoInterface(&ev, "TakerBid", lg.Data); err != nil {
			return fmt.Errorf("%w: %s", ErrDecode, err.Error())
		}
		currency, collection = ev.Currency, ev.Collection
		itemIds, amounts = ev.ItemIds, ev.Amounts
		feeRecipients, feeAmounts = ev.FeeRecipients, ev.FeeAmounts
		bidRecipient = ev.BidRecipient
		isTakerBid = true
	case LooksRareTakerAskTopic, LooksRareV1TakerAskTopic:
		var ev looksRareTakerAsk
		if err := looksRareABI.UnpackIntoInterface(&ev, "TakerAsk", lg.Data); err != nil {
			return fmt.Errorf("%w: %s", ErrDecode, err.Error())
		}
		currency, collection = ev.Currency, ev.Collection
		itemIds, amounts = ev.ItemIds, ev.Amounts
		feeRecipients, feeAmounts = ev.FeeRecipients, ev.FeeAmounts
	default:
		return ErrDecode
	}

	if collection != tx.Contract.Address {
		return nil
	}
	if len(itemIds) == 0 || len(amounts) == 0 {
		return fmt.Errorf("%w: fill without items", ErrDecode)
	}
	cur, ok := r.currencies.Lookup(currency)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCurrency, strings.ToLower(currency.Hex()))
	}

	priceRaw := new(big.Int).Add(feeAmounts[0], feeAmounts[2])
	price := weiToFloat(priceRaw, cur.Decimals)
	tokenID := itemIds[0].String()
	amount := amounts[0].Int64()

	if isTakerBid {
		tx.SetToAddr(strings.ToLower(bidRecipient.Hex()))
	}
	tx.SetFromAddr(strings.ToLower(feeRecipients[0].Hex()))
	tx.Currency = PriceCurrency{Name: cur.Symbol, Decimals: cur.Decimals}

	tx.TotalPrice += price
	tx.TotalAmount += amount
	tx.applyTokenFill(tokenFill{
		tokenID:  tokenID,
		name:     tx.Contract.Name,
		amount:   amount,
		market:   market.Name,
		hasPrice: true,
		price:    price,
		currency: PriceCurrency{Name: cur.Symbol, Decimals: cur.Decimals},
	})
	return nil
}
