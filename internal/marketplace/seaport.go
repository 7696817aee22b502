package marketplace

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Seaport item types, per the SpentItem/ReceivedItem enum.
const (
	seaportItemNative uint8 = iota
	seaportItemErc20
	seaportItemErc721
	seaportItemErc1155
	seaportItemErc721WithCriteria
	seaportItemErc1155WithCriteria
)

type seaportSpentItem struct {
	ItemType   uint8
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
}

type seaportReceivedItem struct {
	ItemType   uint8
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
	Recipient  common.Address
}

type seaportOrderFulfilled struct {
	OrderHash     [32]byte
	Recipient     common.Address
	Offer         []seaportSpentItem
	Consideration []seaportReceivedItem

	// from indexed topics
	Offerer common.Address
	Zone    common.Address
}

// parseSeaport folds one OrderFulfilled log into the transaction. The target
// collection sits on either the offer or the consideration side; the opposite
// side sums to the sale price.
func (r *Reconstructor) parseSeaport(ctx context.Context, tx *TransactionData, lg types.Log, market Market) error {
	if len(lg.Topics) < 3 {
		return fmt.Errorf("%w: OrderFulfilled needs offerer and zone topics", ErrDecode)
	}
	var ev seaportOrderFulfilled
	if err := seaportABI.UnpackIntoInterface(&ev, "OrderFulfilled", lg.Data); err != nil {
		return fmt.Errorf("%w: %s", ErrDecode, err.Error())
	}
	ev.Offerer = common.BytesToAddress(lg.Topics[1].Bytes())
	ev.Zone = common.BytesToAddress(lg.Topics[2].Bytes())

	// NFT Trader settles its swaps through Seaport; a consideration item paid
	// to the NFT Trader contract identifies the fill as a swap.
	for _, item := range ev.Consideration {
		if m, ok := r.registry.Lookup(item.Recipient); ok && m.Name == MarketNFTTrader {
			tx.InteractedMarket = m
			return r.parseNftTraderSwap(tx, &ev)
		}
	}

	var lastTokenID string
	collect := func(token common.Address, identifier, amount *big.Int) bool {
		if token != tx.Contract.Address {
			return false
		}
		lastTokenID = identifier.String()
		n := amount.Int64()
		tx.TotalAmount += n
		tx.applyTokenFill(tokenFill{
			tokenID: lastTokenID,
			name:    tx.Contract.Name,
			amount:  n,
			market:  market.Name,
		})
		return true
	}

	nftOnOfferSide := false
	for _, it := range ev.Offer {
		if collect(it.Token, it.Identifier, it.Amount) {
			nftOnOfferSide = true
		}
	}
	nftOnConsiderationSide := false
	if !nftOnOfferSide {
		for _, it := range ev.Consideration {
			if collect(it.Token, it.Identifier, it.Amount) {
				nftOnConsiderationSide = true
			}
		}
	}
	if !nftOnOfferSide && !nftOnConsiderationSide {
		return nil
	}

	sum := func(items []seaportReceivedItem) float64 {
		total := 0.0
		for _, it := range items {
			if it.Token == tx.Contract.Address {
				tx.toAddr = strings.ToLower(it.Recipient.Hex())
			}
			if cur, ok := r.currencies.Lookup(it.Token); ok {
				tx.Currency = PriceCurrency{Name: cur.Symbol, Decimals: cur.Decimals}
				total += weiToFloat(it.Amount, cur.Decimals)
			}
		}
		return total
	}
	sumOffer := func(items []seaportSpentItem) float64 {
		total := 0.0
		for _, it := range items {
			if cur, ok := r.currencies.Lookup(it.Token); ok {
				tx.Currency = PriceCurrency{Name: cur.Symbol, Decimals: cur.Decimals}
				total += weiToFloat(it.Amount, cur.Decimals)
			}
		}
		return total
	}

	var price float64
	if nftOnOfferSide {
		price = sum(ev.Consideration)
		tx.SetFromAddr(strings.ToLower(ev.Offerer.Hex()))
		if ev.Recipient != NullAddress {
			tx.SetToAddr(strings.ToLower(ev.Recipient.Hex()))
		}
	} else {
		price = sumOffer(ev.Offer)
		if ev.Recipient != NullAddress {
			tx.SetFromAddr(strings.ToLower(ev.Recipient.Hex()))
		}
		tx.SetToAddr(strings.ToLower(ev.Offerer.Hex()))
	}

	// Seaport's matchAdvancedOrders emits one OrderFulfilled per side of a
	// matched pair, double counting the same ERC-721 fill. Clamp the amount
	// and skip the second price contribution.
	doubleCounting := false
	for _, token := range tx.Tokens {
		fill := token.Markets[market.Name]
		if fill == nil {
			continue
		}
		if fill.Amount > 1 && tx.Contract.TokenType == TokenStandardERC721 {
			doubleCounting = true
			tx.TotalAmount -= fill.Amount - 1
			fill.Amount = 1
		}
	}

	token := tx.Tokens[lastTokenID]
	if doubleCounting || token == nil {
		return nil
	}
	fill := token.Markets[market.Name]
	if fill == nil {
		return nil
	}

	var paymentToken common.Address
	switch {
	case nftOnOfferSide && len(ev.Consideration) > 0:
		paymentToken = ev.Consideration[0].Token
	case !nftOnOfferSide && len(ev.Offer) > 0:
		paymentToken = ev.Offer[0].Token
	}
	usdValue := 0.0
	if tokenPrice, ok := r.erc20Price(ctx, tx.Chain, paymentToken); ok {
		usdValue = tokenPrice * price
	}

	if fill.Price.ValueInUSD != PriceUnset {
		fill.Price.ValueInUSD = FormatPrice(ExtractNumericalValue(fill.Price.ValueInUSD) + usdValue)
	} else {
		fill.Price.ValueInUSD = FormatPrice(usdValue)
	}
	if fill.Price.Value != PriceUnset {
		fill.Price.Value = FormatPrice(ExtractNumericalValue(fill.Price.Value) + price)
	} else {
		fill.Price.Value = FormatPrice(price)
	}
	fill.Price.Currency = tx.Currency
	tx.TotalPrice += price
	tx.TotalPriceInUSD += usdValue
	return nil
}

// parseNftTraderSwap reinterprets a Seaport fill as a peer-to-peer swap,
// splitting each side into currency spent and assets spent.
func (r *Reconstructor) parseNftTraderSwap(tx *TransactionData, ev *seaportOrderFulfilled) error {
	swap := &Swap{
		Maker: SwapSide{Address: strings.ToLower(ev.Offerer.Hex())},
		Taker: SwapSide{Address: strings.ToLower(ev.Recipient.Hex())},
	}

	makerSpent := 0.0
	for _, it := range ev.Offer {
		switch it.ItemType {
		case seaportItemNative, seaportItemErc20:
			if cur, ok := r.currencies.Lookup(it.Token); ok {
				makerSpent += weiToFloat(it.Amount, cur.Decimals)
			}
		case seaportItemErc721, seaportItemErc1155:
			swap.Maker.SpentAssets = append(swap.Maker.SpentAssets, SwapAsset{
				TokenID:         it.Identifier.String(),
				TokenType:       swapTokenStandard(it.ItemType),
				ContractAddress: strings.ToLower(it.Token.Hex()),
				Amount:          it.Amount.Int64(),
			})
		}
	}
	swap.Maker.SpentAmount = FormatPrice(makerSpent)

	takerSpent := 0.0
	for _, it := range ev.Consideration {
		switch it.ItemType {
		case seaportItemNative, seaportItemErc20:
			if cur, ok := r.currencies.Lookup(it.Token); ok {
				takerSpent += weiToFloat(it.Amount, cur.Decimals)
			}
		case seaportItemErc721, seaportItemErc1155:
			swap.Taker.SpentAssets = append(swap.Taker.SpentAssets, SwapAsset{
				TokenID:         it.Identifier.String(),
				TokenType:       swapTokenStandard(it.ItemType),
				ContractAddress: strings.ToLower(it.Token.Hex()),
				Amount:          it.Amount.Int64(),
			})
		}
	}
	swap.Taker.SpentAmount = FormatPrice(takerSpent)

	tx.Swap = swap
	return nil
}

func swapTokenStandard(itemType uint8) TokenStandard {
	if itemType == seaportItemErc721 {
		return TokenStandardERC721
	}
	return TokenStandardERC1155
}
