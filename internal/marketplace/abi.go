package marketplace

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const seaportABIJSON = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "bytes32", "name": "orderHash", "type": "bytes32"},
			{"indexed": true, "internalType": "address", "name": "offerer", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "zone", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "recipient", "type": "address"},
			{
				"components": [
					{"internalType": "uint8", "name": "itemType", "type": "uint8"},
					{"internalType": "address", "name": "token", "type": "address"},
					{"internalType": "uint256", "name": "identifier", "type": "uint256"},
					{"internalType": "uint256", "name": "amount", "type": "uint256"}
				],
				"indexed": false, "internalType": "struct SpentItem[]", "name": "offer", "type": "tuple[]"
			},
			{
				"components": [
					{"internalType": "uint8", "name": "itemType", "type": "uint8"},
					{"internalType": "address", "name": "token", "type": "address"},
					{"internalType": "uint256", "name": "identifier", "type": "uint256"},
					{"internalType": "uint256", "name": "amount", "type": "uint256"},
					{"internalType": "address", "name": "recipient", "type": "address"}
				],
				"indexed": false, "internalType": "struct ReceivedItem[]", "name": "consideration", "type": "tuple[]"
			}
		],
		"name": "OrderFulfilled",
		"type": "event"
	}
]`

const looksRareABIJSON = `[
	{
		"anonymous": false,
		"inputs": [
			{
				"components": [
					{"internalType": "bytes32", "name": "orderHash", "type": "bytes32"},
					{"internalType": "uint256", "name": "orderNonce", "type": "uint256"},
					{"internalType": "bool", "name": "isNonceInvalidated", "type": "bool"}
				],
				"indexed": false, "internalType": "struct ILooksRareProtocol.NonceInvalidationParameters", "name": "nonceInvalidationParameters", "type": "tuple"
			},
			{"indexed": false, "internalType": "address", "name": "bidUser", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "bidRecipient", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "strategyId", "type": "uint256"},
			{"indexed": false, "internalType": "address", "name": "currency", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "collection", "type": "address"},
			{"indexed": false, "internalType": "uint256[]", "name": "itemIds", "type": "uint256[]"},
			{"indexed": false, "internalType": "uint256[]", "name": "amounts", "type": "uint256[]"},
			{"indexed": false, "internalType": "address[2]", "name": "feeRecipients", "type": "address[2]"},
			{"indexed": false, "internalType": "uint256[3]", "name": "feeAmounts", "type": "uint256[3]"}
		],
		"name": "TakerBid",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{
				"components": [
					{"internalType": "bytes32", "name": "orderHash", "type": "bytes32"},
					{"internalType": "uint256", "name": "orderNonce", "type": "uint256"},
					{"internalType": "bool", "name": "isNonceInvalidated", "type": "bool"}
				],
				"indexed": false, "internalType": "struct ILooksRareProtocol.NonceInvalidationParameters", "name": "nonceInvalidationParameters", "type": "tuple"
			},
			{"indexed": false, "internalType": "address", "name": "askUser", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "bidUser", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "strategyId", "type": "uint256"},
			{"indexed": false, "internalType": "address", "name": "currency", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "collection", "type": "address"},
			{"indexed": false, "internalType": "uint256[]", "name": "itemIds", "type": "uint256[]"},
			{"indexed": false, "internalType": "uint256[]", "name": "amounts", "type": "uint256[]"},
			{"indexed": false, "internalType": "address[2]", "name": "feeRecipients", "type": "address[2]"},
			{"indexed": false, "internalType": "uint256[3]", "name": "feeAmounts", "type": "uint256[3]"}
		],
		"name": "TakerAsk",
		"type": "event"
	}
]`

const blurABIJSON = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "maker", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "taker", "type": "address"},
			{
				"components": [
					{"internalType": "address", "name": "trader", "type": "address"},
					{"internalType": "uint8", "name": "side", "type": "uint8"},
					{"internalType": "address", "name": "matchingPolicy", "type": "address"},
					{"internalType": "address", "name": "collection", "type": "address"},
					{"internalType": "uint256", "name": "tokenId", "type": "uint256"},
					{"internalType": "uint256", "name": "amount", "type": "uint256"},
					{"internalType": "address", "name": "paymentToken", "type": "address"},
					{"internalType": "uint256", "name": "price", "type": "uint256"},
					{"internalType": "uint256", "name": "listingTime", "type": "uint256"},
					{"internalType": "uint256", "name": "expirationTime", "type": "uint256"},
					{
						"components": [
							{"internalType": "uint16", "name": "rate", "type": "uint16"},
							{"internalType": "address", "name": "recipient", "type": "address"}
						],
						"internalType": "struct Fee[]", "name": "fees", "type": "tuple[]"
					},
					{"internalType": "uint256", "name": "salt", "type": "uint256"},
					{"internalType": "bytes", "name": "extraParams", "type": "bytes"}
				],
				"indexed": false, "internalType": "struct Order", "name": "sell", "type": "tuple"
			},
			{"indexed": false, "internalType": "bytes32", "name": "sellHash", "type": "bytes32"},
			{
				"components": [
					{"internalType": "address", "name": "trader", "type": "address"},
					{"internalType": "uint8", "name": "side", "type": "uint8"},
					{"internalType": "address", "name": "matchingPolicy", "type": "address"},
					{"internalType": "address", "name": "collection", "type": "address"},
					{"internalType": "uint256", "name": "tokenId", "type": "uint256"},
					{"internalType": "uint256", "name": "amount", "type": "uint256"},
					{"internalType": "address", "name": "paymentToken", "type": "address"},
					{"internalType": "uint256", "name": "price", "type": "uint256"},
					{"internalType": "uint256", "name": "listingTime", "type": "uint256"},
					{"internalType": "uint256", "name": "expirationTime", "type": "uint256"},
					{
						"components": [
							{"internalType": "uint16", "name": "rate", "type": "uint16"},
							{"internalType": "address", "name": "recipient", "type": "address"}
						],
						"internalType": "struct Fee[]", "name": "fees", "type": "tuple[]"
					},
					{"internalType": "uint256", "name": "salt", "type": "uint256"},
					{"internalType": "bytes", "name": "extraParams", "type": "bytes"}
				],
				"indexed": false, "internalType": "struct Order", "name": "buy", "type": "tuple"
			},
			{"indexed": false, "internalType": "bytes32", "name": "buyHash", "type": "bytes32"}
		],
		"name": "OrdersMatched",
		"type": "event"
	}
]`

var (
	seaportABI   abi.ABI
	looksRareABI abi.ABI
	blurABI      abi.ABI
)

func init() {
	var err error
	seaportABI, err = abi.JSON(strings.NewReader(seaportABIJSON))
	if err != nil {
		panic(err)
	}
	looksRareABI, err = abi.JSON(strings.NewReader(looksRareABIJSON))
	if err != nil {
		panic(err)
	}
	blurABI, err = abi.JSON(strings.NewReader(blurABIJSON))
	if err != nil {
		panic(err)
	}
}
