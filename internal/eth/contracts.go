package eth

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/nftsentinel/nftsentinel/internal/marketplace"
	"go.uber.org/zap"
)

const metadataABIJSON = `[
	{"constant": true, "inputs": [], "name": "name", "outputs": [{"name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "symbol", "outputs": [{"name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "decimals", "outputs": [{"name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "totalSupply", "outputs": [{"name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [{"name": "interfaceId", "type": "bytes4"}], "name": "supportsInterface", "outputs": [{"name": "", "type": "bool"}], "stateMutability": "view", "type": "function"}
]`

var metadataABI abi.ABI

// ERC-165 interface ids.
var (
	erc721InterfaceID  = [4]byte{0x80, 0xac, 0x58, 0xcd}
	erc1155InterfaceID = [4]byte{0xd9, 0xb6, 0x7a, 0x26}
)

func init() {
	var err error
	metadataABI, err = abi.JSON(strings.NewReader(metadataABIJSON))
	if err != nil {
		panic(err)
	}
}

// Erc20Info is on-chain metadata for a payment token.
type Erc20Info struct {
	Symbol   string
	Decimals uint8
}

// ContractMetadataSource resolves on-chain contract metadata. NftContractInfo
// returns nil without error for contracts that are not NFT collections.
type ContractMetadataSource interface {
	NftContractInfo(ctx context.Context, addr common.Address) (*marketplace.ContractInfo, error)
	Erc20TokenInfo(ctx context.Context, addr common.Address) (*Erc20Info, error)
}

// OnChainMetadataSource reads metadata straight from the contracts, caching
// results because collections never change standard and rarely rename.
type OnChainMetadataSource struct {
	client     EthClient
	nftCache   *expirable.LRU[common.Address, *marketplace.ContractInfo]
	erc20Cache *expirable.LRU[common.Address, Erc20Info]
}

func NewOnChainMetadataSource(client EthClient, cacheSize int) *OnChainMetadataSource {
	return &OnChainMetadataSource{
		client:     client,
		nftCache:   expirable.NewLRU[common.Address, *marketplace.ContractInfo](cacheSize, nil, 0),
		erc20Cache: expirable.NewLRU[common.Address, Erc20Info](cacheSize, nil, 0),
	}
}

func (s *OnChainMetadataSource) NftContractInfo(ctx context.Context, addr common.Address) (*marketplace.ContractInfo, error) {
	if cached, ok := s.nftCache.Get(addr); ok {
		return cached, nil
	}

	tokenType := marketplace.TokenStandardUnknown
	if is721, err := s.supportsInterface(ctx, addr, erc721InterfaceID); err == nil && is721 {
		tokenType = marketplace.TokenStandardERC721
	} else if is1155, err := s.supportsInterface(ctx, addr, erc1155InterfaceID); err == nil && is1155 {
		tokenType = marketplace.TokenStandardERC1155
	}
	if tokenType == marketplace.TokenStandardUnknown {
		s.nftCache.Add(addr, nil)
		return nil, nil
	}

	info := &marketplace.ContractInfo{Address: addr, TokenType: tokenType}
	if name, err := s.callString(ctx, addr, "name"); err == nil {
		info.Name = name
	} else {
		zap.L().Debug("collection has no readable name", zap.String("contract", addr.Hex()))
	}
	if symbol, err := s.callString(ctx, addr, "symbol"); err == nil {
		info.Symbol = symbol
	}
	if supply, err := s.callUint(ctx, addr, "totalSupply"); err == nil {
		info.TotalSupply = supply
	}

	s.nftCache.Add(addr, info)
	return info, nil
}

func (s *OnChainMetadataSource) Erc20TokenInfo(ctx context.Context, addr common.Address) (*Erc20Info, error) {
	if cached, ok := s.erc20Cache.Get(addr); ok {
		return &cached, nil
	}
	symbol, err := s.callString(ctx, addr, "symbol")
	if err != nil {
		return nil, err
	}
	decimals, err := s.callUint(ctx, addr, "decimals")
	if err != nil {
		return nil, err
	}
	info := Erc20Info{Symbol: symbol, Decimals: uint8(decimals)}
	s.erc20Cache.Add(addr, info)
	return &info, nil
}

func (s *OnChainMetadataSource) supportsInterface(ctx context.Context, addr common.Address, interfaceID [4]byte) (bool, error) {
	data, err := metadataABI.Pack("supportsInterface", interfaceID)
	if err != nil {
		return false, err
	}
	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return false, err
	}
	results, err := metadataABI.Unpack("supportsInterface", out)
	if err != nil || len(results) == 0 {
		return false, err
	}
	supported, _ := results[0].(bool)
	return supported, nil
}

func (s *OnChainMetadataSource) callString(ctx context.Context, addr common.Address, method string) (string, error) {
	data, err := metadataABI.Pack(method)
	if err != nil {
		return "", err
	}
	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return "", err
	}
	results, err := metadataABI.Unpack(method, out)
	if err != nil || len(results) == 0 {
		return "", err
	}
	value, _ := results[0].(string)
	return value, nil
}

func (s *OnChainMetadataSource) callUint(ctx context.Context, addr common.Address, method string) (uint64, error) {
	data, err := metadataABI.Pack(method)
	if err != nil {
		return 0, err
	}
	out, err := s.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return 0, err
	}
	results, err := metadataABI.Unpack(method, out)
	if err != nil || len(results) == 0 {
		return 0, err
	}
	switch v := results[0].(type) {
	case uint8:
		return uint64(v), nil
	case uint64:
		return v, nil
	default:
		if b, ok := results[0].(interface{ Uint64() uint64 }); ok {
			return b.Uint64(), nil
		}
	}
	return 0, nil
}
