package eth

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/nftsentinel/nftsentinel/internal/marketplace"
	"go.uber.org/zap"
)

// TransactionStream subscribes to new heads and emits every confirmed
// transaction of each block, receipt logs attached.
type TransactionStream struct {
	client EthClient
	chain  marketplace.ChainID
	signer types.Signer
}

func NewTransactionStream(client EthClient, chain marketplace.ChainID) *TransactionStream {
	return &TransactionStream{
		client: client,
		chain:  chain,
		signer: types.LatestSignerForChainID(new(big.Int).SetUint64(uint64(chain))),
	}
}

// Run blocks until ctx is cancelled or the head subscription fails. Receipt
// fetch failures skip the affected transaction, not the block.
func (s *TransactionStream) Run(ctx context.Context, out chan<- marketplace.TransactionInput) error {
	heads := make(chan *types.Header, 16)
	sub, err := s.client.SubscribeNewHead(ctx, heads)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case head := <-heads:
			if err := s.emitBlock(ctx, head.Number, out); err != nil {
				zap.L().Error("failed to process block",
					zap.String("block", head.Number.String()),
					zap.Error(err))
			}
		}
	}
}

func (s *TransactionStream) emitBlock(ctx context.Context, number *big.Int, out chan<- marketplace.TransactionInput) error {
	block, err := s.client.BlockByNumber(ctx, number)
	if err != nil {
		return err
	}
	for _, txn := range block.Transactions() {
		if txn.To() == nil {
			continue
		}
		receipt, err := s.client.TransactionReceipt(ctx, txn.Hash())
		if err != nil {
			zap.L().Warn("failed to fetch receipt",
				zap.String("txHash", txn.Hash().Hex()),
				zap.Error(err))
			continue
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			continue
		}
		from, err := types.Sender(s.signer, txn)
		if err != nil {
			zap.L().Warn("failed to recover sender",
				zap.String("txHash", txn.Hash().Hex()),
				zap.Error(err))
			continue
		}
		logs := make([]types.Log, 0, len(receipt.Logs))
		for _, lg := range receipt.Logs {
			logs = append(logs, *lg)
		}
		input := marketplace.TransactionInput{
			Hash:      txn.Hash().Hex(),
			From:      from,
			To:        *txn.To(),
			Value:     txn.Value(),
			Timestamp: int64(block.Time()),
			Chain:     s.chain,
			Logs:      logs,
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- input:
		}
	}
	return nil
}
