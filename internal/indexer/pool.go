package indexer

import (
	"context"
	"sync"

	"github.com/nftsentinel/nftsentinel/internal/detector"
	"github.com/nftsentinel/nftsentinel/internal/marketplace"
	"go.uber.org/zap"
)

// Run fans transactions out to a fixed worker pool. Transactions are
// independent of each other, so they process concurrently; the logs of a
// single transaction always fold sequentially inside ProcessTransaction.
// Run returns once in is closed and all workers have drained, or when ctx is
// cancelled.
func (ix *Indexer) Run(ctx context.Context, workers int, in <-chan marketplace.TransactionInput, out chan<- detector.Finding) {
	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case txn, ok := <-in:
					if !ok {
						return
					}
					findings, err := ix.ProcessTransaction(ctx, txn)
					if err != nil {
						zap.L().Error("failed to process transaction",
							zap.String("txHash", txn.Hash),
							zap.Error(err))
						continue
					}
					for _, f := range findings {
						select {
						case <-ctx.Done():
							return
						case out <- f:
						}
					}
				}
			}
		}()
	}
	wg.Wait()
}
