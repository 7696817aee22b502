package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nftsentinel/nftsentinel/internal/config"
	"github.com/nftsentinel/nftsentinel/internal/db"
	"github.com/nftsentinel/nftsentinel/internal/detector"
	"github.com/nftsentinel/nftsentinel/internal/eth"
	"github.com/nftsentinel/nftsentinel/internal/indexer"
	"github.com/nftsentinel/nftsentinel/internal/marketplace"
	"github.com/nftsentinel/nftsentinel/internal/pricing"
	"github.com/nftsentinel/nftsentinel/internal/tradedb"
	"go.uber.org/zap"
)

var Version = "dev" // Overridden by release build script

func init() {
	logger := zap.Must(zap.NewProduction())
	if config.Get().LogZapMode == "development" {
		logger = zap.Must(zap.NewDevelopment())
	}
	zap.ReplaceGlobals(logger)
}

func main() {
	zap.L().Info("Starting nftsentinel...",
		zap.String("Version", Version))

	cfg := config.Get()

	// Main context: canceled when we want to stop normal operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sqlite, err := db.OpenSqlite(cfg.DbPath)
	if err != nil {
		zap.L().Fatal("Failed to open SQLite", zap.Error(err))
	}

	ethClient, err := eth.CreateEthClient()
	if err != nil {
		zap.L().Fatal("Failed to create Ethereum client", zap.Error(err))
	}

	chain := marketplace.ChainID(cfg.ChainID)
	retry := pricing.RetryPolicy{
		Attempts: cfg.FeedRetryAttempts,
		Backoff:  time.Duration(cfg.FeedRetryBackoffMs) * time.Millisecond,
	}
	cacheTTL := time.Duration(cfg.PriceCacheTTLMinutes) * time.Minute
	floorSource := pricing.NewOpenSeaClient(cfg.OpenSeaApiKey, retry, cfg.PriceCacheSize, cacheTTL)
	priceSource := pricing.NewLlamaClient(retry, cfg.PriceCacheSize, cacheTTL)
	metadata := eth.NewOnChainMetadataSource(ethClient, cfg.PriceCacheSize)

	ix := indexer.New(
		sqlite,
		tradedb.NewTradeDb(),
		marketplace.DefaultRegistry(),
		marketplace.DefaultCurrencies(),
		metadata,
		floorSource,
		priceSource,
		cfg.MinPhishingUsdValue,
	)

	txCh := make(chan marketplace.TransactionInput, 64)
	findingCh := make(chan detector.Finding, 64)

	stream := eth.NewTransactionStream(ethClient, chain)
	go func() {
		if err := stream.Run(ctx, txCh); err != nil && ctx.Err() == nil {
			zap.L().Error("Transaction stream stopped", zap.Error(err))
			cancel()
		}
		close(txCh)
	}()

	go func() {
		for finding := range findingCh {
			zap.L().Info("finding",
				zap.String("alertId", string(finding.AlertID)),
				zap.String("severity", finding.Severity.String()),
				zap.String("type", finding.Type.String()),
				zap.String("description", finding.Description))
		}
	}()

	workersDone := make(chan struct{})
	go func() {
		ix.Run(ctx, cfg.TxWorkerCount, txCh, findingCh)
		close(findingCh)
		close(workersDone)
	}()

	// Catch up to two signals: first for graceful, second to force
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	doneCh := make(chan struct{})

	go func() {
		<-sigCh
		zap.L().Info("Received shutdown signal, initiating graceful shutdown...")

		// 1. Cancel main context, telling the stream and workers to stop
		cancel()

		// 2. Wait for in-flight transactions to drain
		<-workersDone

		// 3. Close the Ethereum client
		ethClient.Close()

		// 4. Close DB
		if err := sqlite.Close(); err != nil {
			zap.L().Warn("Error closing DB", zap.Error(err))
		}

		// 5. Signal that cleanup is done
		close(doneCh)

		// If a second signal arrives, force an immediate exit
		<-sigCh
		zap.L().Error("Received second signal, forcing shutdown")
		os.Exit(1)
	}()

	// Wait for either normal context cancellation or graceful shutdown completion
	select {
	case <-ctx.Done():
	case <-doneCh:
	}

	zap.L().Info("Shutdown complete")
	_ = zap.L().Sync()
}
