package pricing

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nftsentinel/nftsentinel/internal/marketplace"
)

// ErrFeedUnavailable marks a price feed that kept failing after the bounded
// retry budget. Callers degrade the affected value to unknown instead of
// blocking the pipeline.
var ErrFeedUnavailable = errors.New("price feed unavailable after retries")

// FloorData is a collection's floor price and liquidity stats as reported by
// the floor feed.
type FloorData struct {
	FloorPrice     float64
	Currency       string
	NumberOfOwners int
	TotalSales     int
	TotalVolume    float64
}

// FloorSource reports collection floor data. A nil FloorData with a nil error
// means the feed knows nothing about the collection.
type FloorSource interface {
	GetFloorData(ctx context.Context, contractAddress string, chain marketplace.ChainID) (*FloorData, error)
}

// TokenPriceSource reports USD prices for payment tokens and native currency.
// A zero price with a nil error means the feed has no quote for the asset.
type TokenPriceSource interface {
	Erc20UsdPrice(ctx context.Context, chain marketplace.ChainID, tokenAddress string) (float64, error)
	NativeUsdPrice(ctx context.Context, chain marketplace.ChainID) (float64, error)
}

// fetchFunc performs one HTTP GET. Injectable so tests can point clients at
// an httptest server or fail requests deterministically.
type fetchFunc func(url string, header http.Header) (*http.Response, error)

func defaultFetch(url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if header != nil {
		req.Header = header
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

// RetryPolicy bounds the retry loop around a feed request.
type RetryPolicy struct {
	Attempts uint64
	Backoff  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, Backoff: 500 * time.Millisecond}
}
