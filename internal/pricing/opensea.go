package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/nftsentinel/nftsentinel/internal/marketplace"
	"go.uber.org/zap"
)

const openSeaBaseURL = "https://api.opensea.io"

// OpenSeaClient resolves collection floor data through the OpenSea v2 API:
// first the contract's collection slug, then the collection stats.
type OpenSeaClient struct {
	apiKey  string
	baseURL string
	fetch   fetchFunc
	retry   RetryPolicy
	cache   *expirable.LRU[string, FloorData]
}

func NewOpenSeaClient(apiKey string, retry RetryPolicy, cacheSize int, cacheTTL time.Duration) *OpenSeaClient {
	return &OpenSeaClient{
		apiKey:  apiKey,
		baseURL: openSeaBaseURL,
		fetch:   defaultFetch,
		retry:   retry,
		cache:   expirable.NewLRU[string, FloorData](cacheSize, nil, cacheTTL),
	}
}

type openSeaContractResponse struct {
	Collection string `json:"collection"`
}

type openSeaStatsResponse struct {
	Total struct {
		FloorPrice       float64 `json:"floor_price"`
		FloorPriceSymbol string  `json:"floor_price_symbol"`
		NumOwners        int     `json:"num_owners"`
		Sales            int     `json:"sales"`
		Volume           float64 `json:"volume"`
	} `json:"total"`
}

func (c *OpenSeaClient) GetFloorData(ctx context.Context, contractAddress string, chain marketplace.ChainID) (*FloorData, error) {
	chainName := chain.OpenSeaChainName()
	if chainName == "" {
		return nil, nil
	}
	contractAddress = strings.ToLower(contractAddress)
	cacheKey := fmt.Sprintf("%d:%s", chain, contractAddress)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return &cached, nil
	}

	var contractResp openSeaContractResponse
	found, err := c.getJSON(ctx, fmt.Sprintf("%s/api/v2/chain/%s/contract/%s", c.baseURL, chainName, contractAddress), &contractResp)
	if err != nil {
		return nil, err
	}
	if !found || contractResp.Collection == "" {
		return nil, nil
	}

	var statsResp openSeaStatsResponse
	found, err = c.getJSON(ctx, fmt.Sprintf("%s/api/v2/collections/%s/stats", c.baseURL, contractResp.Collection), &statsResp)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	data := FloorData{
		FloorPrice:     statsResp.Total.FloorPrice,
		Currency:       statsResp.Total.FloorPriceSymbol,
		NumberOfOwners: statsResp.Total.NumOwners,
		TotalSales:     statsResp.Total.Sales,
		TotalVolume:    statsResp.Total.Volume,
	}
	c.cache.Add(cacheKey, data)
	return &data, nil
}

// getJSON fetches url with bounded retries. It returns false without error on
// a 404, which callers treat as "collection unknown".
func (c *OpenSeaClient) getJSON(ctx context.Context, url string, out any) (bool, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.apiKey != "" {
		header.Set("X-API-KEY", c.apiKey)
	}

	found := true
	operation := func() error {
		resp, err := c.fetch(url, header)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			found = false
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, out)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retry.Backoff), c.retry.Attempts), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		zap.L().Warn("floor feed request failed", zap.String("url", url), zap.Error(err))
		return false, fmt.Errorf("%w: %s", ErrFeedUnavailable, err.Error())
	}
	return found, nil
}
