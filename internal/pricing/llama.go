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

const llamaBaseURL = "https://coins.llama.fi"

// LlamaClient resolves token and native currency USD prices through the
// DefiLlama coins API.
type LlamaClient struct {
	baseURL string
	fetch   fetchFunc
	retry   RetryPolicy
	cache   *expirable.LRU[string, float64]
}

func NewLlamaClient(retry RetryPolicy, cacheSize int, cacheTTL time.Duration) *LlamaClient {
	return &LlamaClient{
		baseURL: llamaBaseURL,
		fetch:   defaultFetch,
		retry:   retry,
		cache:   expirable.NewLRU[string, float64](cacheSize, nil, cacheTTL),
	}
}

type llamaPriceResponse struct {
	Coins map[string]struct {
		Price float64 `json:"price"`
	} `json:"coins"`
}

func (c *LlamaClient) Erc20UsdPrice(ctx context.Context, chain marketplace.ChainID, tokenAddress string) (float64, error) {
	chainKey := chain.LlamaTokenKey()
	if chainKey == "" {
		return 0, nil
	}
	return c.priceForKey(ctx, chainKey+":"+strings.ToLower(tokenAddress))
}

func (c *LlamaClient) NativeUsdPrice(ctx context.Context, chain marketplace.ChainID) (float64, error) {
	coinKey := chain.NativeCoinKey()
	if coinKey == "" {
		return 0, nil
	}
	return c.priceForKey(ctx, coinKey)
}

// priceForKey returns zero without error when the feed has no quote for the
// asset; only transport failures surface as ErrFeedUnavailable.
func (c *LlamaClient) priceForKey(ctx context.Context, key string) (float64, error) {
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	url := fmt.Sprintf("%s/prices/current/%s", c.baseURL, key)
	var parsed llamaPriceResponse
	operation := func() error {
		resp, err := c.fetch(url, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &parsed)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retry.Backoff), c.retry.Attempts), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		zap.L().Warn("token price feed request failed", zap.String("key", key), zap.Error(err))
		return 0, fmt.Errorf("%w: %s", ErrFeedUnavailable, err.Error())
	}

	coin, ok := parsed.Coins[key]
	if !ok {
		return 0, nil
	}
	c.cache.Add(key, coin.Price)
	return coin.Price, nil
}
